package legal

import (
	"regexp"
	"strings"

	"github.com/54b3r/lawglance-go/internal/safety"
)

// Placement selects where EnsureDisclaimer inserts a missing disclaimer.
type Placement int

const (
	// PlacementAppend adds the disclaimer as a trailing bold line. Used by
	// the retrieval pipeline, which always disclaims explicitly.
	PlacementAppend Placement = iota
	// PlacementPrepend puts the disclaimer first. Used by the direct-reply
	// path, where the model may omit it entirely.
	PlacementPrepend
)

// disclaimerPattern matches the disclaimer sentence in any letter case.
var disclaimerPattern = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(safety.DisclaimerSentence))

// EnsureDisclaimer returns text containing the disclaimer sentence exactly
// once. An existing occurrence is kept as written and any further
// occurrences are removed; otherwise the sentence is inserted per placement.
func EnsureDisclaimer(text string, placement Placement) string {
	locs := disclaimerPattern.FindAllStringIndex(text, -1)
	switch {
	case len(locs) == 1:
		return text
	case len(locs) > 1:
		var b strings.Builder
		b.WriteString(text[:locs[0][1]])
		prev := locs[0][1]
		for _, loc := range locs[1:] {
			b.WriteString(text[prev:loc[0]])
			prev = loc[1]
		}
		b.WriteString(text[prev:])
		return b.String()
	}

	if placement == PlacementPrepend {
		return safety.DisclaimerSentence + "\n\n" + text
	}
	return strings.TrimRight(text, "\n") + "\n\n**Disclaimer:** " + safety.DisclaimerSentence
}
