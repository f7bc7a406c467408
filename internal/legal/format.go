package legal

import (
	"fmt"
	"strings"
)

const (
	// snippetLength is the number of characters kept from a passage in a citation.
	snippetLength = 200
	// dedupPrefixLength is the snippet prefix length used in the citation dedup key.
	dedupPrefixLength = 50
	// contextSeparator separates passage blocks in the prompt context.
	contextSeparator = "\n---\n"

	unknownContextSource  = "Unknown"
	unknownCitationSource = "Unknown Source"
)

// FormatContext renders passages as numbered, source-labelled blocks for the
// grounded prompt. It returns "" for an empty slice.
func FormatContext(passages []Passage) string {
	if len(passages) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(passages))
	for i, p := range passages {
		src := p.Metadata[MetaSource]
		if src == "" {
			src = unknownContextSource
		}
		blocks = append(blocks, fmt.Sprintf("[Source %d: %s]\n%s\n", i+1, src, p.Text))
	}
	return strings.Join(blocks, contextSeparator)
}

// ExtractCitations derives the citation list for passages. Passages sharing
// a source and the first 50 characters of their snippet collapse into the
// first occurrence. The result is never nil.
func ExtractCitations(passages []Passage) []Citation {
	citations := make([]Citation, 0, len(passages))
	seen := make(map[string]struct{}, len(passages))

	for _, p := range passages {
		src := p.Metadata[MetaSource]
		if src == "" {
			src = unknownCitationSource
		}
		snippet := truncate(p.Text, snippetLength)

		key := src + "\x00" + prefix(snippet, dedupPrefixLength)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		title := p.Metadata[MetaTitle]
		if title == "" {
			title = src
		}
		citations = append(citations, Citation{
			SourceTitle: title,
			Source:      src,
			Snippet:     snippet,
			Section:     p.Metadata[MetaSection],
			Page:        p.Metadata[MetaPage],
		})
	}
	return citations
}

// truncate returns the first n runes of s followed by "..." when s is longer.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// prefix returns at most the first n runes of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
