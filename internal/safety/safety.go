// Package safety implements the pre-generation safety triage for user
// questions. A Classifier matches case-folded text against two tiers of
// regular expressions and returns a Label; callers must not invoke the LLM
// when the label is anything other than LabelOK.
package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// Label is the outcome of classifying a single user message.
type Label string

const (
	// LabelOK means no safety pattern matched and generation may proceed.
	LabelOK Label = "ok"
	// LabelIllegal means the message asks for help with an illegal or harmful act.
	LabelIllegal Label = "illegal"
	// LabelEmergency means the message suggests someone may be in danger.
	LabelEmergency Label = "emergency"
)

// Blocked reports whether l short-circuits the pipeline with a canned response.
func (l Label) Blocked() bool {
	return l == LabelIllegal || l == LabelEmergency
}

// DisclaimerSentence is the mandatory sentence carried by every non-blocked
// answer and by both canned responses.
const DisclaimerSentence = "This is general information, not legal advice."

// Canned responses returned instead of a generated answer.
const (
	illegalResponse = "I cannot provide guidance on illegal activities. " +
		"If you have questions about legal compliance or your rights, I'm happy to help with that instead.\n" +
		DisclaimerSentence + "\n" +
		"If you explain what happened, I can suggest lawful options (reporting channels, evidence preservation, and next steps)."

	emergencyResponse = "If you are in immediate danger, contact emergency services now.\n" +
		"In India you can call 112.\n" +
		DisclaimerSentence
)

// DefaultEmergencyPatterns is the emergency tier. It is checked first.
var DefaultEmergencyPatterns = []string{
	`\bkill(ing)?\s+myself\b`,
	`\bsuicid(e|al)\b`,
	`\bself[\s-]?harm\b`,
	`\bend\s+my\s+life\b`,
	`\bviolence\b`,
	`\bassault(ed|ing)?\b`,
	`\brape(d)?\b`,
	`\bstalk(ing|ed|er)?\b`,
}

// DefaultIllegalPatterns is the illegal tier, merged from the keyword list
// used by the grounded prompt and the regexes used by the direct-reply path.
var DefaultIllegalPatterns = []string{
	`\bforg(e|ed|ing|ery)\b`,
	`\bfake\b.*\b(doc|docs|document|documents|evidence|certificate)\b`,
	`\bbrib(e|es|ed|ing|ery)\b`,
	`\bblackmail(ing)?\b`,
	`\bextort(ion|ing)?\b`,
	`\bthreaten(ing)?\b`,
	`\bcommit(ting)?\s+fraud\b`,
	`\bevad(e|ing)\b`,
	`\btax\s+evasion\b`,
	`\bavoid(ing)?\s+arrest\b`,
	`\b(hide|hiding|cover\s+up|covering\s+up)\s+(a\s+|the\s+|my\s+)?crime\b`,
	`\bget\s+away\s+with\b`,
	`\bbreak(ing)?\s+(the\s+)?law\b`,
	`\bhack(ing|ed)?\b`,
	`\bsmuggl(e|ing|ed)\b`,
	`\billegal\s+drugs?\b`,
	`\bmoney\s+launder(ing)?\b`,
}

// Classifier assigns a Label to user text. It holds only compiled patterns
// and is safe for concurrent use.
type Classifier struct {
	// emergency is the first-priority pattern tier.
	emergency []*regexp.Regexp
	// illegal is consulted only when no emergency pattern matched.
	illegal []*regexp.Regexp
}

// New compiles the given pattern lists into a Classifier. Patterns are
// matched against lower-cased input, so they should be written in lower case.
func New(emergency, illegal []string) (*Classifier, error) {
	em, err := compileAll(emergency)
	if err != nil {
		return nil, fmt.Errorf("safety: emergency patterns: %w", err)
	}
	il, err := compileAll(illegal)
	if err != nil {
		return nil, fmt.Errorf("safety: illegal patterns: %w", err)
	}
	return &Classifier{emergency: em, illegal: il}, nil
}

// Default returns a Classifier built from the default pattern lists.
func Default() *Classifier {
	c, err := New(DefaultEmergencyPatterns, DefaultIllegalPatterns)
	if err != nil {
		panic(err) // the default lists are constants
	}
	return c
}

// Classify returns the safety label for text. Empty or whitespace-only
// input is always LabelOK.
func (c *Classifier) Classify(text string) Label {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return LabelOK
	}
	if matchAny(c.emergency, t) {
		return LabelEmergency
	}
	if matchAny(c.illegal, t) {
		return LabelIllegal
	}
	return LabelOK
}

// CannedResponse returns the fixed reply for a blocked label, or an empty
// string for LabelOK.
func CannedResponse(l Label) string {
	switch l {
	case LabelEmergency:
		return emergencyResponse
	case LabelIllegal:
		return illegalResponse
	default:
		return ""
	}
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
