// Package budget estimates prompt sizes in tokens. Lawglance talks to several
// LLM backends with different tokenizers, so the estimate is a character
// heuristic (1 token ≈ 4 characters) rather than a real tokenizer. The
// numbers are used for logging and metrics only; nothing is truncated here.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// messageOverhead is the per-message framing cost most chat APIs charge.
	messageOverhead = 4
)

// Estimate returns a rough token count for s. Characters are counted as
// runes so Devanagari statute text is not over-counted by its byte length.
func Estimate(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	if t := n / charsPerToken; t > 0 {
		return t
	}
	return 1
}

// EstimateMessages returns the estimated total token count for msgs,
// summing role and content plus a fixed overhead per message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		if m == nil {
			continue
		}
		total += messageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}
