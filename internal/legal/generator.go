package legal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/lawglance-go/internal/budget"
	"github.com/54b3r/lawglance-go/internal/logging"
)

// DefaultGenerationTimeout bounds each individual LLM call.
const DefaultGenerationTimeout = 60 * time.Second

// insufficientMarkers are matched case-insensitively against the grounded
// answer. A hit means the model declined to use the supplied context.
var insufficientMarkers = []string{
	"don't have enough",
	"insufficient information",
}

// apostrophes folds typographic apostrophes so "don’t" matches "don't".
var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// Generation is the raw output of the answer state machine, before the
// disclaimer is enforced.
type Generation struct {
	// Text is the model output that will become the answer.
	Text string
	// Path is the branch that produced Text.
	Path Path
	// Calls is the number of LLM invocations made (1 or 2).
	Calls int
}

// AnswerGenerator chooses between the grounded and generic prompts, calls
// the LLM, and retries once with the generic prompt when the grounded
// answer reports insufficient context.
type AnswerGenerator struct {
	// llm is the text generation capability.
	llm LLM
	// timeout bounds each LLM call. Zero disables the per-call deadline.
	timeout time.Duration
}

// NewAnswerGenerator constructs an AnswerGenerator. A zero timeout selects
// DefaultGenerationTimeout; a negative timeout disables it.
func NewAnswerGenerator(llm LLM, timeout time.Duration) (*AnswerGenerator, error) {
	if llm == nil {
		return nil, fmt.Errorf("legal: llm must not be nil")
	}
	if timeout == 0 {
		timeout = DefaultGenerationTimeout
	}
	if timeout < 0 {
		timeout = 0
	}
	return &AnswerGenerator{llm: llm, timeout: timeout}, nil
}

// Generate runs the state machine for question against contextText.
// LLM failures are returned unchanged in meaning (wrapped); quality
// shortfalls are handled locally by the single generic retry.
func (g *AnswerGenerator) Generate(ctx context.Context, question, contextText string) (Generation, error) {
	log := logging.FromContext(ctx)

	if contextText == "" {
		text, err := g.call(ctx, GenericPrompt(question))
		if err != nil {
			return Generation{}, err
		}
		return Generation{Text: text, Path: PathNoContext, Calls: 1}, nil
	}

	grounded, err := g.call(ctx, GroundedPrompt(contextText, question))
	if err != nil {
		return Generation{}, err
	}
	if !ReportsInsufficientContext(grounded) {
		return Generation{Text: grounded, Path: PathGrounded, Calls: 1}, nil
	}

	log.Info("grounded answer reported insufficient context, retrying without context")
	fallback, err := g.call(ctx, GenericPrompt(question))
	if err != nil {
		return Generation{}, err
	}
	return Generation{Text: fallback, Path: PathInsufficientRetry, Calls: 2}, nil
}

// call invokes the LLM once under the per-call timeout.
func (g *AnswerGenerator) call(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	logging.FromContext(ctx).Debug("llm call",
		slog.Int("prompt_chars", len(prompt)),
		slog.Int("prompt_tokens_est", budget.Estimate(prompt)),
	)

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("legal: generate answer: %w", err)
	}
	return text, nil
}

// ReportsInsufficientContext reports whether text contains one of the
// markers a model uses to say the supplied context did not answer the
// question. It is a substring heuristic and will misfire on answers that
// quote those phrases for other reasons.
func ReportsInsufficientContext(text string) bool {
	t := strings.ToLower(apostrophes.Replace(text))
	for _, m := range insufficientMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}
