package legal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/lawglance-go/internal/logging"
	"github.com/54b3r/lawglance-go/internal/rag"
	"github.com/54b3r/lawglance-go/internal/safety"
)

// Config holds the dependencies required to construct a Pipeline.
type Config struct {
	// Classifier is the safety triage. Defaults to safety.Default() if nil.
	Classifier *safety.Classifier

	// Retriever is the vector search capability. Required.
	Retriever rag.Retriever

	// LLM is the text generation capability. Required.
	LLM LLM

	// TopK is the number of passages requested per query.
	// Defaults to DefaultTopK if zero.
	TopK int

	// ScoreThreshold is the minimum similarity for a passage. Nil selects
	// DefaultScoreThreshold; an explicit zero disables the cut-off.
	ScoreThreshold *float32

	// GenerationTimeout bounds each LLM call. Defaults to
	// DefaultGenerationTimeout if zero.
	GenerationTimeout time.Duration

	// Provider labels direct replies with the backend that produced them.
	Provider string
}

// Pipeline answers legal questions. It is immutable after construction and
// safe for concurrent use.
type Pipeline struct {
	// classifier gates generation on the safety label.
	classifier *safety.Classifier
	// retriever fetches passages for grounded answers.
	retriever *ContextRetriever
	// generator runs the grounded/generic prompt state machine.
	generator *AnswerGenerator
	// llm is used directly by the direct-reply path.
	llm LLM
	// timeout bounds the direct-reply LLM call.
	timeout time.Duration
	// provider is reported in direct replies.
	provider string
}

// Reply is the result of the direct-reply path.
type Reply struct {
	// Text is the answer, with the disclaimer enforced.
	Text string `json:"reply"`
	// Safety is the classifier label for the message.
	Safety safety.Label `json:"safety"`
	// Provider is "rules" for canned responses, otherwise the LLM backend.
	Provider string `json:"provider"`
}

// New constructs a Pipeline from cfg.
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("legal: config must not be nil")
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = safety.Default()
	}
	threshold := float32(DefaultScoreThreshold)
	if cfg.ScoreThreshold != nil {
		threshold = *cfg.ScoreThreshold
	}

	retriever, err := NewContextRetriever(cfg.Retriever, cfg.TopK, threshold)
	if err != nil {
		return nil, err
	}
	generator, err := NewAnswerGenerator(cfg.LLM, cfg.GenerationTimeout)
	if err != nil {
		return nil, err
	}

	provider := cfg.Provider
	if provider == "" {
		provider = "llm"
	}

	return &Pipeline{
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		llm:        cfg.LLM,
		timeout:    generator.timeout,
		provider:   provider,
	}, nil
}

// Classify exposes the pipeline's safety label for text.
func (p *Pipeline) Classify(text string) safety.Label {
	return p.classifier.Classify(text)
}

// Answer runs the full pipeline for query. Validation errors are returned
// before any external call. Blocked queries get a canned response and never
// reach the retriever or the LLM. Retrieval and generation failures are
// returned as errors and are never converted into an answer.
func (p *Pipeline) Answer(ctx context.Context, query string) (Result, error) {
	q, err := ValidateQuery(query)
	if err != nil {
		return Result{}, err
	}
	log := logging.FromContext(ctx).With(slog.String("query", preview(q, 50)))

	label := p.classifier.Classify(q)
	if label.Blocked() {
		log.Info("query blocked by safety classifier", slog.String("safety", string(label)))
		return Result{
			Answer:    safety.CannedResponse(label),
			Citations: []Citation{},
			Safety:    label,
			Path:      PathSafetyBlocked,
		}, nil
	}

	passages, err := p.retriever.Retrieve(ctx, q)
	if err != nil {
		return Result{}, err
	}
	log.Debug("context retrieved", slog.Int("passages", len(passages)))

	gen, err := p.generator.Generate(logging.WithLogger(ctx, log), q, FormatContext(passages))
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Answer:     EnsureDisclaimer(gen.Text, PlacementAppend),
		Citations:  []Citation{},
		HasContext: len(passages) > 0,
		Safety:     label,
		Path:       gen.Path,
	}
	if res.HasContext {
		res.Citations = ExtractCitations(passages)
	}

	log.Info("query answered",
		slog.String("path", string(res.Path)),
		slog.Bool("has_context", res.HasContext),
		slog.Int("citations", len(res.Citations)),
		slog.Int("llm_calls", gen.Calls),
	)
	return res, nil
}

// Reply answers message without retrieval: safety check, then a single LLM
// call with the direct-reply style prompt, with the disclaimer prepended
// when the model left it out.
func (p *Pipeline) Reply(ctx context.Context, message string) (Reply, error) {
	msg, err := ValidateQuery(message)
	if err != nil {
		return Reply{}, err
	}

	label := p.classifier.Classify(msg)
	if label.Blocked() {
		return Reply{Text: safety.CannedResponse(label), Safety: label, Provider: "rules"}, nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	text, err := p.llm.Generate(ctx, DirectReplyPrompt(msg))
	if err != nil {
		return Reply{}, fmt.Errorf("legal: direct reply: %w", err)
	}

	return Reply{
		Text:     EnsureDisclaimer(text, PlacementPrepend),
		Safety:   label,
		Provider: p.provider,
	}, nil
}

// preview truncates s to n runes for logging.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
