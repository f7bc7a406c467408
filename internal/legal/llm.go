package legal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/lawglance-go/internal/budget"
	"github.com/54b3r/lawglance-go/internal/logging"
)

// LLM is the text generation capability used by the pipeline.
// Implementations must be safe to call from multiple goroutines.
type LLM interface {
	// Generate returns the model's completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatLLM adapts an Eino chat model to the LLM interface by sending the
// prompt as a single user message.
type ChatLLM struct {
	// model is the provider-specific chat model.
	model model.BaseChatModel
	// name labels the run in tracing callbacks.
	name string
}

// NewChatLLM wraps m. name identifies the backend in traces (e.g. "gemini").
func NewChatLLM(m model.BaseChatModel, name string) (*ChatLLM, error) {
	if m == nil {
		return nil, fmt.Errorf("legal: chat model must not be nil")
	}
	return &ChatLLM{model: m, name: name}, nil
}

// Generate sends prompt to the chat model and returns the trimmed reply.
// Global Eino callback handlers (e.g. Langfuse) observe each call.
func (c *ChatLLM) Generate(ctx context.Context, prompt string) (string, error) {
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      c.name,
		Type:      "LegalAnswer",
		Component: components.ComponentOfChatModel,
	})

	msgs := []*schema.Message{schema.UserMessage(prompt)}
	logging.FromContext(ctx).Debug("chat model request",
		slog.String("backend", c.name),
		slog.Int("input_tokens_est", budget.EstimateMessages(msgs)),
	)

	msg, err := c.model.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("legal: chat model generate: %w", err)
	}
	if msg == nil {
		return "", errors.New("legal: chat model returned nil message")
	}
	return strings.TrimSpace(msg.Content), nil
}
