package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/lawglance-go/internal/logging"
	"github.com/54b3r/lawglance-go/internal/provider"
)

// LLMPinger probes the chat model backend. It prefers the provider's
// zero-cost health endpoint and falls back to a one-message Generate call
// for backends without one.
type LLMPinger struct {
	// health is the provider's metadata probe. May be nil.
	health provider.HealthChecker
	// model is used only when health is nil.
	model model.BaseChatModel
	// name identifies the backend in readiness responses.
	name string
}

// NewLLMPinger constructs an LLMPinger. hc may be nil, in which case m is
// probed with a real generation request.
func NewLLMPinger(m model.BaseChatModel, hc provider.HealthChecker, name string) *LLMPinger {
	return &LLMPinger{model: m, health: hc, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping probes the backend.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if p.health != nil {
		if err := p.health.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", p.name, err)
		}
		return nil
	}
	if p.model == nil {
		return fmt.Errorf("%s: no model configured", p.name)
	}

	logging.FromContext(ctx).Warn("pinger: no health endpoint, probing with a generate call",
		"backend", p.name,
	)
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// pingFunc is satisfied by *rag.QdrantStore and *rag.PostgresStore.
type pingFunc interface {
	Ping(ctx context.Context) error
}

// StorePinger adapts any value with a Ping method into a named Pinger.
type StorePinger struct {
	name  string
	store pingFunc
}

// NewStorePinger wraps store under the given dependency name.
func NewStorePinger(name string, store pingFunc) *StorePinger {
	return &StorePinger{name: name, store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return p.name }

// Ping delegates to the wrapped store.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
