package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"
)

// HealthChecker probes a backend without spending tokens.
type HealthChecker interface {
	// HealthCheck returns nil when the backend is reachable and the
	// configured credentials are accepted.
	HealthCheck(ctx context.Context) error
}

// HealthCheckFor returns a zero-cost HealthChecker for cfg's backend, or nil
// when the backend has no cheap probe and callers must fall back to a
// generate call.
func HealthCheckFor(cfg *Config) HealthChecker {
	switch cfg.Backend {
	case BackendGemini:
		return &geminiHealth{apiKey: cfg.Gemini.APIKey, model: cfg.Gemini.Model}
	case BackendOllama:
		return &ollamaHealth{host: cfg.Ollama.Host}
	case BackendOpenAI:
		return &httpHealth{
			url:    "https://api.openai.com/v1/models",
			header: "Authorization",
			value:  "Bearer " + cfg.OpenAI.APIKey,
		}
	case BackendAzure:
		az := cfg.AzureOpenAI
		return &httpHealth{
			url: fmt.Sprintf("%s/openai/models?api-version=%s",
				strings.TrimRight(az.Endpoint, "/"), url.QueryEscape(az.APIVersion)),
			header: "api-key",
			value:  az.APIKey,
		}
	default:
		return nil
	}
}

// geminiHealth fetches the configured model's metadata.
type geminiHealth struct {
	apiKey string
	model  string
}

func (g *geminiHealth) HealthCheck(ctx context.Context) error {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	if _, err := client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini model %q: %w", g.model, err)
	}
	return nil
}

// ollamaHealth calls the Ollama heartbeat endpoint.
type ollamaHealth struct {
	host string
}

func (o *ollamaHealth) HealthCheck(ctx context.Context) error {
	u, err := url.Parse(o.host)
	if err != nil {
		return fmt.Errorf("ollama host %q: %w", o.host, err)
	}
	if err := api.NewClient(u, http.DefaultClient).Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}

// httpHealth issues an authenticated GET and expects a 2xx response. Used
// for OpenAI-compatible APIs, whose model listing endpoint is free.
type httpHealth struct {
	url    string
	header string
	value  string
	client *http.Client
}

func (h *httpHealth) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(h.header, h.value)

	client := h.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
