package embedder

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/54b3r/lawglance-go/internal/rag"
)

// settings is the resolved configuration for one embedder.
type settings struct {
	apiKey   string
	endpoint string
	model    string
	dims     int
}

// backend describes how an embedding provider is configured from the
// environment. Key and endpoint variables are tried in order; the
// EMBEDDING_* override always comes first.
type backend struct {
	defaultModel    string
	dims            int
	keyVars         []string
	endpointVars    []string
	defaultEndpoint string
	build           func(ctx context.Context, s settings) (rag.Embedder, error)
}

var backends = map[string]backend{
	"gemini": {
		defaultModel: "gemini-embedding-001",
		dims:         3072,
		keyVars:      []string{"EMBEDDING_API_KEY", "GOOGLE_API_KEY"},
		build: func(ctx context.Context, s settings) (rag.Embedder, error) {
			return NewGeminiEmbedder(ctx, &GeminiConfig{APIKey: s.apiKey, Model: s.model, Dimensions: envInt("EMBEDDING_DIMENSIONS", 0)})
		},
	},
	"ollama": {
		// nomic-embed-text; other Ollama models need EMBEDDING_DIMENSIONS.
		defaultModel:    "nomic-embed-text",
		dims:            768,
		endpointVars:    []string{"EMBEDDING_ENDPOINT", "OLLAMA_HOST"},
		defaultEndpoint: "http://localhost:11434",
		build: func(_ context.Context, s settings) (rag.Embedder, error) {
			return NewOllamaEmbedder(&OllamaConfig{Host: s.endpoint, Model: s.model})
		},
	},
	"openai": {
		defaultModel:    "text-embedding-3-small",
		dims:            1536,
		keyVars:         []string{"EMBEDDING_API_KEY", "OPENAI_API_KEY"},
		endpointVars:    []string{"EMBEDDING_ENDPOINT"},
		defaultEndpoint: "https://api.openai.com/v1",
		build: func(_ context.Context, s settings) (rag.Embedder, error) {
			return NewOpenAIEmbedder(&OpenAIConfig{BaseURL: s.endpoint, APIKey: s.apiKey, Model: s.model, Dimensions: s.dims}), nil
		},
	},
	"azure": {
		defaultModel: "text-embedding-3-small",
		dims:         1536,
		keyVars:      []string{"EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY"},
		endpointVars: []string{"EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT"},
		build: func(_ context.Context, s settings) (rag.Embedder, error) {
			return NewOpenAIEmbedder(&OpenAIConfig{
				BaseURL:    strings.TrimSuffix(s.endpoint, "/") + "/openai",
				APIKey:     s.apiKey,
				Model:      s.model,
				Dimensions: s.dims,
				Azure:      true,
				APIVersion: envOr("AZURE_OPENAI_API_VERSION", "2024-10-21"),
			}), nil
		},
	},
}

// Backend resolves the effective embedding backend: EMBEDDING_PROVIDER, then
// MODEL_PROVIDER, then gemini.
func Backend() string {
	if b := os.Getenv("EMBEDDING_PROVIDER"); b != "" {
		return b
	}
	return envOr("MODEL_PROVIDER", "gemini")
}

// DefaultDimensions returns the vector size the named backend produces, for
// sizing the Qdrant collection or pgvector column. EMBEDDING_DIMENSIONS
// always wins; unknown backends get the OpenAI size.
func DefaultDimensions(name string) int {
	if v := envInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	if b, ok := backends[name]; ok {
		return b.dims
	}
	return backends["openai"].dims
}

// resolve reads the environment for the named backend and reports missing
// credentials or endpoints.
func resolve(name string) (backend, settings, error) {
	b, ok := backends[name]
	if !ok {
		if name == "ark" {
			return b, settings{}, fmt.Errorf("embedder: ark has no embedding backend; set EMBEDDING_PROVIDER to one of %s", validBackends())
		}
		return b, settings{}, fmt.Errorf("embedder: unknown backend %q (valid: %s)", name, validBackends())
	}

	s := settings{
		model:    envOr("EMBEDDING_MODEL", b.defaultModel),
		dims:     envInt("EMBEDDING_DIMENSIONS", b.dims),
		apiKey:   firstEnv(b.keyVars),
		endpoint: firstEnv(b.endpointVars),
	}
	if len(b.keyVars) > 0 && s.apiKey == "" {
		return b, s, fmt.Errorf("embedder: %s requires %s", name, strings.Join(b.keyVars, " or "))
	}
	if s.endpoint == "" {
		s.endpoint = b.defaultEndpoint
	}
	if len(b.endpointVars) > 0 && s.endpoint == "" {
		return b, s, fmt.Errorf("embedder: %s requires %s", name, strings.Join(b.endpointVars, " or "))
	}
	return b, s, nil
}

// NewFromEnv builds the embedder selected by Backend. Credentials and
// endpoints are inherited from the chat provider's variables unless the
// EMBEDDING_API_KEY, EMBEDDING_ENDPOINT, EMBEDDING_MODEL or
// EMBEDDING_DIMENSIONS overrides are set.
func NewFromEnv(ctx context.Context) (rag.Embedder, error) {
	b, s, err := resolve(Backend())
	if err != nil {
		return nil, err
	}
	return b.build(ctx, s)
}

func validBackends() string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func firstEnv(keys []string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if i, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return i
	}
	return fallback
}
