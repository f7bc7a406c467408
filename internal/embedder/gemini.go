package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiBatchSize is the maximum number of contents per EmbedContent call.
const geminiBatchSize = 100

// GeminiEmbedder implements rag.Embedder using the Gemini embedding API.
// It is safe for concurrent use.
type GeminiEmbedder struct {
	// models is the genai models service used for EmbedContent.
	models *genai.Models
	// model is the embedding model name (e.g. "gemini-embedding-001").
	model string
	// dimensions truncates output vectors when > 0.
	dimensions int32
}

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// APIKey is the Google AI Studio API key.
	APIKey string
	// Model is the embedding model name.
	Model string
	// Dimensions is the requested output dimensionality (0 = model default).
	Dimensions int
}

// NewGeminiEmbedder constructs a GeminiEmbedder backed by the Gemini API.
func NewGeminiEmbedder(ctx context.Context, cfg *GeminiConfig) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: create client: %w", err)
	}
	return &GeminiEmbedder{
		models:     client.Models,
		model:      cfg.Model,
		dimensions: int32(cfg.Dimensions),
	}, nil
}

// Embed converts a batch of texts into their corresponding embeddings,
// splitting the request into API-sized batches.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchSize {
		end := min(start+geminiBatchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}

		var cfg *genai.EmbedContentConfig
		if e.dimensions > 0 {
			dims := e.dimensions
			cfg = &genai.EmbedContentConfig{OutputDimensionality: &dims}
		}

		resp, err := e.models.EmbedContent(ctx, e.model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini embedder: expected %d embeddings, got %d", end-start, len(resp.Embeddings))
		}
		for _, emb := range resp.Embeddings {
			out = append(out, emb.Values)
		}
	}
	return out, nil
}
