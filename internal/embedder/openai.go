// Package embedder provides implementations of the rag.Embedder interface for
// converting statute passages and user questions into dense vectors. Gemini
// and Ollama go through their official clients; OpenAI and Azure OpenAI use
// the embeddings REST endpoint directly.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OpenAIEmbedder calls the OpenAI embeddings endpoint, or its Azure OpenAI
// equivalent when azure is set. Safe for concurrent use.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string // Azure: the deployment name
	dimensions int    // 0 keeps the model's native size
	azure      bool
	apiVersion string
	client     *http.Client
}

// OpenAIConfig configures NewOpenAIEmbedder. BaseURL is
// "https://api.openai.com/v1" for OpenAI and
// "https://<resource>.openai.azure.com/openai" for Azure. Azure requests
// authenticate with the api-key header and carry APIVersion as a query
// parameter; OpenAI requests use a Bearer token.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Azure      bool
	APIVersion string
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

func NewOpenAIEmbedder(cfg *OpenAIConfig) *OpenAIEmbedder {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &OpenAIEmbedder{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		azure:      cfg.Azure,
		apiVersion: cfg.APIVersion,
		client:     hc,
	}
}

type openaiEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// openaiEmbedResponse covers both success and error bodies.
type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// openaiMaxBatch caps inputs per request. Both OpenAI and Azure reject
// requests above 2048 inputs; smaller batches keep payloads well under the
// request size limit for statute-length chunks.
const openaiMaxBatch = 256

// Embed converts texts into embeddings, splitting them into requests of at
// most openaiMaxBatch inputs. The returned slice is parallel to texts.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += openaiMaxBatch {
		end := min(start+openaiMaxBatch, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// embedBatch sends one embeddings request.
func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body := openaiEmbedRequest{
		Input:      texts,
		Model:      e.model,
		Dimensions: e.dimensions,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.azure {
		req.Header.Set("api-key", e.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result openaiEmbedResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && result.Error != nil && result.Error.Message != "" {
			return nil, fmt.Errorf("openai embedder: HTTP %d: %s", resp.StatusCode, result.Error.Message)
		}
		return nil, fmt.Errorf("openai embedder: HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("openai embedder: decode response: %w", decodeErr)
	}

	return orderByIndex(result, len(texts))
}

// endpoint returns the embeddings URL for the configured flavour.
func (e *OpenAIEmbedder) endpoint() string {
	if e.azure {
		return e.baseURL + "/deployments/" + url.PathEscape(e.model) + "/embeddings?api-version=" + url.QueryEscape(e.apiVersion)
	}
	return e.baseURL + "/embeddings"
}

// orderByIndex places each returned vector at its input position. The API
// does not guarantee response order.
func orderByIndex(result openaiEmbedResponse, n int) ([][]float32, error) {
	if len(result.Data) != n {
		return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", n, len(result.Data))
	}
	embeddings := make([][]float32, n)
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= n {
			return nil, fmt.Errorf("openai embedder: index %d out of range [0, %d)", d.Index, n)
		}
		embeddings[d.Index] = d.Embedding
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("openai embedder: missing embedding for input %d", i)
		}
	}
	return embeddings, nil
}
