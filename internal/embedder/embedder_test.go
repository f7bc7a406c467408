package embedder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIEmbedder_ReordersByIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(req.Input) != 2 || req.Dimensions != 3 {
			t.Errorf("unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2,2,2]},{"index":0,"embedding":[1,1,1]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "m", Dimensions: 3, HTTPClient: srv.Client()})
	got, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("embeddings not ordered by index: %v", got)
	}
}

func TestOpenAIEmbedder_AzureAuthAndPath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/embed-large/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != "2024-10-21" {
			t.Errorf("api-version = %q", r.URL.Query().Get("api-version"))
		}
		if r.Header.Get("api-key") != "az" {
			t.Errorf("api-key header = %q", r.Header.Get("api-key"))
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL: srv.URL + "/openai", APIKey: "az", Model: "embed-large",
		Azure: true, APIVersion: "2024-10-21", HTTPClient: srv.Client(),
	})
	if _, err := e.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
}

func TestOpenAIEmbedder_ErrorMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "bad", Model: "m", HTTPClient: srv.Client()})
	_, err := e.Embed(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected provider error message, got %v", err)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewOllamaEmbedder: %v", err)
	}
	got, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 || len(got[1]) != 2 {
		t.Errorf("unexpected embeddings: %v", got)
	}
}

func TestOllamaEmbedder_CountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1]]}`))
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "m", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestBackendAndDimensions(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("EMBEDDING_DIMENSIONS", "")

	if got := Backend(); got != "gemini" {
		t.Errorf("Backend() = %q, want gemini", got)
	}
	cases := map[string]int{"gemini": 3072, "ollama": 768, "openai": 1536, "azure": 1536}
	for b, want := range cases {
		if got := DefaultDimensions(b); got != want {
			t.Errorf("DefaultDimensions(%q) = %d, want %d", b, got, want)
		}
	}

	t.Setenv("EMBEDDING_DIMENSIONS", "768")
	if got := DefaultDimensions("gemini"); got != 768 {
		t.Errorf("EMBEDDING_DIMENSIONS override ignored, got %d", got)
	}
}

func TestNewFromEnv_Errors(t *testing.T) {
	cases := []struct {
		provider string
		wantErr  string
	}{
		{"gemini", "GOOGLE_API_KEY"},
		{"openai", "OPENAI_API_KEY"},
		{"azure", "AZURE_OPENAI_API_KEY"},
		{"ark", "no embedding backend"},
		{"bogus", "unknown backend"},
	}
	for _, k := range []string{"EMBEDDING_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "AZURE_OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
	for _, tc := range cases {
		t.Setenv("EMBEDDING_PROVIDER", tc.provider)
		_, err := NewFromEnv(context.Background())
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("%s: expected error containing %q, got %v", tc.provider, tc.wantErr, err)
		}
	}
}

func TestValidateForRAG(t *testing.T) {
	log := slog.Default()

	t.Setenv("VECTOR_STORE", "postgres")
	t.Setenv("POSTGRES_DSN", "")
	if err := ValidateForRAG(log); err == nil || !strings.Contains(err.Error(), "POSTGRES_DSN") {
		t.Errorf("expected POSTGRES_DSN error, got %v", err)
	}

	t.Setenv("VECTOR_STORE", "qdrant")
	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	if err := ValidateForRAG(log); err == nil {
		t.Error("expected missing Gemini key error")
	}

	t.Setenv("GOOGLE_API_KEY", "AIza-test")
	t.Setenv("EMBEDDING_MODEL", "")
	if err := ValidateForRAG(log); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	t.Setenv("VECTOR_STORE", "milvus")
	if err := ValidateForRAG(log); err == nil {
		t.Error("expected unknown VECTOR_STORE error")
	}
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()
	for _, m := range []string{"gemini-embedding-001", "nomic-embed-text", "text-embedding-3-small"} {
		if looksLikeChatModel(m) {
			t.Errorf("%q should not look like a chat model", m)
		}
	}
	for _, m := range []string{"gemini-2.5-flash", "llama3.1", "gpt-4o"} {
		if !looksLikeChatModel(m) {
			t.Errorf("%q should look like a chat model", m)
		}
	}
}

func TestOpenAIEmbedder_SplitsLargeInputs(t *testing.T) {
	t.Parallel()

	var sizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		sizes = append(sizes, len(req.Input))
		var resp openaiEmbedResponse
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(i)}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	texts := make([]string, openaiMaxBatch+3)
	for i := range texts {
		texts[i] = "chunk"
	}
	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk", Model: "m", HTTPClient: srv.Client()})
	got, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != len(texts) {
		t.Fatalf("got %d embeddings, want %d", len(got), len(texts))
	}
	if len(sizes) != 2 || sizes[0] != openaiMaxBatch || sizes[1] != 3 {
		t.Fatalf("unexpected batch sizes %v", sizes)
	}
	if got[openaiMaxBatch][0] != 0 {
		t.Errorf("second batch not aligned: %v", got[openaiMaxBatch])
	}
}

func TestOrderByIndex_Errors(t *testing.T) {
	t.Parallel()

	var short openaiEmbedResponse
	if _, err := orderByIndex(short, 1); err == nil {
		t.Error("expected count mismatch error")
	}

	var dup openaiEmbedResponse
	_ = json.Unmarshal([]byte(`{"data":[{"embedding":[1],"index":0},{"embedding":[2],"index":0}]}`), &dup)
	if _, err := orderByIndex(dup, 2); err == nil || !strings.Contains(err.Error(), "missing embedding for input 1") {
		t.Errorf("expected missing embedding error, got %v", err)
	}

	var bad openaiEmbedResponse
	_ = json.Unmarshal([]byte(`{"data":[{"embedding":[1],"index":5}]}`), &bad)
	if _, err := orderByIndex(bad, 1); err == nil {
		t.Error("expected out of range error")
	}
}

func TestResolve_InheritanceAndOverrides(t *testing.T) {
	for _, k := range []string{
		"EMBEDDING_API_KEY", "EMBEDDING_ENDPOINT", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "OLLAMA_HOST",
	} {
		t.Setenv(k, "")
	}

	_, s, err := resolve("ollama")
	if err != nil || s.endpoint != "http://localhost:11434" || s.model != "nomic-embed-text" {
		t.Fatalf("ollama defaults: %+v, %v", s, err)
	}

	t.Setenv("AZURE_OPENAI_API_KEY", "az-chat")
	if _, _, err := resolve("azure"); err == nil || !strings.Contains(err.Error(), "AZURE_OPENAI_ENDPOINT") {
		t.Fatalf("expected missing endpoint error, got %v", err)
	}

	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://chat.openai.azure.com")
	t.Setenv("EMBEDDING_API_KEY", "az-embed")
	t.Setenv("EMBEDDING_DIMENSIONS", "256")
	_, s, err = resolve("azure")
	if err != nil {
		t.Fatal(err)
	}
	if s.apiKey != "az-embed" || s.endpoint != "https://chat.openai.azure.com" || s.dims != 256 {
		t.Errorf("unexpected azure settings %+v", s)
	}
}
