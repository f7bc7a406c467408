package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeConfig writes body to a temp config.yaml and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

// clearEnv unsets keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoad_NoImplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LAWGLANCE_CONFIG", "")
	t.Chdir(t.TempDir())

	path, err := Load("", quietLogger())
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestLoad_FromLawglanceConfigEnv(t *testing.T) {
	p := writeConfig(t, "vector_store: qdrant\n")
	t.Setenv("LAWGLANCE_CONFIG", p)
	clearEnv(t, "VECTOR_STORE")

	path, err := Load("", quietLogger())
	require.NoError(t, err)
	assert.Equal(t, p, path)
	assert.Equal(t, "qdrant", os.Getenv("VECTOR_STORE"))
}

func TestLoad_ExportsYAMLToEnv(t *testing.T) {
	p := writeConfig(t, `
model:
  provider: azure
  max_tokens: 8192
  temperature: 0.3
  azure:
    endpoint: https://lawglance.openai.azure.com
    deployment: gpt-4o
    api_version: "2025-04-01-preview"
embedding:
  provider: ollama
  model: nomic-embed-text
vector_store: postgres
postgres:
  table: statute_passages
qdrant:
  tls: false
retrieval:
  top_k: 5
  score_threshold: 0
  generation_timeout: 45s
server:
  port: 9090
query_log:
  db_path: /var/lib/lawglance/queries.db
logging:
  level: debug
  format: text
`)

	want := map[string]string{
		"MODEL_PROVIDER":           "azure",
		"MODEL_MAX_TOKENS":         "8192",
		"MODEL_TEMPERATURE":        "0.3",
		"AZURE_OPENAI_ENDPOINT":    "https://lawglance.openai.azure.com",
		"AZURE_OPENAI_DEPLOYMENT":  "gpt-4o",
		"AZURE_OPENAI_API_VERSION": "2025-04-01-preview",
		"EMBEDDING_PROVIDER":       "ollama",
		"EMBEDDING_MODEL":          "nomic-embed-text",
		"VECTOR_STORE":             "postgres",
		"POSTGRES_TABLE":           "statute_passages",
		"QDRANT_TLS":               "false",
		"RAG_TOP_K":                "5",
		"RAG_SCORE_THRESHOLD":      "0",
		"GENERATION_TIMEOUT":       "45s",
		"LAWGLANCE_PORT":           "9090",
		"LAWGLANCE_QUERY_LOG":      "/var/lib/lawglance/queries.db",
		"LOG_LEVEL":                "debug",
		"LOG_FORMAT":               "text",
	}
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	clearEnv(t, append(keys, "QDRANT_HOST", "EMBEDDING_DIMENSIONS")...)

	loaded, err := Load(p, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, p, loaded)

	for k, v := range want {
		assert.Equal(t, v, os.Getenv(k), k)
	}
	_, set := os.LookupEnv("QDRANT_HOST")
	assert.False(t, set, "absent YAML keys leave the environment alone")
	_, set = os.LookupEnv("EMBEDDING_DIMENSIONS")
	assert.False(t, set)
}

func TestLoad_EnvWins(t *testing.T) {
	p := writeConfig(t, "model:\n  provider: ollama\nretrieval:\n  top_k: 3\n")
	t.Setenv("MODEL_PROVIDER", "gemini")
	clearEnv(t, "RAG_TOP_K")

	_, err := Load(p, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "gemini", os.Getenv("MODEL_PROVIDER"))
	assert.Equal(t, "3", os.Getenv("RAG_TOP_K"))
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed yaml", "{{invalid yaml", "failed to parse"},
		{"unknown key", "vectorstore: qdrant\n", "failed to parse"},
		{"unknown provider", "model:\n  provider: claude\n", "model.provider"},
		{"ark cannot embed", "embedding:\n  provider: ark\n", "embedding.provider"},
		{"unknown vector store", "vector_store: chroma\n", "vector_store"},
		{"negative top_k", "retrieval:\n  top_k: -2\n", "retrieval.top_k"},
		{"threshold above one", "retrieval:\n  score_threshold: 1.5\n", "retrieval.score_threshold"},
		{"bad timeout", "retrieval:\n  generation_timeout: soon\n", "retrieval.generation_timeout"},
		{"port out of range", "server:\n  port: 70000\n", "server.port"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t, "MODEL_PROVIDER", "VECTOR_STORE")
			_, err := Load(writeConfig(t, tc.body), quietLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			_, set := os.LookupEnv("MODEL_PROVIDER")
			assert.False(t, set, "nothing is exported from an invalid file")
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := &Config{VectorStore: "chroma", Logging: LoggingConfig{Level: "loud"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector_store")
	assert.Contains(t, err.Error(), "logging.level")

	assert.NoError(t, (&Config{}).Validate())
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, ""), quietLogger())
	assert.NoError(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "# local overrides\nGOOGLE_API_KEY=AIza-from-dotenv\nGEMINI_MODEL=gemini-2.5-pro\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	clearEnv(t, "GOOGLE_API_KEY")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash")

	applied, err := LoadDotEnv(envPath, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, "AIza-from-dotenv", os.Getenv("GOOGLE_API_KEY"))
	assert.Equal(t, "gemini-2.5-flash", os.Getenv("GEMINI_MODEL"), "process env wins over .env")
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	t.Parallel()

	applied, err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"), quietLogger())
	assert.NoError(t, err)
	assert.Zero(t, applied)
}

func TestFormatters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", float32Str(0))
	assert.Equal(t, "0.45", float32Str(0.45))
	assert.Equal(t, "1", float32Str(1))
	assert.Equal(t, "", float32PtrStr(nil))
	zero := float32(0)
	assert.Equal(t, "0", float32PtrStr(&zero))
	neg := float32(-1)
	assert.Equal(t, "-1", float32PtrStr(&neg))
	assert.Equal(t, "", boolPtrStr(nil))
	f := false
	assert.Equal(t, "false", boolPtrStr(&f))
	assert.Equal(t, "", intStr(0))
	assert.Equal(t, "12", intStr(12))
}
