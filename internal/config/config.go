// Package config layers lawglance settings from a YAML file and a .env file
// onto the process environment. Nothing already in the environment is
// overwritten, so precedence is: process env, then .env, then YAML, then the
// defaults each consumer applies when a variable is unset.
//
// YAML search order:
//  1. --config CLI flag (explicit path; missing is an error)
//  2. LAWGLANCE_CONFIG environment variable
//  3. ~/.lawglance/config.yaml
//  4. ./lawglance.yaml
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config mirrors the YAML file. Every leaf maps onto one environment
// variable listed in envMapping.
type Config struct {
	Model       ModelConfig     `yaml:"model"`
	Embedding   EmbeddingConfig `yaml:"embedding"`
	VectorStore string          `yaml:"vector_store"`
	Qdrant      QdrantConfig    `yaml:"qdrant"`
	Postgres    PostgresConfig  `yaml:"postgres"`
	Retrieval   RetrievalConfig `yaml:"retrieval"`
	Server      ServerConfig    `yaml:"server"`
	Logging     LoggingConfig   `yaml:"logging"`
	QueryLog    QueryLogConfig  `yaml:"query_log"`
	Tracing     TracingConfig   `yaml:"tracing"`
}

// ModelConfig selects and tunes the chat model that writes answers.
type ModelConfig struct {
	// Provider is one of gemini, ollama, openai, azure, ark.
	Provider    string  `yaml:"provider"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`

	Ollama OllamaConfig `yaml:"ollama"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Azure  AzureConfig  `yaml:"azure"`
	Ark    ArkConfig    `yaml:"ark"`
	Gemini GeminiConfig `yaml:"gemini"`
}

type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AzureConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// ArkConfig targets Volcengine Ark. Model is the endpoint ID, not a model
// family name.
type ArkConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// EmbeddingConfig selects the model used to embed statute passages and
// questions. Changing Model or Dimensions requires re-ingesting the corpus.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
}

type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	APIKey     string `yaml:"api_key"`
	TLS        *bool  `yaml:"tls"`
}

type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// RetrievalConfig bounds the retrieval and generation stages.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
	// ScoreThreshold is a pointer so an explicit 0 ("accept everything")
	// can be told apart from an absent key.
	ScoreThreshold *float32 `yaml:"score_threshold"`
	// GenerationTimeout is a Go duration such as "60s".
	GenerationTimeout string `yaml:"generation_timeout"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	APIKey      string `yaml:"api_key"`
	CORSOrigins string `yaml:"cors_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// QueryLogConfig points at the SQLite query log. "disabled" turns it off.
type QueryLogConfig struct {
	DBPath string `yaml:"db_path"`
}

type TracingConfig struct {
	PublicKey string `yaml:"public_key"`
	SecretKey string `yaml:"secret_key"`
	Host      string `yaml:"host"`
}

var (
	knownProviders    = []string{"gemini", "ollama", "openai", "azure", "ark"}
	knownVectorStores = []string{"qdrant", "postgres"}
	knownLogLevels    = []string{"debug", "info", "warn", "error"}
	knownLogFormats   = []string{"json", "text"}
)

// Validate reports every invalid value in the file at once.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(field, v string, allowed []string) {
		if v != "" && !slices.Contains(allowed, v) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %v", field, v, allowed))
		}
	}
	oneOf("model.provider", c.Model.Provider, knownProviders)
	oneOf("embedding.provider", c.Embedding.Provider, knownProviders[:4])
	oneOf("vector_store", c.VectorStore, knownVectorStores)
	oneOf("logging.level", c.Logging.Level, knownLogLevels)
	oneOf("logging.format", c.Logging.Format, knownLogFormats)

	if c.Retrieval.TopK < 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k: must not be negative, got %d", c.Retrieval.TopK))
	}
	if t := c.Retrieval.ScoreThreshold; t != nil && *t > 1 {
		errs = append(errs, fmt.Errorf("retrieval.score_threshold: must be at most 1, got %g", *t))
	}
	if d := c.Retrieval.GenerationTimeout; d != "" {
		if _, err := time.ParseDuration(d); err != nil {
			errs = append(errs, fmt.Errorf("retrieval.generation_timeout: %w", err))
		}
	}
	for field, port := range map[string]int{"qdrant.port": c.Qdrant.Port, "server.port": c.Server.Port} {
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s: %d is out of range", field, port))
		}
	}
	return errors.Join(errs...)
}

// envMapping binds YAML leaves to environment variables. A getter returning
// "" leaves the variable untouched.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_BASE_URL", func(c *Config) string { return c.Model.Ark.BaseURL }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"VECTOR_STORE", func(c *Config) string { return c.VectorStore }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolPtrStr(c.Qdrant.TLS) }},
	{"POSTGRES_DSN", func(c *Config) string { return c.Postgres.DSN }},
	{"POSTGRES_TABLE", func(c *Config) string { return c.Postgres.Table }},
	{"RAG_TOP_K", func(c *Config) string { return intStr(c.Retrieval.TopK) }},
	{"RAG_SCORE_THRESHOLD", func(c *Config) string { return float32PtrStr(c.Retrieval.ScoreThreshold) }},
	{"GENERATION_TIMEOUT", func(c *Config) string { return c.Retrieval.GenerationTimeout }},
	{"LAWGLANCE_HOST", func(c *Config) string { return c.Server.Host }},
	{"LAWGLANCE_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"LAWGLANCE_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"CORS_ORIGINS", func(c *Config) string { return c.Server.CORSOrigins }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LOG_FILE", func(c *Config) string { return c.Logging.File }},
	{"LAWGLANCE_QUERY_LOG", func(c *Config) string { return c.QueryLog.DBPath }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load finds, parses and validates the YAML file, then exports its values to
// the environment without overwriting anything already set. It returns the
// path that was loaded, or "" when no file exists in the implicit search
// locations.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path, err := resolveConfigPath(explicitPath)
	if err != nil {
		return "", err
	}
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	cfg, err := parseFile(path)
	if err != nil {
		return "", err
	}

	applied := 0
	for _, m := range envMapping {
		v := m.value(cfg)
		if v == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue
		}
		if err := os.Setenv(m.envKey, v); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config", slog.String("path", path), slog.Int("keys_applied", applied))
	return path, nil
}

// parseFile reads and validates one YAML config file. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func parseFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path (default ".env") into the
// process environment without overriding variables that are already set.
// A missing file is not an error. Returns the number of keys applied.
func LoadDotEnv(path string, log *slog.Logger) (int, error) {
	if path == "" {
		path = ".env"
	}
	vals, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("config: no .env file found", slog.String("path", path))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for k, v := range vals {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return applied, fmt.Errorf("config: set %s: %w", k, err)
		}
		applied++
	}

	log.Info("config: loaded .env file", slog.String("path", path), slog.Int("keys_applied", applied))
	return applied, nil
}

// resolveConfigPath returns the first config file that exists. An explicit
// path that does not exist is an error; the implicit locations are optional.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config: %s: %w", explicit, err)
		}
		return explicit, nil
	}

	var candidates []string
	if p := os.Getenv("LAWGLANCE_CONFIG"); p != "" {
		candidates = append(candidates, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".lawglance", "config.yaml"))
	}
	candidates = append(candidates, "lawglance.yaml")

	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", nil
}

func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// float32Str formats v with the shortest representation, "" for zero.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

func float32PtrStr(v *float32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*v), 'f', -1, 32)
}

func boolPtrStr(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
