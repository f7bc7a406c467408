package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/lawglance-go/internal/embedder"
	"github.com/54b3r/lawglance-go/internal/legal"
	"github.com/54b3r/lawglance-go/internal/provider"
	"github.com/54b3r/lawglance-go/internal/rag"
	"github.com/54b3r/lawglance-go/internal/server"
	"github.com/54b3r/lawglance-go/internal/store"
)

// vectorBackend bundles an opened vector store with its readiness probe.
type vectorBackend struct {
	store  rag.VectorStore
	pinger server.Pinger
	name   string
}

// openVectorStore connects to the store selected by VECTOR_STORE
// (qdrant or postgres). The collection or table is created when missing,
// sized for the configured embedding backend.
func openVectorStore(ctx context.Context, log *slog.Logger) (*vectorBackend, error) {
	dims := embedder.DefaultDimensions(embedder.Backend())

	switch kind := strings.ToLower(getEnvOrDefault("VECTOR_STORE", "qdrant")); kind {
	case "qdrant":
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		qs, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "lawglance"),
			VectorSize: uint64(dims), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("vector store ready", slog.String("store", kind), slog.String("host", host), slog.Int("port", port))
		return &vectorBackend{store: qs, pinger: server.NewStorePinger(kind, qs), name: kind}, nil

	case "postgres":
		ps, err := rag.NewPostgresStore(ctx, &rag.PostgresConfig{
			DSN:        os.Getenv("POSTGRES_DSN"),
			Table:      os.Getenv("POSTGRES_TABLE"),
			VectorSize: dims,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		log.Info("vector store ready", slog.String("store", kind))
		return &vectorBackend{store: ps, pinger: server.NewStorePinger("postgres", ps), name: kind}, nil

	default:
		return nil, fmt.Errorf("unknown VECTOR_STORE %q (want qdrant or postgres)", kind)
	}
}

// pipelineDeps carries everything built alongside the legal pipeline so
// callers can wire probes and release resources.
type pipelineDeps struct {
	pipeline    *legal.Pipeline
	chatModel   model.BaseChatModel
	providerCfg *provider.Config
	vector      *vectorBackend
}

// Close releases the vector store connection.
func (d *pipelineDeps) Close() {
	if d.vector != nil {
		_ = d.vector.store.Close()
	}
}

// buildPipeline constructs the chat model, embedder, vector store and the
// legal pipeline from the environment.
func buildPipeline(ctx context.Context, log *slog.Logger) (*pipelineDeps, error) {
	chatModel, providerCfg, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.ModelName()),
	)

	if err := embedder.ValidateForRAG(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	vb, err := openVectorStore(ctx, log)
	if err != nil {
		return nil, err
	}
	deps := &pipelineDeps{chatModel: chatModel, providerCfg: providerCfg, vector: vb}

	topK := getEnvInt("RAG_TOP_K", legal.DefaultTopK)
	retriever, err := rag.NewRetriever(emb, vb.store, topK)
	if err != nil {
		deps.Close()
		return nil, err
	}

	llm, err := legal.NewChatLLM(chatModel, string(providerCfg.Backend))
	if err != nil {
		deps.Close()
		return nil, err
	}

	p, err := legal.New(&legal.Config{
		Retriever:         retriever,
		LLM:               llm,
		TopK:              topK,
		ScoreThreshold:    getEnvFloat32Ptr("RAG_SCORE_THRESHOLD"),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 0),
		Provider:          string(providerCfg.Backend),
	})
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialise pipeline: %w", err)
	}
	deps.pipeline = p
	return deps, nil
}

// buildPingers returns the readiness probes for the LLM backend and the
// vector store.
func buildPingers(deps *pipelineDeps) []server.Pinger {
	backend := string(deps.providerCfg.Backend)
	pingers := []server.Pinger{
		server.NewLLMPinger(deps.chatModel, provider.HealthCheckFor(deps.providerCfg), backend),
	}
	if deps.vector != nil {
		pingers = append(pingers, deps.vector.pinger)
	}
	return pingers
}

// openQueryLog opens the query log named by LAWGLANCE_QUERY_LOG, falling back
// to ~/.lawglance/queries.db. "disabled" turns logging off. Failures are
// logged and return nil so callers run without a log.
func openQueryLog(log *slog.Logger) *store.SQLiteStore {
	path := os.Getenv("LAWGLANCE_QUERY_LOG")
	if path == "disabled" {
		log.Info("query log: disabled via LAWGLANCE_QUERY_LOG=disabled")
		return nil
	}
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			log.Warn("query log: could not resolve default path, disabling", slog.Any("error", err))
			return nil
		}
		path = p
	}
	ql, err := store.Open(path)
	if err != nil {
		log.Warn("query log: failed to open, disabling", slog.Any("error", err))
		return nil
	}
	log.Debug("query log: opened", slog.String("path", path))
	return ql
}

func getEnvOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvFloat32Ptr returns nil when key is unset or not a number, so the
// caller's own default applies.
func getEnvFloat32Ptr(key string) *float32 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 32)
	if err != nil {
		return nil
	}
	f := float32(v)
	return &f
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
