package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// chatModelMarkers are name fragments of chat/completion models. An
// EMBEDDING_MODEL containing one is almost certainly a misconfiguration.
var chatModelMarkers = []string{
	"gpt-4", "gpt-3.5", "gpt-35", "o1", "o3",
	"llama3", "llama2", "llama-3", "llama-2",
	"mistral", "mixtral", "gemma", "gemini-1", "gemini-2",
	"phi-", "phi3", "claude", "command-r", "deepseek", "qwen",
	"solar", "vicuna", "falcon", "yi-",
}

func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, m := range chatModelMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ValidateForRAG fails fast on a configuration that cannot build an index or
// query one: an unknown vector store, a pgvector store without a DSN, or an
// embedding backend missing its key or endpoint. Suspicious but workable
// settings are logged as warnings. Call it before opening the store so
// operators see the problem at startup instead of on the first question.
func ValidateForRAG(log *slog.Logger) error {
	switch store := envOr("VECTOR_STORE", "qdrant"); store {
	case "qdrant":
	case "postgres":
		if os.Getenv("POSTGRES_DSN") == "" {
			return fmt.Errorf("embedder: VECTOR_STORE=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("embedder: unknown VECTOR_STORE %q (valid: qdrant, postgres)", store)
	}

	name := Backend()
	if os.Getenv("EMBEDDING_PROVIDER") == "" && name != "gemini" {
		log.Warn("embedder: EMBEDDING_PROVIDER is not set; inheriting MODEL_PROVIDER as embedding backend",
			slog.String("backend", name),
			slog.String("hint", "set EMBEDDING_PROVIDER explicitly; the index must be queried with the model that built it"),
		)
	}
	if _, _, err := resolve(name); err != nil {
		return err
	}

	if model := os.Getenv("EMBEDDING_MODEL"); model != "" && looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model e.g. gemini-embedding-001, nomic-embed-text"),
		)
	}
	return nil
}
