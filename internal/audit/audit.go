// Package audit writes one structured log record per CLI invocation so an
// operator can reconstruct which backends a command ran against. Credentials
// are reported as "set" or "unset" and never by value.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// envGroup is a set of environment variables logged together under one
// slog group.
type envGroup struct {
	name string
	keys []string
}

// auditedEnv lists, per subsystem, the variables recorded at command start.
var auditedEnv = []envGroup{
	{"provider", []string{
		"MODEL_PROVIDER", "OLLAMA_HOST", "OLLAMA_MODEL",
		"OPENAI_API_KEY", "OPENAI_MODEL",
		"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT",
		"GOOGLE_API_KEY", "GEMINI_MODEL",
		"ARK_API_KEY", "ARK_MODEL",
	}},
	{"embedding", []string{"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_API_KEY"}},
	{"vector_store", []string{
		"VECTOR_STORE", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION", "QDRANT_API_KEY",
		"POSTGRES_DSN", "POSTGRES_TABLE",
	}},
	{"rag", []string{"RAG_TOP_K", "RAG_SCORE_THRESHOLD", "GENERATION_TIMEOUT"}},
	{"server", []string{"LAWGLANCE_HOST", "LAWGLANCE_PORT", "LAWGLANCE_API_KEY", "LAWGLANCE_QUERY_LOG", "CORS_ORIGINS"}},
	{"logging", []string{"LOG_LEVEL", "LOG_FORMAT"}},
	{"tracing", []string{"LANGFUSE_HOST", "LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY"}},
}

// secretSuffixes mark variables that carry credentials. A Postgres DSN may
// embed a password so it is treated the same way.
var secretSuffixes = []string{"_API_KEY", "_SECRET_KEY", "_PUBLIC_KEY", "_DSN", "_TOKEN", "_PASSWORD"}

// LogCommandStart records the command name, the config file in use and the
// sanitised environment at Info level.
func LogCommandStart(log *slog.Logger, command, configPath string) {
	log.LogAttrs(context.Background(), slog.LevelInfo, "audit: command start", commandAttrs(command, configPath)...)
}

func commandAttrs(command, configPath string) []slog.Attr {
	attrs := make([]slog.Attr, 0, 2+len(auditedEnv))
	attrs = append(attrs,
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	)
	for _, g := range auditedEnv {
		values := make([]any, 0, len(g.keys))
		for _, k := range g.keys {
			values = append(values, slog.String(k, SanitiseKey(k, os.Getenv(k))))
		}
		attrs = append(attrs, slog.Group(g.name, values...))
	}
	return attrs
}

// IsSecret reports whether the named variable holds a credential.
func IsSecret(key string) bool {
	key = strings.ToUpper(key)
	for _, s := range secretSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// SanitiseKey returns the value safe for logging: "set"/"unset" for secrets,
// the value itself (or "unset") otherwise.
func SanitiseKey(key, value string) string {
	switch {
	case value == "":
		return "unset"
	case IsSecret(key):
		return "set"
	default:
		return value
	}
}

// sanitiseConfigPath returns "none" for an empty path and replaces the home
// directory prefix with "~".
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" && strings.HasPrefix(p, home+string(os.PathSeparator)) {
		return "~" + p[len(home):]
	}
	return p
}
