package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext_DefaultWhenMissing(t *testing.T) {
	t.Parallel()
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected slog.Default when no logger is stored")
	}
}

func TestWithLogger_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "info")
	l := NewWithWriter(&buf)

	ctx := WithLogger(context.Background(), l.With(slog.String("request_id", "r-1")))
	FromContext(ctx).Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["request_id"] != "r-1" || rec["msg"] != "hello" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestOutput_StderrWithoutLogFile(t *testing.T) {
	t.Setenv("LOG_FILE", "")
	if w := output(); w == nil {
		t.Fatal("output() returned nil")
	}
}

func TestNewWithWriter_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_LEVEL", "debug")

	NewWithWriter(&buf).Debug("connecting",
		slog.String("dsn", "postgres://u:pw@db/lawglance"),
		slog.String("Authorization", "Bearer abc"),
		slog.String("collection", "lawglance"),
		slog.String("token", ""),
	)

	out := buf.String()
	for _, leaked := range []string{"pw@db", "Bearer abc"} {
		if bytes.Contains(buf.Bytes(), []byte(leaked)) {
			t.Errorf("log output leaked %q: %s", leaked, out)
		}
	}
	if !bytes.Contains(buf.Bytes(), []byte("collection=lawglance")) {
		t.Errorf("ordinary attributes must pass through: %s", out)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`token=""`)) {
		t.Errorf("empty values are left as-is: %s", out)
	}
}
