package tracing

import (
	"log/slog"
	"testing"
)

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()
	cases := []struct {
		cfg  Config
		want bool
	}{
		{Config{}, false},
		{Config{PublicKey: "pk"}, false},
		{Config{SecretKey: "sk"}, false},
		{Config{PublicKey: "pk", SecretKey: "sk"}, true},
	}
	for _, tc := range cases {
		if got := tc.cfg.Enabled(); got != tc.want {
			t.Errorf("%+v.Enabled() = %v, want %v", tc.cfg, got, tc.want)
		}
	}
}

func TestSetup_DisabledIsNoop(t *testing.T) {
	t.Parallel()
	flush, ok := Setup(Config{}, slog.Default())
	if ok {
		t.Fatal("expected tracing disabled without keys")
	}
	flush() // must not panic
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk")
	t.Setenv("LANGFUSE_SECRET_KEY", "sk")
	t.Setenv("LANGFUSE_HOST", "https://cloud.langfuse.com")
	cfg := ConfigFromEnv()
	if !cfg.Enabled() || cfg.Host != "https://cloud.langfuse.com" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
