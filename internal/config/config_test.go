package config

import (
	"reflect"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")

	// App
	t.Setenv("DB_PATH", "db.sqlite")
	t.Setenv("DATA_DIR", "corpora")
	t.Setenv("RETRIEVAL_TOP_K", "3")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// Integrations
	t.Setenv("GOOGLE_CLIENT_ID", "cid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "csecret")
	t.Setenv("GOOGLE_REDIRECT_URL", "https://api.example.com/oauth2callback")
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("MODEL_NAME", "gpt-4o-mini")
	t.Setenv("MODEL_TEMPERATURE", "0.4")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging
	if cfg.LogLevel != "warn" || !cfg.LogPretty {
		t.Fatalf("logging fields unexpected: %+v", cfg)
	}

	// App
	if cfg.DBPath != "db.sqlite" || cfg.DataDir != "corpora" || cfg.RetrievalTopK != 3 {
		t.Fatalf("app fields unexpected: %+v", cfg)
	}

	// Rate limiting fell back to defaults on parse failure
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate fields unexpected: %+v", cfg)
	}

	// CORS: whitespace and empty entries trimmed
	wantOrigins := []string{"https://a.com", "http://b"}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, wantOrigins) {
		t.Fatalf("origins = %v, want %v", cfg.CORS.AllowedOrigins, wantOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security fields unexpected: %+v", cfg.Security)
	}

	// Integrations
	if !cfg.Google.Enabled() || cfg.Google.RedirectURL != "https://api.example.com/oauth2callback" {
		t.Fatalf("google fields unexpected: %+v", cfg.Google)
	}
	if cfg.Model.Name != "gpt-4o-mini" || cfg.Model.Temperature != 0.4 {
		t.Fatalf("model fields unexpected: %+v", cfg.Model)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure ||
		cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel fields unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"negative timeout", "READ_TIMEOUT", "-1s"},
		{"zero topk", "RETRIEVAL_TOP_K", "0"},
		{"negative rps", "RATE_RPS", "-1"},
		{"burst too small", "RATE_BURST", "0"},
		{"temperature out of range", "MODEL_TEMPERATURE", "3.5"},
		{"sampler out of range", "OTEL_TRACES_SAMPLER_ARG", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() should fail when %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestGoogleConfigEnabled(t *testing.T) {
	if (GoogleConfig{}).Enabled() {
		t.Fatal("empty client should not be enabled")
	}
	if !(GoogleConfig{ClientID: "a", ClientSecret: "b"}).Enabled() {
		t.Fatal("configured client should be enabled")
	}
}
