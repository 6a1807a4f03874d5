package config_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/vocalstock/internal/config"
	"github.com/MrWong99/vocalstock/pkg/provider/llm"
	llmmock "github.com/MrWong99/vocalstock/pkg/provider/llm/mock"
	"github.com/MrWong99/vocalstock/pkg/provider/stt"
	sttmock "github.com/MrWong99/vocalstock/pkg/provider/stt/mock"
	"github.com/MrWong99/vocalstock/pkg/provider/tts"
	ttsmock "github.com/MrWong99/vocalstock/pkg/provider/tts/mock"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
  request_timeout: 10s
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  stt:
    name: whisper
    base_url: http://localhost:8081
  tts:
    name: coqui
    base_url: http://localhost:5002
    voice: p225
llm_fallbacks:
  - name: ollama
    model: llama3.2
structuring:
  use_llm: true
  temperature: 0.2
  resolver_threshold: 0.7
catalog:
  backend: sqlite
  path: /var/lib/vocalstock/catalog.db
  seed_file: seed.yaml
  alias_file: aliases.yaml
idempotency:
  backend: redis
  redis_addr: localhost:6379
  ttl: 1h
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 10*time.Second {
		t.Errorf("request_timeout = %s, want 10s", cfg.Server.RequestTimeout)
	}
	if cfg.Providers.TTS.Voice != "p225" || cfg.Providers.STT.BaseURL != "http://localhost:8081" {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if len(cfg.LLMFallbacks) != 1 || cfg.LLMFallbacks[0].Name != "ollama" {
		t.Errorf("llm_fallbacks = %+v", cfg.LLMFallbacks)
	}
	if !cfg.Structuring.UseLLM || cfg.Structuring.ResolverThreshold != 0.7 {
		t.Errorf("structuring = %+v", cfg.Structuring)
	}
	if cfg.Structuring.MaxTokens != config.DefaultMaxTokens {
		t.Errorf("max_tokens = %d, want default %d", cfg.Structuring.MaxTokens, config.DefaultMaxTokens)
	}
	if cfg.Catalog.Backend != config.CatalogSQLite || cfg.Catalog.AliasFile != "aliases.yaml" {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Idempotency.TTL != time.Hour || cfg.Idempotency.KeyPrefix != config.DefaultKeyPrefix {
		t.Errorf("idempotency = %+v", cfg.Idempotency)
	}
}

func TestLoadFromReader_EmptyGetsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr || cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Catalog.Backend != config.CatalogMemory || cfg.Idempotency.Backend != config.IdempotencyMemory {
		t.Errorf("backends = %q/%q", cfg.Catalog.Backend, cfg.Idempotency.Backend)
	}
	if cfg.Structuring.ResolverThreshold != config.DefaultResolverThreshold || cfg.Structuring.Actor != config.DefaultActor {
		t.Errorf("structuring = %+v", cfg.Structuring)
	}
	if !cfg.Structuring.SuggestionsEnabled() {
		t.Error("suggestions should default to enabled")
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":1\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadFromReader_ExpandsEnv(t *testing.T) {
	t.Setenv("VOCALSTOCK_TEST_KEY", "sk-from-env")
	yaml := `
providers:
  llm:
    name: openai
    api_key: ${VOCALSTOCK_TEST_KEY}
    base_url: ${VOCALSTOCK_TEST_UNSET:-http://localhost:11434}
    model: $literal
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	llmCfg := cfg.Providers.LLM
	if llmCfg.APIKey != "sk-from-env" {
		t.Errorf("api_key = %q, want sk-from-env", llmCfg.APIKey)
	}
	if llmCfg.BaseURL != "http://localhost:11434" {
		t.Errorf("base_url = %q, want default", llmCfg.BaseURL)
	}
	if llmCfg.Model != "$literal" {
		t.Errorf("model = %q, bare $ should be untouched", llmCfg.Model)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"log level", "server:\n  log_level: bananas\n", "server.log_level"},
		{"tls half", "server:\n  tls:\n    cert_file: a.pem\n", "server.tls"},
		{"use_llm without llm", "structuring:\n  use_llm: true\n", "structuring.use_llm"},
		{"threshold range", "structuring:\n  resolver_threshold: 1.5\n", "resolver_threshold"},
		{"temperature range", "structuring:\n  temperature: 3\n", "temperature"},
		{"catalog backend", "catalog:\n  backend: mongo\n", "catalog.backend"},
		{"sqlite path", "catalog:\n  backend: sqlite\n", "catalog.path"},
		{"postgres dsn", "catalog:\n  backend: postgres\n", "catalog.dsn"},
		{"idempotency backend", "idempotency:\n  backend: etcd\n", "idempotency.backend"},
		{"redis addr", "idempotency:\n  backend: redis\n", "idempotency.redis_addr"},
		{"fallback name", "providers:\n  llm:\n    name: openai\nllm_fallbacks:\n  - model: x\n", "llm_fallbacks[0].name"},
		{"fallback without primary", "llm_fallbacks:\n  - name: ollama\n", "providers.llm is not configured"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error should mention %q, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
catalog:
  backend: postgres
idempotency:
  backend: redis
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"server.log_level", "catalog.dsn", "idempotency.redis_addr"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_Unknown(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()
	entry := config.ProviderEntry{Name: "nonexistent"}

	if _, err := r.CreateLLM(entry); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateSTT(entry); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateTTS(entry); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateTTS err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_Registered(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()

	var gotEntry config.ProviderEntry
	r.RegisterLLM("fake", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return &llmmock.Provider{}, nil
	})
	r.RegisterSTT("fake", func(config.ProviderEntry) (stt.Provider, error) { return &sttmock.Provider{}, nil })
	r.RegisterTTS("fake", func(config.ProviderEntry) (tts.Provider, error) { return &ttsmock.Provider{}, nil })

	entry := config.ProviderEntry{Name: "fake", Model: "m1"}
	if p, err := r.CreateLLM(entry); err != nil || p == nil {
		t.Fatalf("CreateLLM = %v, %v", p, err)
	}
	if gotEntry.Model != "m1" {
		t.Errorf("factory got model %q, want m1", gotEntry.Model)
	}
	if p, err := r.CreateSTT(entry); err != nil || p == nil {
		t.Errorf("CreateSTT = %v, %v", p, err)
	}
	if p, err := r.CreateTTS(entry); err != nil || p == nil {
		t.Errorf("CreateTTS = %v, %v", p, err)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()
	boom := errors.New("missing api key")
	r.RegisterLLM("broken", func(config.ProviderEntry) (llm.Provider, error) { return nil, boom })

	_, err := r.CreateLLM(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if !strings.Contains(err.Error(), `llm/"broken"`) {
		t.Errorf("error should name the provider, got: %v", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()
	r.RegisterTTS("openai", func(config.ProviderEntry) (tts.Provider, error) { return nil, nil })
	r.RegisterTTS("coqui", func(config.ProviderEntry) (tts.Provider, error) { return nil, nil })

	if got := r.Names("tts"); !slices.Equal(got, []string{"coqui", "openai"}) {
		t.Errorf("Names(tts) = %v", got)
	}
	if got := r.Names("vad"); got != nil {
		t.Errorf("Names(vad) = %v, want nil", got)
	}
}
