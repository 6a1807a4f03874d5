package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr        = ":8080"
	DefaultRequestTimeout    = 30 * time.Second
	DefaultTemperature       = 0.1
	DefaultMaxTokens         = 128
	DefaultResolverThreshold = 0.6
	DefaultActor             = "voice_user"
	DefaultIdempotencyTTL    = 24 * time.Hour
	DefaultKeyPrefix         = "vocalstock:idem:"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"openai", "whisper"},
	"tts": {"openai", "coqui"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader expands ${VAR} references, decodes a YAML config from r,
// applies defaults and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(ExpandEnv(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} with environment values.
// Bare $VAR is left untouched so secrets containing "$" survive.
func ExpandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		sub := envRef.FindSubmatch(m)
		if v, ok := os.LookupEnv(string(sub[1])); ok && v != "" {
			return []byte(v)
		}
		return sub[2]
	})
}

// ApplyDefaults fills zero values with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Structuring.Temperature == 0 {
		cfg.Structuring.Temperature = DefaultTemperature
	}
	if cfg.Structuring.MaxTokens == 0 {
		cfg.Structuring.MaxTokens = DefaultMaxTokens
	}
	if cfg.Structuring.ResolverThreshold == 0 {
		cfg.Structuring.ResolverThreshold = DefaultResolverThreshold
	}
	if cfg.Structuring.Actor == "" {
		cfg.Structuring.Actor = DefaultActor
	}
	if cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = CatalogMemory
	}
	if cfg.Idempotency.Backend == "" {
		cfg.Idempotency.Backend = IdempotencyMemory
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = DefaultIdempotencyTTL
	}
	if cfg.Idempotency.KeyPrefix == "" {
		cfg.Idempotency.KeyPrefix = DefaultKeyPrefix
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found; soft
// issues are logged as warnings.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout %s must not be negative", cfg.Server.RequestTimeout))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	for i, fb := range cfg.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("llm_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("llm", fb.Name)
	}
	if len(cfg.LLMFallbacks) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("llm_fallbacks are set but providers.llm is not configured"))
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt is not configured; /process-voice accepts transcripts only")
	}

	// Structuring
	s := cfg.Structuring
	if s.UseLLM && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("structuring.use_llm requires providers.llm"))
	}
	if !s.UseLLM && cfg.Providers.LLM.Name != "" {
		slog.Warn("providers.llm is configured but structuring.use_llm is false; the model will not be used")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		errs = append(errs, fmt.Errorf("structuring.temperature %.2f is out of range [0, 2]", s.Temperature))
	}
	if s.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("structuring.max_tokens %d must not be negative", s.MaxTokens))
	}
	if s.ResolverThreshold <= 0 || s.ResolverThreshold > 1 {
		errs = append(errs, fmt.Errorf("structuring.resolver_threshold %.2f is out of range (0, 1]", s.ResolverThreshold))
	}

	// Catalog
	switch c := cfg.Catalog; {
	case !c.Backend.IsValid():
		errs = append(errs, fmt.Errorf("catalog.backend %q is invalid; valid values: memory, sqlite, postgres", c.Backend))
	case c.Backend == CatalogSQLite && c.Path == "":
		errs = append(errs, errors.New("catalog.path is required when backend is sqlite"))
	case c.Backend == CatalogPostgres && c.DSN == "":
		errs = append(errs, errors.New("catalog.dsn is required when backend is postgres"))
	case c.Backend == CatalogMemory && c.SeedFile == "":
		slog.Warn("catalog.backend is memory without a seed_file; the catalog starts empty and is lost on exit")
	}

	// Idempotency
	switch i := cfg.Idempotency; {
	case !i.Backend.IsValid():
		errs = append(errs, fmt.Errorf("idempotency.backend %q is invalid; valid values: none, memory, redis", i.Backend))
	case i.Backend == IdempotencyRedis && i.RedisAddr == "":
		errs = append(errs, errors.New("idempotency.redis_addr is required when backend is redis"))
	case i.TTL < 0:
		errs = append(errs, fmt.Errorf("idempotency.ttl %s must not be negative", i.TTL))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
