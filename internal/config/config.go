// Package config provides the configuration schema, loader, hot-reload
// watcher and provider registry for the vocalstock server.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// CatalogBackend selects the catalog store implementation.
type CatalogBackend string

const (
	CatalogMemory   CatalogBackend = "memory"
	CatalogSQLite   CatalogBackend = "sqlite"
	CatalogPostgres CatalogBackend = "postgres"
)

// IsValid reports whether b is a recognised catalog backend.
func (b CatalogBackend) IsValid() bool {
	switch b {
	case CatalogMemory, CatalogSQLite, CatalogPostgres:
		return true
	}
	return false
}

// IdempotencyBackend selects how Idempotency-Key headers are remembered.
type IdempotencyBackend string

const (
	IdempotencyNone   IdempotencyBackend = "none"
	IdempotencyMemory IdempotencyBackend = "memory"
	IdempotencyRedis  IdempotencyBackend = "redis"
)

// IsValid reports whether b is a recognised idempotency backend.
func (b IdempotencyBackend) IsValid() bool {
	switch b {
	case IdempotencyNone, IdempotencyMemory, IdempotencyRedis:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Structuring StructuringConfig `yaml:"structuring"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`

	// LLMFallbacks are tried in order when the primary LLM fails.
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on. Default ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Hot-reloadable.
	LogLevel LogLevel `yaml:"log_level"`

	// RequestTimeout bounds each HTTP request, provider calls included.
	// Default 30s.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// TLS configures HTTPS. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// external capability. Each entry selects a factory registered in the [Registry].
// An empty name disables the capability.
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider types.
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g. "openai", "coqui").
	Name string `yaml:"name"`

	// APIKey authenticates against the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint. Local servers
	// (whisper.cpp, Coqui, Ollama) are addressed through it.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the provider (e.g. "gpt-4o-mini", "whisper-1").
	Model string `yaml:"model"`

	// Voice selects the synthesis voice. TTS only.
	Voice string `yaml:"voice"`

	// Timeout bounds a single provider call. Zero uses the provider default.
	Timeout time.Duration `yaml:"timeout"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// StructuringConfig tunes transcript structuring and item resolution.
type StructuringConfig struct {
	// UseLLM puts the generative strategy in front of the rule-based
	// fallback. Requires providers.llm.
	UseLLM bool `yaml:"use_llm"`

	// Temperature for the structuring prompt. Default 0.1.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the structuring reply. Default 128.
	MaxTokens int `yaml:"max_tokens"`

	// ResolverThreshold is the minimum similarity for a fuzzy catalog match.
	// Default 0.6. Hot-reloadable.
	ResolverThreshold float64 `yaml:"resolver_threshold"`

	// Actor is recorded on usage logs written by voice commands.
	// Default "voice_user".
	Actor string `yaml:"actor"`

	// Suggestions enables "did you mean" hints on unknown items. Default true.
	Suggestions *bool `yaml:"suggestions"`
}

// SuggestionsEnabled reports whether "did you mean" hints are on.
func (s StructuringConfig) SuggestionsEnabled() bool {
	return s.Suggestions == nil || *s.Suggestions
}

// CatalogConfig selects and seeds the catalog store.
type CatalogConfig struct {
	Backend CatalogBackend `yaml:"backend"`

	// DSN is the PostgreSQL connection string (backend postgres).
	DSN string `yaml:"dsn"`

	// Path is the database file (backend sqlite).
	Path string `yaml:"path"`

	// SeedFile is a YAML item list imported into an empty store at startup.
	SeedFile string `yaml:"seed_file"`

	// AliasFile replaces the built-in alias table. Watched for changes.
	AliasFile string `yaml:"alias_file"`
}

// IdempotencyConfig configures the Idempotency-Key guard.
type IdempotencyConfig struct {
	Backend IdempotencyBackend `yaml:"backend"`

	// TTL is how long a key is remembered. Default 24h.
	TTL time.Duration `yaml:"ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// KeyPrefix namespaces keys in a shared redis. Default "vocalstock:idem:".
	KeyPrefix string `yaml:"key_prefix"`
}
