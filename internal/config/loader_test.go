package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/vocalstock/internal/config"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("VS_A", "alpha")
	t.Setenv("VS_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"key: ${VS_A}", "key: alpha"},
		{"key: ${VS_MISSING}", "key: "},
		{"key: ${VS_MISSING:-fallback}", "key: fallback"},
		{"key: ${VS_EMPTY:-fallback}", "key: fallback"},
		{"key: ${VS_A:-fallback}", "key: alpha"},
		{"key: $VS_A", "key: $VS_A"},
		{"dsn: postgres://${VS_A}@db/${VS_A}", "dsn: postgres://alpha@db/alpha"},
	}
	for _, tc := range tests {
		if got := string(config.ExpandEnv([]byte(tc.in))); got != tc.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.LogLevel != config.LogWarn {
		t.Errorf("log_level = %q, want warn", cfg.Server.LogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config: open") {
		t.Errorf("err = %v, want open error", err)
	}
}

func TestLoad_InvalidNamesPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("catalog:\n  backend: mongo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("err = %v, want mention of %s", err, path)
	}
}
