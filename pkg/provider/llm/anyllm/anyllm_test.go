package anyllm

import (
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/vocalstock/pkg/provider/llm"
)

// ── convertMessage / buildParams ──────────────────────────────────────────────

func TestConvertMessage(t *testing.T) {
	msg := convertMessage(llm.Message{Role: "user", Content: "am folosit 3 măști"})
	if msg.Role != "user" {
		t.Errorf("expected role user, got %q", msg.Role)
	}
	if msg.ContentString() != "am folosit 3 măști" {
		t.Errorf("unexpected content %q", msg.ContentString())
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "llama3.1"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "be terse",
		Messages:     []llm.Message{{Role: "user", Content: "add 5 gloves"}},
		Temperature:  0.1,
		MaxTokens:    128,
	})

	if params.Model != "llama3.1" {
		t.Errorf("expected model llama3.1, got %q", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("expected system message first, got %q", params.Messages[0].Role)
	}
	if params.Temperature == nil || *params.Temperature != 0.1 {
		t.Errorf("expected temperature 0.1, got %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 128 {
		t.Errorf("expected max tokens 128, got %v", params.MaxTokens)
	}
}

func TestBuildParams_ZeroValuesOmitted(t *testing.T) {
	p := &Provider{model: "llama3.1"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "x"}},
	})
	if params.Temperature != nil {
		t.Error("expected nil temperature")
	}
	if params.MaxTokens != nil {
		t.Error("expected nil max tokens")
	}
}

// ── modelCapabilities ─────────────────────────────────────────────────────────

func TestModelCapabilities(t *testing.T) {
	tests := []struct {
		model   string
		wantCtx int
	}{
		{"gpt-4o-mini", 128_000},
		{"GPT-3.5-Turbo", 16_385},
		{"claude-3-5-haiku-latest", 200_000},
		{"gemini-2.0-flash", 1_048_576},
		{"llama3.1:8b", 32_768},
		{"totally-unknown", 8_192},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := modelCapabilities(tt.model).ContextWindow; got != tt.wantCtx {
				t.Errorf("ContextWindow = %d, want %d", got, tt.wantCtx)
			}
		})
	}
}

// ── Constructor ───────────────────────────────────────────────────────────────

func TestNew_EmptyProviderName(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty providerName")
	}
}

func TestNew_EmptyModel(t *testing.T) {
	if _, err := New("openai", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	if _, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNew_OpenAI_WithAPIKey(t *testing.T) {
	p, err := New("openai", "gpt-4o", anyllmlib.WithAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", p.model)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (*Provider, error)
	}{
		{"NewAnthropic", func() (*Provider, error) {
			return NewAnthropic("claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-test"))
		}},
		{"NewOllama", func() (*Provider, error) { return NewOllama("llama3") }},
		{"NewLlamaCpp", func() (*Provider, error) { return NewLlamaCpp("llama3") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.fn()
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.name, err)
			}
			if p == nil {
				t.Fatalf("%s: expected non-nil provider", tt.name)
			}
		})
	}
}
