package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/vocalstock/pkg/provider/llm"
	llmmock "github.com/MrWong99/vocalstock/pkg/provider/llm/mock"
)

func TestLLMFallback_Complete(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"action":"query"}`},
	}

	fb := NewLLMFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("ollama", secondary)

	req := llm.CompletionRequest{Messages: []llm.Message{{Role: "user", Content: "how many masks"}}}
	resp, err := fb.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != `{"action":"query"}` {
		t.Fatalf("content = %q", resp.Content)
	}
	if len(primary.Calls()) != 1 || len(secondary.Calls()) != 1 {
		t.Fatalf("calls: primary=%d secondary=%d, want 1 each", len(primary.Calls()), len(secondary.Calls()))
	}
	if secondary.Calls()[0].Req.Messages[0].Content != "how many masks" {
		t.Error("request not forwarded unchanged")
	}
}

func TestLLMFallback_AllFail(t *testing.T) {
	t.Parallel()

	fb := NewLLMFallback(&llmmock.Provider{CompleteErr: errTest}, "a", FallbackConfig{})
	fb.AddFallback("b", &llmmock.Provider{CompleteErr: errTest})

	if _, err := fb.Complete(context.Background(), llm.CompletionRequest{}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_CapabilitiesFromPrimary(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{ModelCapabilities: llm.ModelCapabilities{ContextWindow: 128000, SupportsJSONMode: true}}
	fb := NewLLMFallback(primary, "openai", FallbackConfig{})
	fb.AddFallback("ollama", &llmmock.Provider{ModelCapabilities: llm.ModelCapabilities{ContextWindow: 8192}})

	if caps := fb.Capabilities(); caps.ContextWindow != 128000 || !caps.SupportsJSONMode {
		t.Errorf("Capabilities = %+v, want primary's", caps)
	}
	if names := fb.Names(); len(names) != 2 || names[0] != "openai" {
		t.Errorf("Names = %v", names)
	}
}
