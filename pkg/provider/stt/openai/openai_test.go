package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/vocalstock/pkg/provider/stt"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
	p, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("model = %q, want %q", p.model, defaultModel)
	}
}

func TestTranscribe_RoundTrip(t *testing.T) {
	t.Parallel()

	var gotLanguage, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text": " Câte seringi avem? "}`)
	}))
	t.Cleanup(srv.Close)

	p, err := New("sk-test", "whisper-1", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.Transcribe(context.Background(), []byte("webm-bytes"), stt.Options{Language: "ro"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "Câte seringi avem?" {
		t.Errorf("transcript = %q", got)
	}
	if gotLanguage != "ro" || gotModel != "whisper-1" {
		t.Errorf("form fields language=%q model=%q", gotLanguage, gotModel)
	}
}

func TestTranscribe_RejectsPCM(t *testing.T) {
	t.Parallel()

	p, _ := New("sk-test", "")
	if _, err := p.Transcribe(context.Background(), []byte{1, 2}, stt.Options{PCMSampleRate: 16000}); err == nil {
		t.Fatal("expected error for raw PCM")
	}
}
