package transcript_test

import (
	"testing"

	"github.com/MrWong99/vocalstock/internal/transcript"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n ", ""},
		{"fillers and homophone", "  Um I used FREE gloves please ", "i used three gloves"},
		{"multi-word filler", "you know I took too syringes", "i took two syringes"},
		{"filler inside word untouched", "it is likely", "it is likely"},
		{"homophones single pass", "won to for ate", "one two four eight"},
		{"homophone inside word untouched", "tomato forest", "tomato forest"},
		{"romanian article", "Am folosit o mască", "am folosit one mască"},
		{"cedilla folded to comma below", "Câte ŞASE ţevi", "câte șase țevi"},
		{"collapse whitespace", "add   20\tmasks", "add 20 masks"},
		{"question mark kept", "How many syringes do we have?", "how many syringes do we have?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := transcript.Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Um I used FREE gloves please",
		"Adaugă zece seringi",
		"o to too oh",
	}
	for _, in := range inputs {
		once := transcript.Normalize(in)
		if twice := transcript.Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizer_CustomTables(t *testing.T) {
	t.Parallel()

	n := transcript.NewNormalizer(
		transcript.WithFillers([]string{"hey assistant"}),
		transcript.WithHomophones([]transcript.Replacement{{From: "fife", To: "five"}}),
	)
	got := n.Normalize("Hey Assistant use fife masks please")
	if want := "use five masks please"; got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Mănuși":   "manusi",
		"ŞASE":     "sase",
		"Câte":     "cate",
		"Syringes": "syringes",
	}
	for in, want := range tests {
		if got := transcript.Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWords(t *testing.T) {
	t.Parallel()

	got := transcript.Words("câte seringi, avem?")
	want := []string{"câte", "seringi", "avem"}
	if len(got) != len(want) {
		t.Fatalf("Words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Words[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClean_KeepsHomophones(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Um, set masks to twenty please", "set masks to twenty"},
		{"I took FREE syringes", "i took free syringes"},
		{"  Câte ŞASE  ţevi ", "câte șase țevi"},
	}
	for _, tt := range tests {
		if got := transcript.Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
