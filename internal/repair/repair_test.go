package repair

import (
	"reflect"
	"testing"
)

func TestParseStrictJSON(t *testing.T) {
	got := Parse(`{"fit_score": 82, "summary": "strong match"}`)
	want := map[string]any{"fit_score": float64(82), "summary": "strong match"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseMarkdownFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"json fence", "```json\n{\"skills\": [\"go\", \"python\"]}\n```"},
		{"bare fence", "```\n{\"skills\": [\"go\", \"python\"]}\n```"},
		{"fence with chatter", "Here is the analysis:\n```json\n{\"skills\": [\"go\", \"python\"]}\n```\nLet me know!"},
	}
	want := map[string]any{"skills": []any{"go", "python"}}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.in)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %v want %v", got, want)
			}
		})
	}
}

func TestParseBraceExtraction(t *testing.T) {
	in := `The model says: {"verdict": "hire", "note": "brace } in string"} trailing words`
	got := Parse(in)
	if got["verdict"] != "hire" {
		t.Fatalf("verdict = %v", got["verdict"])
	}
	if got["note"] != "brace } in string" {
		t.Fatalf("note = %v", got["note"])
	}
}

func TestParseTrailingCommas(t *testing.T) {
	in := "{\"gaps\": [\"k8s\",],\n\"score\": 7,}"
	got := Parse(in)
	if got["score"] != float64(7) {
		t.Fatalf("score = %v", got["score"])
	}
}

func TestParseLogPrefixNoise(t *testing.T) {
	in := "2025-03-01T10:22:31Z {\"ok\": true}"
	got := Parse(in)
	if got["ok"] != true {
		t.Fatalf("got %v", got)
	}
}

func TestParseFallbackPreservesInput(t *testing.T) {
	in := "completely unparseable { answer"
	got := Parse(in)
	if !IsRawFallback(got) {
		t.Fatalf("expected raw fallback, got %v", got)
	}
	if got[RawTextKey] != in {
		t.Fatalf("fallback must be byte-identical: %q", got[RawTextKey])
	}
}

func TestIsRawFallback(t *testing.T) {
	if IsRawFallback(map[string]any{"raw_text": "x", "other": 1}) {
		t.Fatal("two-key map is not the fallback shape")
	}
	if !IsRawFallback(map[string]any{"raw_text": "x"}) {
		t.Fatal("single raw_text key is the fallback shape")
	}
}
