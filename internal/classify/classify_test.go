package classify

import (
	"context"
	"strings"
	"testing"

	"addonwatch/internal/config"
)

func TestDisabledClassifierDefaults(t *testing.T) {
	c := New(config.ClassifierConfig{}, nil)
	if c.Enabled() {
		t.Fatal("no API key must leave the classifier disabled")
	}

	cls, err := c.Classify(context.Background(), "some article text")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if cls.Related || cls.Severity != 1 {
		t.Fatalf("disabled classification = %+v", cls)
	}

	suggestions, err := c.SuggestImpacts(context.Background(), "some article text")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(suggestions) != 0 {
		t.Fatalf("suggestions = %+v", suggestions)
	}
}

func TestDisabledSummarizeClips(t *testing.T) {
	c := New(config.ClassifierConfig{}, nil)

	long := strings.Repeat("combat log changes ", 40)
	summary, err := c.Summarize(context.Background(), long)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(summary) != 280 {
		t.Fatalf("summary length = %d, want 280", len(summary))
	}

	short := "short note"
	summary, err = c.Summarize(context.Background(), short)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != short {
		t.Fatalf("summary = %q", summary)
	}
}

func TestExtractSuggestionArrayShapes(t *testing.T) {
	cases := map[string]string{
		"direct array":  `[{"addon_name": "DBM", "severity": 4}]`,
		"suggestions":   `{"suggestions": [{"addon_name": "DBM", "severity": 4}]}`,
		"items":         `{"items": [{"addon_name": "DBM", "severity": 4}]}`,
		"arbitrary key": `{"result": [{"addon_name": "DBM", "severity": 4}]}`,
		"single object": `{"addon_name": "DBM", "severity": 4}`,
	}
	for name, content := range cases {
		raw := extractSuggestionArray(content)
		if len(raw) != 1 || raw[0]["addon_name"] != "DBM" {
			t.Fatalf("%s: parsed %+v", name, raw)
		}
	}

	if raw := extractSuggestionArray("not json"); raw != nil {
		t.Fatalf("expected nil for garbage, got %+v", raw)
	}
	if raw := extractSuggestionArray(`{"note": "nothing here"}`); raw != nil {
		t.Fatalf("expected nil for shapeless object, got %+v", raw)
	}
}

func TestDecodeScore(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`4`, 4},
		{`4.6`, 4},
		{`"3"`, 3},
		{`" 2 "`, 2},
		{`"garbage"`, 1},
		{``, 1},
	}
	for _, tc := range cases {
		if got := decodeScore([]byte(tc.raw)); got != tc.want {
			t.Fatalf("decodeScore(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
