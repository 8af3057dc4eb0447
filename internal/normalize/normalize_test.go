package normalize

import (
	"testing"

	"addonwatch/internal/model"
)

func TestSeverityScoreBuckets(t *testing.T) {
	cases := map[float64]model.Severity{
		5:   model.SeverityCritical,
		4:   model.SeverityHigh,
		3:   model.SeverityHigh,
		2:   model.SeverityMedium,
		1:   model.SeverityLow,
		0:   model.SeverityLow,
		2.5: model.SeverityHigh, // rounds to 3
		-7:  model.SeverityLow,  // clamped to 0
		99:  model.SeverityCritical,
	}
	for score, want := range cases {
		if got := SeverityScore(score); got != want {
			t.Fatalf("SeverityScore(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestSeverityLabels(t *testing.T) {
	cases := map[string]model.Severity{
		"critical": model.SeverityCritical,
		"HIGH":     model.SeverityHigh,
		"notable":  model.SeverityHigh,
		"moderate": model.SeverityMedium,
		"safe":     model.SeverityLow,
		"red":      model.SeverityCritical,
		"orange":   model.SeverityHigh,
		"yellow":   model.SeverityMedium,
		"green":    model.SeverityLow,
		"unknown":  model.SeverityUnknown,
		"":         model.SeverityUnknown,
		"gibberish": model.SeverityUnknown,
		"  low  ":   model.SeverityLow,
	}
	for label, want := range cases {
		if got := SeverityLabel(label); got != want {
			t.Fatalf("SeverityLabel(%q) = %s, want %s", label, got, want)
		}
	}
}

func TestPickHigher(t *testing.T) {
	if got := PickHigher(model.SeverityLow, model.SeverityCritical); got != model.SeverityCritical {
		t.Fatalf("expected critical, got %s", got)
	}
	if got := PickHigher(model.SeverityHigh, model.SeverityMedium); got != model.SeverityHigh {
		t.Fatalf("expected high, got %s", got)
	}
	// left operand wins ties
	if got := PickHigher(model.SeverityMedium, model.SeverityMedium); got != model.SeverityMedium {
		t.Fatalf("expected medium, got %s", got)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"DBM-Core":             "dbmcore",
		"WeakAuras":            "weakauras",
		"!Details-DamageMeter": "detailsdamagemeter",
		"Weak Auras!":          "weakauras",
		"---":                  "",
		"":                     "",
	}
	for name, want := range cases {
		if got := Slug(name); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestObservationBoundary(t *testing.T) {
	sev := 4
	obs, ok := Observation("  WeakAuras  ", &sev, model.ArticleRef{ID: "a1"})
	if !ok {
		t.Fatalf("expected observation")
	}
	if obs.AddonName != "WeakAuras" || obs.Severity != 4 {
		t.Fatalf("unexpected observation: %+v", obs)
	}

	// nil severity counts as 0, not as missing
	obs, ok = Observation("DBM", nil, model.ArticleRef{})
	if !ok || obs.Severity != 0 {
		t.Fatalf("expected severity 0 for nil, got %+v ok=%v", obs, ok)
	}

	if _, ok := Observation("   ", &sev, model.ArticleRef{}); ok {
		t.Fatalf("expected empty name to be dropped")
	}
}

func TestSanitizers(t *testing.T) {
	if got := AddonName("  <b>DBM</b>   Core \x00 "); got != "b DBM /b Core" {
		t.Fatalf("AddonName = %q", got)
	}
	if got := Text("a<script>b\x07c", 100); got != "ascriptbc" {
		t.Fatalf("Text = %q", got)
	}
	if _, err := HTTPURL("javascript:alert(1)"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if u, err := HTTPURL("  https://example.com/a "); err != nil || u != "https://example.com/a" {
		t.Fatalf("HTTPURL = %q, %v", u, err)
	}
	if got := ClampScore(0); got != 1 {
		t.Fatalf("ClampScore(0) = %d", got)
	}
	if got := ClampScore(9); got != 5 {
		t.Fatalf("ClampScore(9) = %d", got)
	}
}
