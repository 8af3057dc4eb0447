package feed

import (
	"bytes"
	"math/rand"
	"testing"
	"time"

	"addonwatch/internal/model"
)

var buildTime = time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)

func obs(name string, severity int, title, summary, url string) model.SeverityObservation {
	return model.SeverityObservation{
		AddonName: name,
		Severity:  severity,
		Article:   model.ArticleRef{URL: url, Title: title, Summary: summary},
	}
}

func TestBuildMergesBySlug(t *testing.T) {
	f := Build([]model.SeverityObservation{
		obs("WeakAuras", 2, "short", "", "https://example.com/a"),
		obs("Weak Auras!", 5, "a longer note", "", "https://example.com/b"),
	}, buildTime)
	if len(f.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(f.Items))
	}
	item := f.Items[0]
	if item.Slug != "weakauras" {
		t.Fatalf("slug = %q", item.Slug)
	}
	if item.Severity != model.SeverityCritical {
		t.Fatalf("severity = %s, want critical", item.Severity)
	}
	if item.Note != "a longer note" {
		t.Fatalf("note = %q", item.Note)
	}
}

func TestBuildNoteEqualLengthTieBreak(t *testing.T) {
	f := Build([]model.SeverityObservation{
		obs("DBM", 1, "bbb", "", ""),
		obs("dbm", 1, "aaa", "", ""),
	}, buildTime)
	if len(f.Items) != 1 || f.Items[0].Note != "aaa" {
		t.Fatalf("expected lexicographically smaller note, got %+v", f.Items)
	}
}

func TestBuildLinkTieBreak(t *testing.T) {
	f := Build([]model.SeverityObservation{
		obs("DBM", 1, "", "", "https://z.example/a"),
		obs("dbm", 1, "", "", "https://a.example/b"),
	}, buildTime)
	if len(f.Items) != 1 || f.Items[0].Link != "https://a.example/b" {
		t.Fatalf("expected smallest link, got %+v", f.Items)
	}
}

func TestBuildNoteFallsBackToSummary(t *testing.T) {
	f := Build([]model.SeverityObservation{
		obs("DBM", 1, "", "summary text", ""),
	}, buildTime)
	if f.Items[0].Note != "summary text" {
		t.Fatalf("note = %q", f.Items[0].Note)
	}
}

func TestBuildDropsEmptySlugs(t *testing.T) {
	f := Build([]model.SeverityObservation{
		obs("!!!", 5, "t", "", ""),
		obs("DBM", 1, "t", "", ""),
	}, buildTime)
	if len(f.Items) != 1 || f.Items[0].Slug != "dbm" {
		t.Fatalf("expected only dbm, got %+v", f.Items)
	}
}

func TestBuildVersionIsBuildDate(t *testing.T) {
	f := Build(nil, buildTime)
	if f.Version != "2026-03-14" {
		t.Fatalf("version = %q", f.Version)
	}
	if f.Items == nil || len(f.Items) != 0 {
		t.Fatalf("expected empty items, got %+v", f.Items)
	}
}

func TestBuildSortedBySlug(t *testing.T) {
	f := Build([]model.SeverityObservation{
		obs("Zygor", 1, "", "", ""),
		obs("Atlas", 1, "", "", ""),
		obs("DBM", 1, "", "", ""),
	}, buildTime)
	want := []string{"atlas", "dbm", "zygor"}
	for i, slug := range want {
		if f.Items[i].Slug != slug {
			t.Fatalf("position %d: want %s, got %s", i, slug, f.Items[i].Slug)
		}
	}
}

// The feed is served behind a content-hash ETag; any permutation of
// the same observation set must serialize to identical bytes.
func TestBuildDeterministicUnderPermutation(t *testing.T) {
	observations := []model.SeverityObservation{
		obs("WeakAuras", 2, "short", "", "https://example.com/z"),
		obs("Weak Auras!", 5, "a longer note", "", "https://example.com/a"),
		obs("DBM-Core", 3, "ccc", "", "https://example.com/m"),
		obs("DBM Core", 4, "bbb", "", "https://example.com/n"),
		obs("dbmcore", 0, "aaa", "", ""),
		obs("Details", 1, "", "only summary", "https://example.com/d"),
	}

	reference, err := Encode(Build(observations, buildTime))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := make([]model.SeverityObservation, len(observations))
		copy(shuffled, observations)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		body, err := Encode(Build(shuffled, buildTime))
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !bytes.Equal(reference, body) {
			t.Fatalf("permutation %d produced different bytes:\n%s\n%s", i, reference, body)
		}
		if ETag(body) != ETag(reference) {
			t.Fatalf("permutation %d produced different etag", i)
		}
	}
}

func TestSeverityMonotonicAcrossMerges(t *testing.T) {
	f := Build([]model.SeverityObservation{
		obs("DBM", 5, "", "", ""),
		obs("dbm", 0, "", "", ""),
		obs("D.B.M", 2, "", "", ""),
	}, buildTime)
	if f.Items[0].Severity != model.SeverityCritical {
		t.Fatalf("severity must never decrease, got %s", f.Items[0].Severity)
	}
}
