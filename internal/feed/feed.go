package feed

import (
	"sort"
	"time"

	"addonwatch/internal/model"
	"addonwatch/internal/normalize"
)

// Build reduces observations into the slug-keyed public feed. The feed
// is served behind a content-hash ETag, so every merge rule below must
// be a pure function of the candidate set, independent of the order
// observations arrive in: severity is a max-reduction, the note is the
// longest (lexicographically smallest on equal length) and the link is
// the lexicographically smallest non-empty URL.
func Build(observations []model.SeverityObservation, now time.Time) model.ImpactedFeed {
	bySlug := make(map[string]model.ImpactedItem)

	for _, obs := range observations {
		slug := normalize.Slug(obs.AddonName)
		if slug == "" {
			continue
		}
		candidate := model.ImpactedItem{
			Slug:     slug,
			Severity: normalize.SeverityScore(float64(obs.Severity)),
			Note:     noteCandidate(obs.Article),
			Link:     obs.Article.URL,
		}
		existing, ok := bySlug[slug]
		if !ok {
			bySlug[slug] = candidate
			continue
		}
		existing.Severity = normalize.PickHigher(existing.Severity, candidate.Severity)
		existing.Note = betterNote(existing.Note, candidate.Note)
		existing.Link = betterLink(existing.Link, candidate.Link)
		bySlug[slug] = existing
	}

	items := make([]model.ImpactedItem, 0, len(bySlug))
	for _, item := range bySlug {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Slug < items[j].Slug
	})

	return model.ImpactedFeed{
		Version: now.UTC().Format("2006-01-02"),
		Items:   items,
	}
}

func noteCandidate(article model.ArticleRef) string {
	if article.Title != "" {
		return article.Title
	}
	return article.Summary
}

func betterNote(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if len(a) != len(b) {
		if len(a) > len(b) {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

func betterLink(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a < b {
		return a
	}
	return b
}
