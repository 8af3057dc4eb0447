package model

import "time"

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionReviewed  SubmissionStatus = "reviewed"
	SubmissionDiscarded SubmissionStatus = "discarded"
)

// Article is a curated news entry. Severity is the article-level 0-5
// classifier guess and may be absent for entries added before
// classification existed.
type Article struct {
	ID        string          `json:"id"`
	URL       string          `json:"url"`
	Title     string          `json:"title"`
	Summary   string          `json:"summary"`
	Favicon   string          `json:"favicon"`
	Severity  *int            `json:"severity"`
	CreatedAt time.Time       `json:"created_at"`
	Impacts   []ArticleImpact `json:"impacts"`
}

// ArticleImpact is one reported (addon, severity) pair attached to an
// article. Severity is on the raw 0-5 scale, 0 meaning "safe".
type ArticleImpact struct {
	AddonName string `json:"addon_name"`
	Severity  int    `json:"severity"`
}

// ArticleRef carries the article fields the feed builder needs for
// note/link candidates.
type ArticleRef struct {
	ID      string
	URL     string
	Title   string
	Summary string
}

// SeverityObservation is one immutable (addon, severity, article) fact
// read from storage. AddonName is trimmed and non-empty; a NULL stored
// severity has already been coerced to 0 at the read boundary.
type SeverityObservation struct {
	AddonName string
	Severity  int
	Article   ArticleRef
}

// AddonRollup is the averaged severity per distinct raw addon name,
// recomputed in full on every aggregation.
type AddonRollup struct {
	AddonName string  `json:"addon_name"`
	Severity  float64 `json:"severity"`
}

// ImpactedItem is one entry of the public feed, keyed by canonical slug.
type ImpactedItem struct {
	Slug     string   `json:"slug"`
	Severity Severity `json:"severity"`
	Note     string   `json:"note,omitempty"`
	Link     string   `json:"link,omitempty"`
}

// ImpactedFeed is the slug-keyed public export. Version is the UTC date
// the feed was built (YYYY-MM-DD), not a content hash.
type ImpactedFeed struct {
	Version string         `json:"version"`
	Items   []ImpactedItem `json:"items"`
}

type Submission struct {
	ID        string             `json:"id"`
	URL       string             `json:"url"`
	Title     string             `json:"title"`
	Notes     string             `json:"notes"`
	Status    SubmissionStatus   `json:"status"`
	IPHash    string             `json:"-"`
	UserAgent string             `json:"-"`
	CreatedAt time.Time          `json:"created_at"`
	Addons    []SubmissionImpact `json:"addons"`
}

type SubmissionImpact struct {
	AddonName string `json:"addon_name"`
	Severity  int    `json:"severity"`
}

type ReactionCounts struct {
	Good int `json:"good"`
	Bad  int `json:"bad"`
}
