package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"addonwatch/internal/config"
	"addonwatch/internal/model"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	Init(ctx context.Context) error
	Close() error

	ListArticles(ctx context.Context) ([]model.Article, error)
	InsertArticle(ctx context.Context, a model.Article) (model.Article, error)
	UpsertArticleByURL(ctx context.Context, a model.Article) (model.Article, error)
	DeleteArticle(ctx context.Context, id string) error

	ArticleImpacts(ctx context.Context, articleID string) ([]model.ArticleImpact, error)
	UpsertArticleImpact(ctx context.Context, articleID string, imp model.ArticleImpact) error
	DeleteArticleImpact(ctx context.Context, articleID, addonName string) error

	// ListObservations joins article impacts with their articles and is
	// the sole read path feeding the aggregation core.
	ListObservations(ctx context.Context) ([]model.SeverityObservation, error)

	InsertSubmission(ctx context.Context, s model.Submission) (model.Submission, error)
	ListSubmissions(ctx context.Context, limit int) ([]model.Submission, error)
	GetSubmission(ctx context.Context, id string) (model.Submission, error)
	SetSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) error
	CountSubmissionsSince(ctx context.Context, ipHash string, since time.Time) (int, error)

	UpsertReaction(ctx context.Context, articleID, reactorID, reaction string) error
	DeleteReaction(ctx context.Context, articleID, reactorID string) error
	GetReaction(ctx context.Context, articleID, reactorID string) (string, error)
	CountReactions(ctx context.Context, articleID string) (model.ReactionCounts, error)
	SaveReactionCounts(ctx context.Context, articleID string, counts model.ReactionCounts) error
	GetReactionCounts(ctx context.Context, articleID string) (model.ReactionCounts, bool, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

// baseStore holds the shared query implementations. The two drivers
// differ only in DDL and placeholder style, so queries are written
// with ? and rebound for postgres.
type baseStore struct {
	db     *sql.DB
	rebind func(string) string
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return b.db.ExecContext(ctx, b.rebind(query), args...)
}

func (b *baseStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return b.db.QueryContext(ctx, b.rebind(query), args...)
}

func (b *baseStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return b.db.QueryRowContext(ctx, b.rebind(query), args...)
}

func identityRebind(query string) string {
	return query
}

// numberedRebind converts ? placeholders to $1..$n for pgx. Queries
// here never contain a literal question mark.
func numberedRebind(query string) string {
	var sb strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

// Timestamps are stored as RFC 3339 text in both drivers so scans stay
// driver-agnostic. The fraction is fixed-width: created_at columns are
// compared and sorted lexicographically, and RFC3339Nano trims trailing
// zeros, which breaks that ordering within a second.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
