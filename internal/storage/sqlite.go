package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:addonwatch.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db, rebind: identityRebind}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			favicon TEXT NOT NULL DEFAULT '',
			severity INTEGER,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_created ON articles(created_at)`,
		`CREATE TABLE IF NOT EXISTS article_addon_impacts (
			article_id TEXT NOT NULL,
			addon_name TEXT NOT NULL,
			severity INTEGER,
			PRIMARY KEY (article_id, addon_name)
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			ip_hash TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_iphash ON submissions(ip_hash, created_at)`,
		`CREATE TABLE IF NOT EXISTS submission_addon_impacts (
			submission_id TEXT NOT NULL,
			addon_name TEXT NOT NULL,
			severity INTEGER NOT NULL,
			PRIMARY KEY (submission_id, addon_name)
		)`,
		`CREATE TABLE IF NOT EXISTS article_reactions (
			article_id TEXT NOT NULL,
			reactor_id TEXT NOT NULL,
			reaction TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (article_id, reactor_id)
		)`,
		`CREATE TABLE IF NOT EXISTS article_reaction_counts (
			article_id TEXT PRIMARY KEY,
			good_count INTEGER NOT NULL,
			bad_count INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
