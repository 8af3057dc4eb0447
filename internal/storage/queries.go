package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"addonwatch/internal/model"
	"addonwatch/internal/normalize"
)

func (b *baseStore) ListArticles(ctx context.Context) ([]model.Article, error) {
	rows, err := b.query(ctx,
		`SELECT id, url, title, summary, favicon, severity, created_at
		FROM articles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := make([]model.Article, 0)
	index := make(map[string]int)
	for rows.Next() {
		var a model.Article
		var severity sql.NullInt64
		var createdAt string
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Summary, &a.Favicon, &severity, &createdAt); err != nil {
			return nil, err
		}
		if severity.Valid {
			v := int(severity.Int64)
			a.Severity = &v
		}
		a.CreatedAt = decodeTime(createdAt)
		a.Impacts = []model.ArticleImpact{}
		index[a.ID] = len(articles)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	impRows, err := b.query(ctx,
		`SELECT article_id, addon_name, severity FROM article_addon_impacts`)
	if err != nil {
		return nil, err
	}
	defer impRows.Close()
	for impRows.Next() {
		var articleID string
		var imp model.ArticleImpact
		var severity sql.NullInt64
		if err := impRows.Scan(&articleID, &imp.AddonName, &severity); err != nil {
			return nil, err
		}
		if severity.Valid {
			imp.Severity = int(severity.Int64)
		}
		if i, ok := index[articleID]; ok {
			articles[i].Impacts = append(articles[i].Impacts, imp)
		}
	}
	return articles, impRows.Err()
}

func (b *baseStore) InsertArticle(ctx context.Context, a model.Article) (model.Article, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = nowUTC()
	}
	_, err := b.exec(ctx,
		`INSERT INTO articles (id, url, title, summary, favicon, severity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.URL, a.Title, a.Summary, a.Favicon, nullableInt(a.Severity), encodeTime(a.CreatedAt))
	return a, err
}

func (b *baseStore) UpsertArticleByURL(ctx context.Context, a model.Article) (model.Article, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = nowUTC()
	}
	_, err := b.exec(ctx,
		`INSERT INTO articles (id, url, title, summary, favicon, severity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			favicon = excluded.favicon,
			severity = excluded.severity`,
		a.ID, a.URL, a.Title, a.Summary, a.Favicon, nullableInt(a.Severity), encodeTime(a.CreatedAt))
	if err != nil {
		return model.Article{}, err
	}
	var id string
	if err := b.queryRow(ctx, `SELECT id FROM articles WHERE url = ?`, a.URL).Scan(&id); err != nil {
		return model.Article{}, err
	}
	a.ID = id
	return a, nil
}

func (b *baseStore) DeleteArticle(ctx context.Context, id string) error {
	if _, err := b.exec(ctx, `DELETE FROM article_addon_impacts WHERE article_id = ?`, id); err != nil {
		return err
	}
	_, err := b.exec(ctx, `DELETE FROM articles WHERE id = ?`, id)
	return err
}

func (b *baseStore) ArticleImpacts(ctx context.Context, articleID string) ([]model.ArticleImpact, error) {
	rows, err := b.query(ctx,
		`SELECT addon_name, severity FROM article_addon_impacts
		WHERE article_id = ? ORDER BY addon_name`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	impacts := make([]model.ArticleImpact, 0)
	for rows.Next() {
		var imp model.ArticleImpact
		var severity sql.NullInt64
		if err := rows.Scan(&imp.AddonName, &severity); err != nil {
			return nil, err
		}
		if severity.Valid {
			imp.Severity = int(severity.Int64)
		}
		impacts = append(impacts, imp)
	}
	return impacts, rows.Err()
}

func (b *baseStore) UpsertArticleImpact(ctx context.Context, articleID string, imp model.ArticleImpact) error {
	_, err := b.exec(ctx,
		`INSERT INTO article_addon_impacts (article_id, addon_name, severity)
		VALUES (?, ?, ?)
		ON CONFLICT (article_id, addon_name) DO UPDATE SET severity = excluded.severity`,
		articleID, imp.AddonName, imp.Severity)
	return err
}

func (b *baseStore) DeleteArticleImpact(ctx context.Context, articleID, addonName string) error {
	_, err := b.exec(ctx,
		`DELETE FROM article_addon_impacts WHERE article_id = ? AND addon_name = ?`,
		articleID, addonName)
	return err
}

func (b *baseStore) ListObservations(ctx context.Context) ([]model.SeverityObservation, error) {
	rows, err := b.query(ctx,
		`SELECT i.addon_name, i.severity, a.id, a.url, a.title, a.summary
		FROM article_addon_impacts i
		JOIN articles a ON a.id = i.article_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	observations := make([]model.SeverityObservation, 0)
	for rows.Next() {
		var name string
		var severity sql.NullInt64
		var ref model.ArticleRef
		if err := rows.Scan(&name, &severity, &ref.ID, &ref.URL, &ref.Title, &ref.Summary); err != nil {
			return nil, err
		}
		var sev *int
		if severity.Valid {
			v := int(severity.Int64)
			sev = &v
		}
		obs, ok := normalize.Observation(name, sev, ref)
		if !ok {
			continue
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

func (b *baseStore) InsertSubmission(ctx context.Context, s model.Submission) (model.Submission, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = nowUTC()
	}
	if s.Status == "" {
		s.Status = model.SubmissionPending
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Submission{}, err
	}
	if _, err := tx.ExecContext(ctx, b.rebind(
		`INSERT INTO submissions (id, url, title, notes, status, ip_hash, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		s.ID, s.URL, s.Title, s.Notes, string(s.Status), s.IPHash, s.UserAgent, encodeTime(s.CreatedAt)); err != nil {
		_ = tx.Rollback()
		return model.Submission{}, err
	}
	for _, imp := range s.Addons {
		if _, err := tx.ExecContext(ctx, b.rebind(
			`INSERT INTO submission_addon_impacts (submission_id, addon_name, severity)
			VALUES (?, ?, ?)
			ON CONFLICT (submission_id, addon_name) DO UPDATE SET severity = excluded.severity`),
			s.ID, imp.AddonName, imp.Severity); err != nil {
			_ = tx.Rollback()
			return model.Submission{}, err
		}
	}
	return s, tx.Commit()
}

func (b *baseStore) ListSubmissions(ctx context.Context, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := b.query(ctx,
		`SELECT id, url, title, notes, status, created_at
		FROM submissions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]model.Submission, 0)
	index := make(map[string]int)
	for rows.Next() {
		var s model.Submission
		var status, createdAt string
		if err := rows.Scan(&s.ID, &s.URL, &s.Title, &s.Notes, &status, &createdAt); err != nil {
			return nil, err
		}
		s.Status = model.SubmissionStatus(status)
		s.CreatedAt = decodeTime(createdAt)
		s.Addons = []model.SubmissionImpact{}
		index[s.ID] = len(subs)
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	impRows, err := b.query(ctx,
		`SELECT submission_id, addon_name, severity FROM submission_addon_impacts`)
	if err != nil {
		return nil, err
	}
	defer impRows.Close()
	for impRows.Next() {
		var submissionID string
		var imp model.SubmissionImpact
		if err := impRows.Scan(&submissionID, &imp.AddonName, &imp.Severity); err != nil {
			return nil, err
		}
		if i, ok := index[submissionID]; ok {
			subs[i].Addons = append(subs[i].Addons, imp)
		}
	}
	return subs, impRows.Err()
}

func (b *baseStore) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	var s model.Submission
	var status, createdAt string
	err := b.queryRow(ctx,
		`SELECT id, url, title, notes, status, created_at FROM submissions WHERE id = ?`, id).
		Scan(&s.ID, &s.URL, &s.Title, &s.Notes, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Submission{}, ErrNotFound
	}
	if err != nil {
		return model.Submission{}, err
	}
	s.Status = model.SubmissionStatus(status)
	s.CreatedAt = decodeTime(createdAt)

	rows, err := b.query(ctx,
		`SELECT addon_name, severity FROM submission_addon_impacts WHERE submission_id = ?`, id)
	if err != nil {
		return model.Submission{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var imp model.SubmissionImpact
		if err := rows.Scan(&imp.AddonName, &imp.Severity); err != nil {
			return model.Submission{}, err
		}
		s.Addons = append(s.Addons, imp)
	}
	return s, rows.Err()
}

func (b *baseStore) SetSubmissionStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	res, err := b.exec(ctx, `UPDATE submissions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (b *baseStore) CountSubmissionsSince(ctx context.Context, ipHash string, since time.Time) (int, error) {
	var count int
	err := b.queryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE ip_hash = ? AND created_at > ?`,
		ipHash, encodeTime(since)).Scan(&count)
	return count, err
}

func (b *baseStore) UpsertReaction(ctx context.Context, articleID, reactorID, reaction string) error {
	_, err := b.exec(ctx,
		`INSERT INTO article_reactions (article_id, reactor_id, reaction, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (article_id, reactor_id) DO UPDATE SET reaction = excluded.reaction`,
		articleID, reactorID, reaction, encodeTime(nowUTC()))
	return err
}

func (b *baseStore) DeleteReaction(ctx context.Context, articleID, reactorID string) error {
	_, err := b.exec(ctx,
		`DELETE FROM article_reactions WHERE article_id = ? AND reactor_id = ?`,
		articleID, reactorID)
	return err
}

func (b *baseStore) GetReaction(ctx context.Context, articleID, reactorID string) (string, error) {
	var reaction string
	err := b.queryRow(ctx,
		`SELECT reaction FROM article_reactions WHERE article_id = ? AND reactor_id = ?`,
		articleID, reactorID).Scan(&reaction)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return reaction, err
}

func (b *baseStore) CountReactions(ctx context.Context, articleID string) (model.ReactionCounts, error) {
	rows, err := b.query(ctx,
		`SELECT reaction, COUNT(*) FROM article_reactions WHERE article_id = ? GROUP BY reaction`,
		articleID)
	if err != nil {
		return model.ReactionCounts{}, err
	}
	defer rows.Close()
	var counts model.ReactionCounts
	for rows.Next() {
		var reaction string
		var n int
		if err := rows.Scan(&reaction, &n); err != nil {
			return model.ReactionCounts{}, err
		}
		switch reaction {
		case "good":
			counts.Good = n
		case "bad":
			counts.Bad = n
		}
	}
	return counts, rows.Err()
}

func (b *baseStore) SaveReactionCounts(ctx context.Context, articleID string, counts model.ReactionCounts) error {
	_, err := b.exec(ctx,
		`INSERT INTO article_reaction_counts (article_id, good_count, bad_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (article_id) DO UPDATE SET
			good_count = excluded.good_count,
			bad_count = excluded.bad_count,
			updated_at = excluded.updated_at`,
		articleID, counts.Good, counts.Bad, encodeTime(nowUTC()))
	return err
}

func (b *baseStore) GetReactionCounts(ctx context.Context, articleID string) (model.ReactionCounts, bool, error) {
	var counts model.ReactionCounts
	err := b.queryRow(ctx,
		`SELECT good_count, bad_count FROM article_reaction_counts WHERE article_id = ?`,
		articleID).Scan(&counts.Good, &counts.Bad)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReactionCounts{}, false, nil
	}
	if err != nil {
		return model.ReactionCounts{}, false, err
	}
	return counts, true, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
