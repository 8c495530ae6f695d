package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Relation describes how an article relates to the channel's locus.
type Relation string

const (
	RelationDirect   Relation = "directly"
	RelationIndirect Relation = "indirectly"
	RelationNone     Relation = "na"
)

// ParseRelation validates a relation wire value.
func ParseRelation(value string) (Relation, error) {
	switch Relation(value) {
	case RelationDirect, RelationIndirect, RelationNone:
		return Relation(value), nil
	}
	return "", fmt.Errorf("unknown relation %q", value)
}

// NotifierArticle is the ready-to-publish projection of an analyzed article.
type NotifierArticle struct {
	ArticleID   int64
	PublishedAt time.Time
	Relation    Relation
	Category    string
	Skip        bool
	Failed      bool
}

// UpsertNotifierArticle records (or overwrites) the analysis outcome for an
// article. Exactly one row exists per analyzed article.
func (s *Store) UpsertNotifierArticle(ctx context.Context, na NotifierArticle) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return upsertNotifierArticleTx(ctx, tx, na)
	})
}

func upsertNotifierArticleTx(ctx context.Context, tx *sql.Tx, na NotifierArticle) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO notifier_articles (article_id, published_at, relation, category, skip, failed)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (article_id) DO UPDATE SET
             published_at = excluded.published_at,
             relation = excluded.relation,
             category = excluded.category,
             skip = excluded.skip,
             failed = excluded.failed`,
		na.ArticleID, formatTime(na.PublishedAt), string(na.Relation), na.Category,
		boolToInt(na.Skip), boolToInt(na.Failed)); err != nil {
		return fmt.Errorf("upsert notifier article: %w", err)
	}
	return nil
}

// SaveAnalysis persists the summary rows and the notifier projection in one
// transaction, so a crash cannot record an analyzed article without its
// summaries.
func (s *Store) SaveAnalysis(ctx context.Context, na NotifierArticle, summaries []Summary) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := SaveSummariesTx(ctx, tx, summaries); err != nil {
			return err
		}
		return upsertNotifierArticleTx(ctx, tx, na)
	})
}

// GetNotifierArticle fetches the analysis row for an article; nil when the
// article has not been analyzed.
func (s *Store) GetNotifierArticle(ctx context.Context, id int64) (*NotifierArticle, error) {
	var (
		na          NotifierArticle
		publishedAt string
		relation    string
		skip        int
		failed      int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT article_id, published_at, relation, category, skip, failed
         FROM notifier_articles WHERE article_id = ?`, id,
	).Scan(&na.ArticleID, &publishedAt, &relation, &na.Category, &skip, &failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notifier article: %w", err)
	}
	if na.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, err
	}
	if na.Relation, err = ParseRelation(relation); err != nil {
		return nil, err
	}
	na.Skip = skip != 0
	na.Failed = failed != 0
	return &na, nil
}

// Candidate is one article eligible for publication.
type Candidate struct {
	ArticleID   int64
	PublishedAt time.Time
	URL         string
	Category    string
}

// CandidatesToSend selects articles whose publication timestamp lies in the
// half-open [from, to) window, that analysis marked publishable, whose smart
// category is not ignored, and that have no sent-log row. Ordered by
// publication timestamp ascending.
func (s *Store) CandidatesToSend(ctx context.Context, from, to time.Time) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT na.article_id, na.published_at, a.url, na.category
         FROM notifier_articles na
         JOIN articles a ON a.id = na.article_id
         JOIN smart_categories sc ON sc.category = na.category
         WHERE na.published_at >= ? AND na.published_at < ?
           AND na.skip = 0 AND na.failed = 0
           AND na.relation IN (?, ?)
           AND sc.ignore = 0
           AND NOT EXISTS (SELECT 1 FROM sent_log sl WHERE sl.article_id = na.article_id)
         ORDER BY na.published_at ASC`,
		formatTime(from), formatTime(to),
		string(RelationDirect), string(RelationIndirect))
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var (
			c           Candidate
			publishedAt string
		)
		if err := rows.Scan(&c.ArticleID, &publishedAt, &c.URL, &c.Category); err != nil {
			return nil, err
		}
		if c.PublishedAt, err = parseTime(publishedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// RecordSent inserts the sent-log row for an article. Re-recording is a
// no-op so a crash between send and commit cannot fail the next cycle.
func (s *Store) RecordSent(ctx context.Context, id int64, publishedAt time.Time) error {
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO sent_log (article_id, published_at) VALUES (?, ?)
         ON CONFLICT (article_id) DO NOTHING`,
		id, formatTime(publishedAt)); err != nil {
		return fmt.Errorf("record sent: %w", err)
	}
	return nil
}

// PruneSentLog deletes sent-log rows with publication timestamps before the
// retention horizon. Returns the number of pruned rows.
func (s *Store) PruneSentLog(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM sent_log WHERE published_at < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("prune sent log: %w", err)
	}
	return res.RowsAffected()
}

// SentArticleIDs returns the IDs present in the sent log.
func (s *Store) SentArticleIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT article_id FROM sent_log`)
	if err != nil {
		return nil, fmt.Errorf("query sent log: %w", err)
	}
	defer rows.Close()

	sent := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		sent[id] = struct{}{}
	}
	return sent, rows.Err()
}
