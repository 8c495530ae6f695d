package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Summary records one persisted summary file for an article.
type Summary struct {
	ArticleID int64
	Lang      string
	Path      string
}

// InsertSummaries records summary files for an article in one transaction
// with nothing else, or as part of the analyzer's closing transaction when a
// tx is threaded through SaveSummariesTx.
func (s *Store) InsertSummaries(ctx context.Context, summaries []Summary) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return SaveSummariesTx(ctx, tx, summaries)
	})
}

// SaveSummariesTx inserts summary rows inside an existing transaction.
func SaveSummariesTx(ctx context.Context, tx *sql.Tx, summaries []Summary) error {
	for _, sum := range summaries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO summaries (article_id, lang, path) VALUES (?, ?, ?)
             ON CONFLICT (article_id, lang) DO UPDATE SET path = excluded.path`,
			sum.ArticleID, sum.Lang, sum.Path); err != nil {
			return fmt.Errorf("insert summary %d/%s: %w", sum.ArticleID, sum.Lang, err)
		}
	}
	return nil
}

// SummaryPath returns the summary file location for an article and language.
// ok is false when no summary was recorded.
func (s *Store) SummaryPath(ctx context.Context, articleID int64, lang string) (string, bool, error) {
	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT path FROM summaries WHERE article_id = ? AND lang = ?`,
		articleID, lang,
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query summary path: %w", err)
	}
	return path, true, nil
}

// HasSummaries reports whether any summary rows exist for the article.
func (s *Store) HasSummaries(ctx context.Context, articleID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM summaries WHERE article_id = ?`, articleID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count summaries: %w", err)
	}
	return count > 0, nil
}
