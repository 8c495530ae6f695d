package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Article is one news item observed from the source index.
type Article struct {
	ID          int64
	URL         string
	PublishedAt time.Time
	ContentPath string
	Skipped     bool
	Failed      bool
}

const articleColumns = "id, url, published_at, content_path, skipped, failed"

func scanArticle(row interface{ Scan(...any) error }) (*Article, error) {
	var (
		a           Article
		publishedAt string
		contentPath sql.NullString
		skipped     int
		failed      int
	)
	if err := row.Scan(&a.ID, &a.URL, &publishedAt, &contentPath, &skipped, &failed); err != nil {
		return nil, err
	}
	ts, err := parseTime(publishedAt)
	if err != nil {
		return nil, err
	}
	a.PublishedAt = ts
	a.ContentPath = contentPath.String
	a.Skipped = skipped != 0
	a.Failed = failed != 0
	return &a, nil
}

// GetArticle fetches one article by ID; nil when absent.
func (s *Store) GetArticle(ctx context.Context, id int64) (*Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// ExistingArticleIDs returns which of the given IDs are already stored.
func (s *Store) ExistingArticleIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	existing := make(map[int64]struct{}, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}
	query := `SELECT id FROM articles WHERE id IN (` + makePlaceholders(len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing articles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

// ArticlesToDownload selects up to limit unprocessed articles using the
// two-tier order: articles inside the current notification window oldest
// first, then backlog newest first.
func (s *Store) ArticlesToDownload(ctx context.Context, windowStart time.Time, limit int) ([]*Article, error) {
	const pending = `content_path IS NULL AND skipped = 0 AND failed = 0`

	recent, err := s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles
         WHERE `+pending+` AND published_at >= ?
         ORDER BY published_at ASC LIMIT ?`,
		formatTime(windowStart), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent articles: %w", err)
	}

	remaining := limit - len(recent)
	if remaining <= 0 {
		return recent, nil
	}

	older, err := s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles
         WHERE `+pending+` AND published_at < ?
         ORDER BY published_at DESC LIMIT ?`,
		formatTime(windowStart), remaining,
	)
	if err != nil {
		return nil, fmt.Errorf("query backlog articles: %w", err)
	}
	return append(recent, older...), nil
}

func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]*Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// ArticleCategories returns the source-declared category paths for the given
// article IDs.
func (s *Store) ArticleCategories(ctx context.Context, ids []int64) (map[int64][]string, error) {
	categories := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return categories, nil
	}
	query := `SELECT article_id, category FROM article_categories
              WHERE article_id IN (` + makePlaceholders(len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query article categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id       int64
			category string
		)
		if err := rows.Scan(&id, &category); err != nil {
			return nil, err
		}
		categories[id] = append(categories[id], category)
	}
	return categories, rows.Err()
}

// MarkSkipped records that the article was filtered out by its source
// category. Only the downloader calls this.
func (s *Store) MarkSkipped(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `UPDATE articles SET skipped = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark skipped: %w", err)
	}
	return nil
}

// MarkFailed records a permanent download or parse failure.
func (s *Store) MarkFailed(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `UPDATE articles SET failed = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// SetContentPath records the downloaded markdown location.
func (s *Store) SetContentPath(ctx context.Context, id int64, path string) error {
	if _, err := s.execWithRetry(ctx, `UPDATE articles SET content_path = ? WHERE id = ?`, path, id); err != nil {
		return fmt.Errorf("set content path: %w", err)
	}
	return nil
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
