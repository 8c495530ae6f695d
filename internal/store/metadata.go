package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IndexArticle is one entry extracted from a day's index JSON.
type IndexArticle struct {
	ID          int64
	URL         string
	PublishedAt time.Time
	Categories  []string
}

// Gap is a half-open [From, To) date interval with no ingested index.
type Gap struct {
	From time.Time
	To   time.Time
}

// Days returns the dates the gap covers, oldest first.
func (g Gap) Days() []time.Time {
	var days []time.Time
	for day := g.From; day.Before(g.To); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

func (g Gap) String() string {
	return fmt.Sprintf("[%s, %s)", formatDay(g.From), formatDay(g.To))
}

// HasDailyIndex reports whether the day's index has been ingested.
func (s *Store) HasDailyIndex(ctx context.Context, day time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_index WHERE day = ?`, formatDay(day),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check daily index: %w", err)
	}
	return count > 0, nil
}

// IndexDayRange returns the oldest and latest ingested days. ok is false when
// no day has been ingested yet.
func (s *Store) IndexDayRange(ctx context.Context) (oldest, latest time.Time, ok bool, err error) {
	var oldestValue, latestValue sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT MIN(day), MAX(day) FROM daily_index`,
	).Scan(&oldestValue, &latestValue)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("query index day range: %w", err)
	}
	if !oldestValue.Valid || !latestValue.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	if oldest, err = s.parseDay(oldestValue.String); err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if latest, err = s.parseDay(latestValue.String); err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return oldest, latest, true, nil
}

// IngestResult summarizes one day's ingestion.
type IngestResult struct {
	NewArticles   int
	NewCategories int
}

// IngestDay applies one day's index in a single transaction: new catalog
// entries, new article rows, category links, and the daily_index marker.
// Articles already stored are skipped, so re-ingesting the same index is a
// no-op apart from refreshing the marker path. Any gap covering the day is shrunk in the same transaction.
func (s *Store) IngestDay(ctx context.Context, day time.Time, path string, entries []IndexArticle) (IngestResult, error) {
	var result IngestResult

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	existing, err := s.ExistingArticleIDs(ctx, ids)
	if err != nil {
		return result, err
	}

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, entry := range entries {
			if _, ok := existing[entry.ID]; ok {
				continue
			}
			for _, category := range entry.Categories {
				res, err := tx.ExecContext(ctx,
					`INSERT INTO categories_catalog (category) VALUES (?)
                     ON CONFLICT (category) DO NOTHING`, category)
				if err != nil {
					return fmt.Errorf("insert category %s: %w", category, err)
				}
				if affected, _ := res.RowsAffected(); affected > 0 {
					result.NewCategories++
				}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO articles (id, url, published_at, content_path, skipped, failed)
                 VALUES (?, ?, ?, NULL, 0, 0)`,
				entry.ID, entry.URL, formatTime(entry.PublishedAt)); err != nil {
				return fmt.Errorf("insert article %d: %w", entry.ID, err)
			}
			for _, category := range entry.Categories {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO article_categories (article_id, category) VALUES (?, ?)
                     ON CONFLICT DO NOTHING`,
					entry.ID, category); err != nil {
					return fmt.Errorf("link article %d to %s: %w", entry.ID, category, err)
				}
			}
			result.NewArticles++
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO daily_index (day, path) VALUES (?, ?)
             ON CONFLICT (day) DO UPDATE SET path = excluded.path`,
			formatDay(day), path); err != nil {
			return fmt.Errorf("mark daily index: %w", err)
		}

		return removeDayFromGaps(ctx, tx, day)
	})
	if err != nil {
		return IngestResult{}, err
	}
	return result, nil
}

// InsertGap records [from, to) as missing, coalescing with any range that
// touches or overlaps it so the table stays disjoint.
func (s *Store) InsertGap(ctx context.Context, from, to time.Time) error {
	if !from.Before(to) {
		return errors.New("insert gap: empty interval")
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		start := formatDay(from)
		end := formatDay(to)

		rows, err := tx.QueryContext(ctx,
			`SELECT start_day, end_day FROM gap_ranges
             WHERE start_day <= ? AND end_day >= ?`, end, start)
		if err != nil {
			return fmt.Errorf("query overlapping gaps: %w", err)
		}
		type rawGap struct{ start, end string }
		var overlapping []rawGap
		for rows.Next() {
			var g rawGap
			if err := rows.Scan(&g.start, &g.end); err != nil {
				rows.Close()
				return err
			}
			overlapping = append(overlapping, g)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, g := range overlapping {
			if g.start < start {
				start = g.start
			}
			if g.end > end {
				end = g.end
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM gap_ranges WHERE start_day = ?`, g.start); err != nil {
				return fmt.Errorf("delete merged gap: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gap_ranges (start_day, end_day) VALUES (?, ?)`, start, end); err != nil {
			return fmt.Errorf("insert gap: %w", err)
		}
		return nil
	})
}

// EarliestGap returns the oldest gap range. ok is false when none exist.
func (s *Store) EarliestGap(ctx context.Context) (Gap, bool, error) {
	var start, end string
	err := s.db.QueryRowContext(ctx,
		`SELECT start_day, end_day FROM gap_ranges ORDER BY start_day LIMIT 1`,
	).Scan(&start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return Gap{}, false, nil
	}
	if err != nil {
		return Gap{}, false, fmt.Errorf("query earliest gap: %w", err)
	}
	gap, err := s.gapFromRaw(start, end)
	if err != nil {
		return Gap{}, false, err
	}
	return gap, true, nil
}

// Gaps returns all gap ranges ordered by start day.
func (s *Store) Gaps(ctx context.Context) ([]Gap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_day, end_day FROM gap_ranges ORDER BY start_day`)
	if err != nil {
		return nil, fmt.Errorf("query gaps: %w", err)
	}
	defer rows.Close()

	var gaps []Gap
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		gap, err := s.gapFromRaw(start, end)
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, gap)
	}
	return gaps, rows.Err()
}

func (s *Store) gapFromRaw(start, end string) (Gap, error) {
	from, err := s.parseDay(start)
	if err != nil {
		return Gap{}, err
	}
	to, err := s.parseDay(end)
	if err != nil {
		return Gap{}, err
	}
	return Gap{From: from, To: to}, nil
}

// removeDayFromGaps shrinks, splits, or deletes the gap covering day so that
// no range overlaps an ingested date.
func removeDayFromGaps(ctx context.Context, tx *sql.Tx, day time.Time) error {
	value := formatDay(day)
	next := formatDay(day.AddDate(0, 0, 1))

	var start, end string
	err := tx.QueryRowContext(ctx,
		`SELECT start_day, end_day FROM gap_ranges WHERE start_day <= ? AND end_day > ?`,
		value, value,
	).Scan(&start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find covering gap: %w", err)
	}

	switch {
	case start == value && end == next:
		_, err = tx.ExecContext(ctx, `DELETE FROM gap_ranges WHERE start_day = ?`, start)
	case start == value:
		_, err = tx.ExecContext(ctx,
			`UPDATE gap_ranges SET start_day = ? WHERE start_day = ?`, next, start)
	case end == next:
		_, err = tx.ExecContext(ctx,
			`UPDATE gap_ranges SET end_day = ? WHERE start_day = ?`, value, start)
	default:
		if _, err = tx.ExecContext(ctx,
			`UPDATE gap_ranges SET end_day = ? WHERE start_day = ?`, value, start); err == nil {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO gap_ranges (start_day, end_day) VALUES (?, ?)`, next, end)
		}
	}
	if err != nil {
		return fmt.Errorf("shrink gap: %w", err)
	}
	return nil
}
