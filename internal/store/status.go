package store

import (
	"context"
	"fmt"
)

// Status aggregates pipeline counters for the operator CLI.
type Status struct {
	Articles     int64
	Downloaded   int64
	Skipped      int64
	Failed       int64
	Analyzed     int64
	Publishable  int64
	Sent         int64
	IndexDays    int64
	GapRanges    int64
	SmartCats    int64
	SourceCats   int64
	SummaryFiles int64
}

// CollectStatus gathers the counters in one pass.
func (s *Store) CollectStatus(ctx context.Context) (Status, error) {
	var status Status
	counters := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(1) FROM articles`, &status.Articles},
		{`SELECT COUNT(1) FROM articles WHERE content_path IS NOT NULL`, &status.Downloaded},
		{`SELECT COUNT(1) FROM articles WHERE skipped = 1`, &status.Skipped},
		{`SELECT COUNT(1) FROM articles WHERE failed = 1`, &status.Failed},
		{`SELECT COUNT(1) FROM notifier_articles`, &status.Analyzed},
		{`SELECT COUNT(1) FROM notifier_articles na
          JOIN smart_categories sc ON sc.category = na.category
          WHERE na.skip = 0 AND na.failed = 0 AND sc.ignore = 0`, &status.Publishable},
		{`SELECT COUNT(1) FROM sent_log`, &status.Sent},
		{`SELECT COUNT(1) FROM daily_index`, &status.IndexDays},
		{`SELECT COUNT(1) FROM gap_ranges`, &status.GapRanges},
		{`SELECT COUNT(1) FROM smart_categories`, &status.SmartCats},
		{`SELECT COUNT(1) FROM categories_catalog`, &status.SourceCats},
		{`SELECT COUNT(1) FROM summaries`, &status.SummaryFiles},
	}
	for _, counter := range counters {
		if err := s.db.QueryRowContext(ctx, counter.query).Scan(counter.dest); err != nil {
			return Status{}, fmt.Errorf("collect status: %w", err)
		}
	}
	return status, nil
}
