package synchronizer

import (
	"context"
	"log/slog"
	"time"

	"tico/internal/config"
	"tico/internal/crhoy"
	"tico/internal/files"
	"tico/internal/logging"
	"tico/internal/sched"
	"tico/internal/store"
)

const connectivityTimeout = 5 * time.Second

// sourceClient is the slice of crhoy.Client the synchronizer depends on.
type sourceClient interface {
	CheckInternet(ctx context.Context, timeout time.Duration) bool
	CheckAPI(ctx context.Context) bool
	FetchDailyIndex(ctx context.Context, day time.Time) ([]crhoy.IndexEntry, []byte, error)
}

// Synchronizer maintains daily index coverage.
type Synchronizer struct {
	cfg    *config.Config
	store  *store.Store
	client sourceClient
	logger *slog.Logger

	now func() time.Time
}

// Option customizes the synchronizer.
type Option func(*Synchronizer)

// WithClock overrides the wall clock (used by tests to simulate day
// switches).
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		s.now = now
	}
}

// New constructs a synchronizer.
func New(cfg *config.Config, st *store.Store, client sourceClient, logger *slog.Logger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		cfg:    cfg,
		store:  st,
		client: client,
		logger: logging.NewComponentLogger(logger, "synchronizer"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the main loop until ctx is cancelled.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.logger.Info("starting metadata synchronizer")

	if err := s.HandleInitialGaps(ctx); err != nil {
		s.logger.Error("initial gap seeding failed", logging.Error(err))
	}

	interval := time.Duration(s.cfg.Synchronizer.CheckUpdatesInterval) * time.Second
	for {
		if ctx.Err() != nil {
			break
		}
		if err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("synchronizer cycle failed", logging.Error(err))
		}
		if err := sched.Sleep(ctx, interval, sched.DefaultQuantum); err != nil {
			break
		}
	}

	s.logger.Info("metadata synchronizer shutdown complete")
	return nil
}

// RunCycle performs one unit of synchronizer work: connectivity probe, day
// switch handling, today's ingestion, and one gap chunk.
func (s *Synchronizer) RunCycle(ctx context.Context) error {
	if !s.checkConnectivity(ctx) {
		s.logger.Warn("no connectivity, skipping this cycle")
		return nil
	}

	today := s.today()

	hasToday, err := s.store.HasDailyIndex(ctx, today)
	if err != nil {
		return err
	}
	if !hasToday {
		if err := s.handleDaySwitch(ctx, today); err != nil {
			s.logger.Error("day switch handling failed", logging.Error(err))
		}
	}

	if err := s.ingestDay(ctx, today); err != nil {
		s.logger.Error("failed to ingest current day",
			logging.String(logging.FieldDay, today.Format("2006-01-02")),
			logging.Error(err),
		)
	}

	if err := s.processEarliestGap(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("gap processing failed", logging.Error(err))
	}
	return nil
}

// HandleInitialGaps seeds the historical gap from first_day to the oldest
// ingested day. Called once at startup.
func (s *Synchronizer) HandleInitialGaps(ctx context.Context) error {
	firstDay, err := s.cfg.FirstDay()
	if err != nil {
		return err
	}
	if firstDay.IsZero() {
		return nil
	}

	oldest, _, ok, err := s.store.IndexDayRange(ctx)
	if err != nil {
		return err
	}
	if !ok || !firstDay.Before(oldest) {
		return nil
	}

	if err := s.store.InsertGap(ctx, firstDay, oldest); err != nil {
		return err
	}
	s.logger.Info("inserted historical gap",
		logging.String("from", firstDay.Format("2006-01-02")),
		logging.String("to", oldest.Format("2006-01-02")),
	)
	return nil
}

// handleDaySwitch opens a gap covering [last ingested day + 1, today) when
// the wall clock advanced past the last processed date.
func (s *Synchronizer) handleDaySwitch(ctx context.Context, today time.Time) error {
	_, latest, ok, err := s.store.IndexDayRange(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	from := latest.AddDate(0, 0, 1)
	if !from.Before(today) {
		return nil
	}
	if err := s.store.InsertGap(ctx, from, today); err != nil {
		return err
	}
	s.logger.Info("day switch detected, inserted gap",
		logging.String("from", from.Format("2006-01-02")),
		logging.String("to", today.Format("2006-01-02")),
	)
	return nil
}

// processEarliestGap backfills up to days_chunk_size dates of the earliest
// gap, oldest first. Each covered day shrinks the range inside the day's
// ingestion transaction; an empty range deletes itself.
func (s *Synchronizer) processEarliestGap(ctx context.Context) error {
	gap, ok, err := s.store.EarliestGap(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.logger.Info("processing earliest gap", logging.String("gap", gap.String()))

	days := gap.Days()
	if len(days) > s.cfg.Synchronizer.DaysChunkSize {
		days = days[:s.cfg.Synchronizer.DaysChunkSize]
	}
	for _, day := range days {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.ingestDay(ctx, day); err != nil {
			return err
		}
	}
	return nil
}

// ingestDay fetches, persists, and applies one day's index in a single
// transaction. The saved JSON stays on disk even when the transaction rolls
// back; re-ingestion is idempotent.
func (s *Synchronizer) ingestDay(ctx context.Context, day time.Time) error {
	entries, raw, err := s.client.FetchDailyIndex(ctx, day)
	if err != nil {
		return err
	}

	path := files.MetadataPath(s.cfg.Paths.DataDir, day)
	if err := files.WriteAtomic(path, raw); err != nil {
		return err
	}

	indexed := make([]store.IndexArticle, 0, len(entries))
	for _, entry := range entries {
		article := store.IndexArticle{
			ID:          entry.ID,
			URL:         entry.URL,
			PublishedAt: entry.PublishedAt,
		}
		if entry.CategoryPath != "" {
			article.Categories = []string{entry.CategoryPath}
		}
		indexed = append(indexed, article)
	}

	result, err := s.store.IngestDay(ctx, day, path, indexed)
	if err != nil {
		return err
	}
	s.logger.Info("ingested daily index",
		logging.String(logging.FieldDay, day.Format("2006-01-02")),
		logging.Int("new_articles", result.NewArticles),
		logging.Int("new_categories", result.NewCategories),
	)
	return nil
}

func (s *Synchronizer) checkConnectivity(ctx context.Context) bool {
	if !s.client.CheckInternet(ctx, connectivityTimeout) {
		return false
	}
	return s.client.CheckAPI(ctx)
}

func (s *Synchronizer) today() time.Time {
	now := s.now().In(s.cfg.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location())
}
