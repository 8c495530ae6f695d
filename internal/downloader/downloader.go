package downloader

import (
	"context"
	"log/slog"
	"time"

	"tico/internal/config"
	"tico/internal/files"
	"tico/internal/htmlmd"
	"tico/internal/logging"
	"tico/internal/sched"
	"tico/internal/store"
)

const connectivityTimeout = 5 * time.Second

// sourceClient is the slice of crhoy.Client the downloader depends on.
type sourceClient interface {
	CheckInternet(ctx context.Context, timeout time.Duration) bool
	CheckWebsite(ctx context.Context) bool
	FetchArticle(ctx context.Context, url string) (string, error)
}

// Downloader fetches and analyzes article content.
type Downloader struct {
	cfg      *config.Config
	store    *store.Store
	client   sourceClient
	analyzer *Analyzer
	triggers *sched.TriggerTimes
	logger   *slog.Logger

	ignore map[string]struct{}
	now    func() time.Time
}

// Option customizes the downloader.
type Option func(*Downloader)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(d *Downloader) {
		d.now = now
	}
}

// New constructs a downloader.
func New(cfg *config.Config, st *store.Store, client sourceClient, analyzer *Analyzer, triggers *sched.TriggerTimes, logger *slog.Logger, opts ...Option) *Downloader {
	ignore := make(map[string]struct{}, len(cfg.Downloader.IgnoreCategories))
	for _, category := range cfg.Downloader.IgnoreCategories {
		ignore[category] = struct{}{}
	}
	d := &Downloader{
		cfg:      cfg,
		store:    st,
		client:   client,
		analyzer: analyzer,
		triggers: triggers,
		logger:   logging.NewComponentLogger(logger, "downloader"),
		ignore:   ignore,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the main loop until ctx is cancelled.
func (d *Downloader) Run(ctx context.Context) error {
	d.logger.Info("starting news downloader")

	interval := time.Duration(d.cfg.Downloader.DownloadInterval) * time.Second
	for {
		if ctx.Err() != nil {
			break
		}
		if !d.checkConnectivity(ctx) {
			d.logger.Warn("no connectivity, skipping this cycle")
		} else if err := d.ProcessChunk(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("chunk processing failed", logging.Error(err))
		}
		if err := sched.Sleep(ctx, interval, sched.DefaultQuantum); err != nil {
			break
		}
	}

	d.logger.Info("news downloader shutdown complete")
	return nil
}

// ProcessChunk selects and processes one chunk of articles. Each article is
// handled in its own transaction; failures never abort the chunk.
func (d *Downloader) ProcessChunk(ctx context.Context) error {
	windowStart := d.triggers.ShiftedPrevious(d.now(), time.Duration(d.cfg.Notifier.WindowShift)*time.Second)

	articles, err := d.store.ArticlesToDownload(ctx, windowStart, d.cfg.Downloader.DownloadsChunkSize)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		d.logger.Debug("no articles to process")
		return nil
	}

	ids := make([]int64, 0, len(articles))
	for _, article := range articles {
		ids = append(ids, article.ID)
	}
	categories, err := d.store.ArticleCategories(ctx, ids)
	if err != nil {
		return err
	}

	d.logger.Info("processing article chunk", logging.Int("count", len(articles)))

	for _, article := range articles {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.processArticle(ctx, article, categories[article.ID])
	}
	return nil
}

// processArticle downloads one article and, when the download succeeds, runs
// analysis in a separate transaction.
func (d *Downloader) processArticle(ctx context.Context, article *store.Article, categories []string) {
	articleLogger := d.logger.With(logging.Int64(logging.FieldArticle, article.ID))

	if ignored, category := d.ignoredCategory(categories); ignored {
		if err := d.store.MarkSkipped(ctx, article.ID); err != nil {
			articleLogger.Error("failed to mark article skipped", logging.Error(err))
			return
		}
		articleLogger.Info("article skipped, ignored source category",
			logging.String("category", category))
		return
	}

	path, ok := d.downloadArticle(ctx, article, articleLogger)
	if !ok {
		if ctx.Err() != nil {
			return
		}
		if err := d.store.MarkFailed(ctx, article.ID); err != nil {
			articleLogger.Error("failed to mark article failed", logging.Error(err))
		}
		articleLogger.Info("article failed")
		return
	}

	article.ContentPath = path
	if err := d.store.SetContentPath(ctx, article.ID, path); err != nil {
		articleLogger.Error("failed to record content path", logging.Error(err))
		return
	}
	articleLogger.Info("article downloaded", logging.String("path", path))

	if err := d.analyzer.Analyze(ctx, article, false); err != nil && ctx.Err() == nil {
		articleLogger.Error("article analysis failed", logging.Error(err))
	}
}

// downloadArticle fetches and parses the page, persisting the markdown.
// Returns the content path, or ok=false on any failure worth marking the
// article failed for.
func (d *Downloader) downloadArticle(ctx context.Context, article *store.Article, articleLogger *slog.Logger) (string, bool) {
	html, err := d.client.FetchArticle(ctx, article.URL)
	if err != nil {
		articleLogger.Error("failed to fetch article", logging.Error(err))
		return "", false
	}

	parsed, err := htmlmd.Parse(html)
	if err != nil {
		articleLogger.Error("failed to parse article", logging.Error(err))
		return "", false
	}

	path := files.ArticlePath(d.cfg.Paths.DataDir, article.PublishedAt.In(d.cfg.Location()), article.ID)
	if err := files.WriteAtomic(path, []byte(parsed.Markdown)); err != nil {
		articleLogger.Error("failed to save article content", logging.Error(err))
		return "", false
	}
	return path, true
}

func (d *Downloader) ignoredCategory(categories []string) (bool, string) {
	for _, category := range categories {
		if _, ok := d.ignore[category]; ok {
			return true, category
		}
	}
	return false, ""
}

func (d *Downloader) checkConnectivity(ctx context.Context) bool {
	if !d.client.CheckInternet(ctx, connectivityTimeout) {
		return false
	}
	return d.client.CheckWebsite(ctx)
}
