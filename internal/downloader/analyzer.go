package downloader

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"tico/internal/agents"
	"tico/internal/config"
	"tico/internal/files"
	"tico/internal/logging"
	"tico/internal/sched"
	"tico/internal/services"
	"tico/internal/store"
)

// Analyzer orchestrates the LLM pipeline for downloaded articles and records
// the outcomes.
type Analyzer struct {
	cfg      *config.Config
	store    *store.Store
	pipeline *agents.Pipeline
	triggers *sched.TriggerTimes
	logger   *slog.Logger

	now func() time.Time
}

// AnalyzerOption customizes the analyzer.
type AnalyzerOption func(*Analyzer)

// WithAnalyzerClock overrides the wall clock.
func WithAnalyzerClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.now = now
	}
}

// NewAnalyzer constructs an analyzer.
func NewAnalyzer(cfg *config.Config, st *store.Store, pipeline *agents.Pipeline, triggers *sched.TriggerTimes, logger *slog.Logger, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		cfg:      cfg,
		store:    st,
		pipeline: pipeline,
		triggers: triggers,
		logger:   logging.NewComponentLogger(logger, "analyzer"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze categorizes and summarizes one downloaded article. Articles older
// than the previous trigger are skipped unless force is set; the article
// stays downloaded but gets no notifier row. On unrecoverable pipeline
// failure the notifier row is recorded with the unknown category and
// failed=true.
func (a *Analyzer) Analyze(ctx context.Context, article *store.Article, force bool) error {
	articleLogger := a.logger.With(logging.Int64(logging.FieldArticle, article.ID))

	if !force {
		previousTrigger := a.triggers.Current(a.now())
		if article.PublishedAt.Before(previousTrigger) {
			articleLogger.Debug("skipping analysis, article predates previous trigger",
				logging.Time("published_at", article.PublishedAt),
				logging.Time("previous_trigger", previousTrigger),
			)
			return nil
		}
	}

	existing, err := a.store.GetNotifierArticle(ctx, article.ID)
	if err != nil {
		return err
	}
	if existing != nil && !existing.Failed {
		hasSummaries, err := a.store.HasSummaries(ctx, article.ID)
		if err != nil {
			return err
		}
		if hasSummaries || existing.Skip {
			articleLogger.Info("article already analyzed")
			return nil
		}
	}

	if article.ContentPath == "" {
		return services.Wrap(services.ErrStorage, "analyzer", "read content", "article has no content file", nil)
	}
	content, err := os.ReadFile(article.ContentPath)
	if err != nil {
		return services.Wrap(services.ErrStorage, "analyzer", "read content", article.ContentPath, err)
	}

	smartCategories, ignored, err := a.loadCategories(ctx)
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	result, err := a.pipeline.Categorize(ctx, sessionID, string(content), smartCategories)
	if err != nil {
		a.recordFailure(ctx, article, store.RelationNone, store.UnknownCategory, articleLogger)
		return err
	}

	category := result.Category
	if category == "" {
		category = store.UnknownCategory
	}
	if result.New && result.Category != "" {
		if err := a.store.UpsertSmartCategory(ctx, store.SmartCategory{
			Category:    result.Category,
			Description: result.Description,
		}); err != nil {
			a.recordFailure(ctx, article, store.Relation(result.Relation), store.UnknownCategory, articleLogger)
			return err
		}
		articleLogger.Info("added new smart category",
			logging.String("category", result.Category),
			logging.String("description", result.Description),
		)
		smartCategories[result.Category] = result.Description
	}

	relation := store.Relation(result.Relation)
	_, categoryIgnored := ignored[category]
	shouldSkip := relation == store.RelationNone || categoryIgnored

	row := store.NotifierArticle{
		ArticleID:   article.ID,
		PublishedAt: article.PublishedAt,
		Relation:    relation,
		Category:    category,
		Skip:        shouldSkip,
	}

	if shouldSkip {
		if err := a.store.UpsertNotifierArticle(ctx, row); err != nil {
			return err
		}
		articleLogger.Info("article analyzed, not publishable",
			logging.String("relation", string(relation)),
			logging.String("category", category),
		)
		return nil
	}

	summaries, err := a.pipeline.Summarize(ctx, sessionID, string(content), a.cfg.Notifier.Languages)
	if err != nil {
		a.recordFailure(ctx, article, relation, store.UnknownCategory, articleLogger)
		return err
	}

	records, err := a.saveSummaries(article, summaries)
	if err != nil {
		a.recordFailure(ctx, article, relation, category, articleLogger)
		return err
	}

	if err := a.store.SaveAnalysis(ctx, row, records); err != nil {
		return err
	}
	articleLogger.Info("article analyzed",
		logging.String("relation", string(relation)),
		logging.String("category", category),
	)
	return nil
}

// loadCategories splits the smart category table into the prompt map
// (without the unknown fallback) and the ignored set.
func (a *Analyzer) loadCategories(ctx context.Context) (map[string]string, map[string]struct{}, error) {
	all, err := a.store.SmartCategories(ctx)
	if err != nil {
		return nil, nil, err
	}
	categories := make(map[string]string, len(all))
	ignored := make(map[string]struct{})
	for _, cat := range all {
		if cat.Ignore {
			ignored[cat.Category] = struct{}{}
		}
		if cat.Category == store.UnknownCategory {
			continue
		}
		categories[cat.Category] = cat.Description
	}
	return categories, ignored, nil
}

func (a *Analyzer) saveSummaries(article *store.Article, result agents.SummaryResult) ([]store.Summary, error) {
	published := article.PublishedAt.In(a.cfg.Location())
	records := make([]store.Summary, 0, len(result.Translations))
	for lang, text := range result.Translations {
		path := files.SummaryPath(a.cfg.Paths.DataDir, published, article.ID, lang)
		if err := files.WriteAtomic(path, []byte(text)); err != nil {
			return nil, services.Wrap(services.ErrStorage, "analyzer", "save summary", lang, err)
		}
		records = append(records, store.Summary{ArticleID: article.ID, Lang: lang, Path: path})
	}
	return records, nil
}

// recordFailure writes the fallback notifier row after a pipeline failure so
// the article is never re-analyzed in a loop and the notifier never
// publishes it.
func (a *Analyzer) recordFailure(ctx context.Context, article *store.Article, relation store.Relation, category string, articleLogger *slog.Logger) {
	row := store.NotifierArticle{
		ArticleID:   article.ID,
		PublishedAt: article.PublishedAt,
		Relation:    relation,
		Category:    category,
		Failed:      true,
	}
	if err := a.store.UpsertNotifierArticle(ctx, row); err != nil {
		articleLogger.Error("failed to record analysis failure", logging.Error(err))
	}
}
