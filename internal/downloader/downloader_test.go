package downloader_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"tico/internal/agents"
	"tico/internal/config"
	"tico/internal/downloader"
	"tico/internal/llm"
	"tico/internal/ratelimit"
	"tico/internal/sched"
	"tico/internal/store"
	"tico/internal/testsupport"
)

const articlePage = `<html><body>
<h1 class="titulo">ICE anuncia rebaja</h1>
<div class="contenido"><p>El ICE anunció una rebaja de tarifas.</p></div>
</body></html>`

// stubWeb serves article HTML and records fetches.
type stubWeb struct {
	pages   map[string]string
	failing bool
	fetched []string
}

func (s *stubWeb) CheckInternet(context.Context, time.Duration) bool { return true }
func (s *stubWeb) CheckWebsite(context.Context) bool                 { return true }

func (s *stubWeb) FetchArticle(_ context.Context, url string) (string, error) {
	s.fetched = append(s.fetched, url)
	if s.failing {
		return "", errors.New("connection reset")
	}
	page, ok := s.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

// scriptedAgent decodes a canned response per agent ID.
type scriptedAgent struct {
	responses map[string]string
	failures  map[string]error
	id        string
}

func (s *scriptedAgent) Generate(_ context.Context, _ string, out llm.StructuredOutput) error {
	if err, ok := s.failures[s.id]; ok {
		return err
	}
	raw, ok := s.responses[s.id]
	if !ok {
		return fmt.Errorf("no scripted response for %s", s.id)
	}
	return out.Decode(raw)
}

type fixture struct {
	cfg       *config.Config
	st        *store.Store
	web       *stubWeb
	dl        *downloader.Downloader
	an        *downloader.Analyzer
	responses map[string]string
	failures  map[string]error
	now       time.Time
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)

	f := &fixture{
		cfg:       cfg,
		st:        st,
		web:       &stubWeb{pages: make(map[string]string)},
		responses: make(map[string]string),
		failures:  make(map[string]error),
	}
	f.now = time.Date(2024, 6, 1, 10, 30, 0, 0, cfg.Location())

	triggers, err := sched.ParseTriggerTimes(cfg.Notifier.TriggerTimes, cfg.Location())
	if err != nil {
		t.Fatalf("ParseTriggerTimes failed: %v", err)
	}

	clock := func() time.Time { return f.now }
	pipeline := agents.NewPipeline(cfg, nil, ratelimit.NewRegistry(), nil,
		agents.WithAgentBuilder(func(agentCfg llm.AgentConfig) agents.Generator {
			return &scriptedAgent{responses: f.responses, failures: f.failures, id: agentCfg.AgentID}
		}),
		agents.WithRandInt(func(n int) int { return 0 }),
	)
	f.an = downloader.NewAnalyzer(cfg, st, pipeline, triggers, nil,
		downloader.WithAnalyzerClock(clock))
	f.dl = downloader.New(cfg, st, f.web, f.an, triggers, nil,
		downloader.WithClock(clock))
	return f
}

// seedArticle ingests one article published at 10:15 local on 2024-06-01.
func (f *fixture) seedArticle(t *testing.T, id int64, url, category string) *store.Article {
	t.Helper()
	published := time.Date(2024, 6, 1, 10, 15, 0, 0, f.cfg.Location())
	entry := store.IndexArticle{ID: id, URL: url, PublishedAt: published}
	if category != "" {
		entry.Categories = []string{category}
	}
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, f.cfg.Location())
	if _, err := f.st.IngestDay(context.Background(), day, "/m/01.json", []store.IndexArticle{entry}); err != nil {
		t.Fatalf("IngestDay failed: %v", err)
	}
	article, err := f.st.GetArticle(context.Background(), id)
	if err != nil || article == nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	return article
}

func (f *fixture) scriptHappyAnalysis() {
	f.responses["classifier"] = `{"b_related": "directly"}`
	f.responses["labeler"] = `{"b_no_category": false, "c_existing_categories_list": [{"a_category": "government", "b_rank": 90}]}`
	f.responses["namer"] = `{"b_category": "government/rates", "d_category_description": "utility rates"}`
	f.responses["label_finalizer"] = `{"b_new_chosen": false, "c_category": "CAT000"}`
	f.responses["summarizer"] = `{"b_news_summary": "Rates are going down."}`
	f.responses["translator_ru"] = `{"translated_summary": "Тарифы снижаются."}`
}

func TestHappyDayDownloadAndAnalysis(t *testing.T) {
	f := newFixture(t)
	url := "https://www.crhoy.com/nacionales/a1"
	f.seedArticle(t, 1, url, "nacionales")
	f.web.pages[url] = articlePage
	f.scriptHappyAnalysis()

	ctx := context.Background()
	if err := f.dl.ProcessChunk(ctx); err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}

	article, err := f.st.GetArticle(ctx, 1)
	if err != nil || article == nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if article.ContentPath == "" || article.Skipped || article.Failed {
		t.Fatalf("unexpected article state: %+v", article)
	}
	content, err := os.ReadFile(article.ContentPath)
	if err != nil {
		t.Fatalf("content file missing: %v", err)
	}
	if string(content[:2]) != "# " {
		t.Errorf("content is not markdown: %q", content[:10])
	}

	na, err := f.st.GetNotifierArticle(ctx, 1)
	if err != nil || na == nil {
		t.Fatalf("expected notifier article, err=%v", err)
	}
	if na.Relation != store.RelationDirect || na.Category != "government" || na.Skip || na.Failed {
		t.Fatalf("unexpected notifier row: %+v", na)
	}

	for _, lang := range []string{"en", "ru"} {
		path, ok, err := f.st.SummaryPath(ctx, 1, lang)
		if err != nil || !ok {
			t.Fatalf("missing %s summary: %v", lang, err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("summary file missing for %s: %v", lang, err)
		}
	}
}

func TestIgnoredSourceCategorySkipsWithoutFetch(t *testing.T) {
	f := newFixture(t, testsupport.WithIgnoreCategories("deportes"))
	f.seedArticle(t, 2, "https://www.crhoy.com/deportes/a2", "deportes")

	ctx := context.Background()
	if err := f.dl.ProcessChunk(ctx); err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}

	article, err := f.st.GetArticle(ctx, 2)
	if err != nil || article == nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if !article.Skipped || article.Failed || article.ContentPath != "" {
		t.Fatalf("expected skipped article, got %+v", article)
	}
	if len(f.web.fetched) != 0 {
		t.Fatalf("skipped article must not be fetched: %v", f.web.fetched)
	}
	na, err := f.st.GetNotifierArticle(ctx, 2)
	if err != nil {
		t.Fatalf("GetNotifierArticle failed: %v", err)
	}
	if na != nil {
		t.Fatalf("skipped article must have no notifier row: %+v", na)
	}
}

func TestFetchFailureMarksArticleFailed(t *testing.T) {
	f := newFixture(t)
	f.seedArticle(t, 3, "https://www.crhoy.com/nacionales/a3", "nacionales")
	f.web.failing = true

	ctx := context.Background()
	if err := f.dl.ProcessChunk(ctx); err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}

	article, err := f.st.GetArticle(ctx, 3)
	if err != nil || article == nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if !article.Failed || article.Skipped || article.ContentPath != "" {
		t.Fatalf("expected failed article, got %+v", article)
	}
}

func TestUnparsablePageMarksArticleFailed(t *testing.T) {
	f := newFixture(t)
	url := "https://www.crhoy.com/nacionales/a4"
	f.seedArticle(t, 4, url, "nacionales")
	f.web.pages[url] = `<html><body><p>sin titular</p></body></html>`

	ctx := context.Background()
	if err := f.dl.ProcessChunk(ctx); err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}

	article, err := f.st.GetArticle(ctx, 4)
	if err != nil || article == nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if !article.Failed {
		t.Fatalf("expected failed article, got %+v", article)
	}
}
