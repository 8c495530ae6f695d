package notifier_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tico/internal/config"
	"tico/internal/files"
	"tico/internal/notifier"
	"tico/internal/sched"
	"tico/internal/store"
	"tico/internal/testsupport"
)

// recordingSender captures messages instead of talking to Telegram.
type recordingSender struct {
	messages []string
	fail     int
}

func (r *recordingSender) SendMessage(_ context.Context, text string) error {
	if r.fail > 0 {
		r.fail--
		return errors.New("telegram unavailable")
	}
	r.messages = append(r.messages, text)
	return nil
}

type notifierFixture struct {
	cfg    *config.Config
	st     *store.Store
	sender *recordingSender
	n      *notifier.Notifier
	now    time.Time
}

func newNotifierFixture(t *testing.T) *notifierFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithTriggerTimes("06:00", "12:00"))
	cfg.Notifier.MessageDelay = 0
	cfg.Notifier.MaxRetries = 1
	st := testsupport.MustOpenStore(t, cfg)

	f := &notifierFixture{
		cfg:    cfg,
		st:     st,
		sender: &recordingSender{},
	}
	f.now = time.Date(2024, 6, 1, 12, 0, 0, 0, cfg.Location())

	triggers, err := sched.ParseTriggerTimes(cfg.Notifier.TriggerTimes, cfg.Location())
	if err != nil {
		t.Fatalf("ParseTriggerTimes failed: %v", err)
	}
	f.n = notifier.New(cfg, st, f.sender, triggers, nil,
		notifier.WithClock(func() time.Time { return f.now }))
	return f
}

// seedPublishable stores an analyzed article with an on-disk summary.
func (f *notifierFixture) seedPublishable(t *testing.T, id int64, published time.Time, category, summary string) {
	t.Helper()
	ctx := context.Background()
	day := time.Date(published.Year(), published.Month(), published.Day(), 0, 0, 0, 0, f.cfg.Location())
	if _, err := f.st.IngestDay(ctx, day, "/m/x.json", []store.IndexArticle{
		{ID: id, URL: fmt.Sprintf("https://www.crhoy.com/a%d", id), PublishedAt: published},
	}); err != nil {
		t.Fatalf("IngestDay failed: %v", err)
	}

	path := files.SummaryPath(f.cfg.Paths.DataDir, published.In(f.cfg.Location()), id, "ru")
	if err := files.WriteAtomic(path, []byte(summary)); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	if err := f.st.SaveAnalysis(ctx, store.NotifierArticle{
		ArticleID:   id,
		PublishedAt: published,
		Relation:    store.RelationDirect,
		Category:    category,
	}, []store.Summary{{ArticleID: id, Lang: "ru", Path: path}}); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
}

func TestCycleSendsWindowArticlesInOrder(t *testing.T) {
	f := newNotifierFixture(t)
	loc := f.cfg.Location()

	f.seedPublishable(t, 1, time.Date(2024, 6, 1, 10, 15, 0, 0, loc), "government", "second")
	f.seedPublishable(t, 2, time.Date(2024, 6, 1, 7, 0, 0, 0, loc), "economy", "first")
	// Outside the window: published before the shifted 06:00 trigger.
	f.seedPublishable(t, 3, time.Date(2024, 6, 1, 4, 0, 0, 0, loc), "government", "early")

	trigger := time.Date(2024, 6, 1, 12, 0, 0, 0, loc)
	if err := f.n.RunCycle(context.Background(), trigger); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(f.sender.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(f.sender.messages))
	}
	if !strings.HasPrefix(f.sender.messages[0], "first") {
		t.Errorf("messages out of order: %q", f.sender.messages[0])
	}
	if !strings.HasPrefix(f.sender.messages[1], "second") {
		t.Errorf("messages out of order: %q", f.sender.messages[1])
	}

	sent, err := f.st.SentArticleIDs(context.Background())
	if err != nil {
		t.Fatalf("SentArticleIDs failed: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("expected 2 sent-log rows, got %v", sent)
	}
}

func TestCycleIsIdempotentAcrossRestart(t *testing.T) {
	f := newNotifierFixture(t)
	loc := f.cfg.Location()
	f.seedPublishable(t, 1, time.Date(2024, 6, 1, 10, 15, 0, 0, loc), "government", "S")

	trigger := time.Date(2024, 6, 1, 12, 0, 0, 0, loc)
	if err := f.n.RunCycle(context.Background(), trigger); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.sender.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(f.sender.messages))
	}

	// Simulated restart: a new cycle in the same window re-runs selection
	// and finds the article in the sent log.
	if err := f.n.RunCycle(context.Background(), trigger); err != nil {
		t.Fatalf("second RunCycle failed: %v", err)
	}
	if len(f.sender.messages) != 1 {
		t.Fatalf("duplicate message after restart: %d", len(f.sender.messages))
	}
}

func TestFailedSendLeavesArticleUnsent(t *testing.T) {
	f := newNotifierFixture(t)
	loc := f.cfg.Location()
	f.seedPublishable(t, 1, time.Date(2024, 6, 1, 10, 15, 0, 0, loc), "government", "S")

	// Fail both the attempt and its retry.
	f.sender.fail = 2
	trigger := time.Date(2024, 6, 1, 12, 0, 0, 0, loc)
	if err := f.n.RunCycle(context.Background(), trigger); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.sender.messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(f.sender.messages))
	}
	sent, err := f.st.SentArticleIDs(context.Background())
	if err != nil {
		t.Fatalf("SentArticleIDs failed: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("failed send must leave no sent-log row: %v", sent)
	}

	// The next trigger in the same window picks the article up.
	if err := f.n.RunCycle(context.Background(), trigger); err != nil {
		t.Fatalf("retry RunCycle failed: %v", err)
	}
	if len(f.sender.messages) != 1 {
		t.Fatalf("expected retried send, got %d messages", len(f.sender.messages))
	}
}

func TestEmptyCycleOnlyPrunesSentLog(t *testing.T) {
	f := newNotifierFixture(t)
	ctx := context.Background()

	// A sent-log row past the retention horizon.
	old := f.now.Add(-time.Duration(f.cfg.Notifier.SentRetentionHours+1) * time.Hour)
	if err := f.st.RecordSent(ctx, 99, old); err != nil {
		t.Fatalf("RecordSent failed: %v", err)
	}

	trigger := time.Date(2024, 6, 1, 12, 0, 0, 0, f.cfg.Location())
	if err := f.n.RunCycle(ctx, trigger); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(f.sender.messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(f.sender.messages))
	}
	sent, err := f.st.SentArticleIDs(ctx)
	if err != nil {
		t.Fatalf("SentArticleIDs failed: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("expected pruned sent log, got %v", sent)
	}
}

func TestTelegramSenderPostsForm(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken/sendMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = r.ParseForm()
		form = r.PostForm
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	sender := notifier.NewTelegram("token", "@channel",
		notifier.WithTelegramBaseURL(server.URL))
	if err := sender.SendMessage(context.Background(), "hola"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if form.Get("chat_id") != "@channel" || form.Get("text") != "hola" {
		t.Errorf("unexpected form: %v", form)
	}
	if form.Get("parse_mode") != "MarkdownV2" {
		t.Errorf("expected MarkdownV2 parse mode, got %q", form.Get("parse_mode"))
	}
	if form.Get("disable_web_page_preview") != "true" {
		t.Error("expected web page preview disabled")
	}
}

func TestTelegramSenderSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok": false}`, http.StatusBadRequest)
	}))
	defer server.Close()

	sender := notifier.NewTelegram("token", "@channel",
		notifier.WithTelegramBaseURL(server.URL))
	if err := sender.SendMessage(context.Background(), "hola"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
