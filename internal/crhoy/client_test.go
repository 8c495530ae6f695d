package crhoy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tico/internal/crhoy"
	"tico/internal/testsupport"
)

func newTestClient(t *testing.T, handler http.Handler) (*crhoy.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Source.APIBaseURL = server.URL + "/"
	cfg.Source.WebsiteURL = server.URL + "/"
	cfg.Downloader.MaxRetries = 2

	client := crhoy.NewClient(cfg, crhoy.WithRetrySleep(
		func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	))
	return client, server
}

func TestFetchDailyIndex(t *testing.T) {
	var requestedPath atomic.Value
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath.Store(r.URL.String())
		_, _ = w.Write([]byte(sampleIndex))
	}))

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	entries, raw, err := client.FetchDailyIndex(context.Background(), day)
	if err != nil {
		t.Fatalf("FetchDailyIndex failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if len(raw) == 0 {
		t.Fatal("expected raw JSON body")
	}
	if got := requestedPath.Load().(string); got != "/ultimas/2024-06-01.json?v=3" {
		t.Errorf("unexpected request path: %s", got)
	}
}

func TestFetchDailyIndexNotFoundYieldsEmptyIndex(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	entries, raw, err := client.FetchDailyIndex(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchDailyIndex failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
	if len(raw) == 0 {
		t.Fatal("expected placeholder body for persistence")
	}
}

func TestFetchArticleRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))

	html, err := client.FetchArticle(context.Background(), server.URL+"/articulo")
	if err != nil {
		t.Fatalf("FetchArticle failed: %v", err)
	}
	if html != "<html>ok</html>" {
		t.Fatalf("unexpected body: %q", html)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestFetchArticleGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	if _, err := client.FetchArticle(context.Background(), server.URL+"/articulo"); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts (max_retries=2), got %d", calls.Load())
	}
}

func TestCheckWebsite(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if !client.CheckWebsite(context.Background()) {
		t.Error("expected website to be reported available")
	}
}
