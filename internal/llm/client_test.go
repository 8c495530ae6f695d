package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tico/internal/llm"
)

func newTestEngine(t *testing.T, handler http.HandlerFunc) *llm.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return llm.NewClient(
		llm.Config{APIKey: "test", BaseURL: server.URL},
		llm.WithSleeper(func(time.Duration) {}),
		llm.WithRetryMaxAttempts(3),
	)
}

func completionBody(content string) string {
	return `{"choices": [{"message": {"content": ` + mustMarshal(content) + `}, "finish_reason": "stop"}]}`
}

func mustMarshal(value string) string {
	data, _ := json.Marshal(value)
	return string(data)
}

func TestCompleteReturnsContent(t *testing.T) {
	var sawAuth atomic.Value
	client := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		sawAuth.Store(r.Header.Get("Authorization"))

		var payload struct {
			Model          string            `json:"model"`
			ResponseFormat map[string]string `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.Model != "basic-model" {
			t.Errorf("unexpected model: %q", payload.Model)
		}
		if payload.ResponseFormat["type"] != "json_object" {
			t.Errorf("expected json response format, got %v", payload.ResponseFormat)
		}
		_, _ = w.Write([]byte(completionBody(`{"ok": true}`)))
	})

	content, err := client.Complete(context.Background(), llm.Request{
		Model:    "basic-model",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
		JSONOnly: true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if content != `{"ok": true}` {
		t.Fatalf("unexpected content: %q", content)
	}
	if got := sawAuth.Load().(string); got != "Bearer test" {
		t.Errorf("unexpected auth header: %q", got)
	}
}

func TestCompleteRetriesOnTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	client := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(completionBody("answer")))
	})

	content, err := client.Complete(context.Background(), llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if content != "answer" || calls.Load() != 3 {
		t.Fatalf("unexpected result: content=%q calls=%d", content, calls.Load())
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	_, err := client.Complete(context.Background(), llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestCompleteSurfacesAbnormalFinish(t *testing.T) {
	client := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": ""}, "finish_reason": "content_filter"}]}`))
	})

	_, err := client.Complete(context.Background(), llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestCompleteToleratesDeltaSchema(t *testing.T) {
	client := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"delta": {"content": "streamed"}, "finish_reason": "stop"}]}`))
	})

	content, err := client.Complete(context.Background(), llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if content != "streamed" {
		t.Fatalf("unexpected content: %q", content)
	}
}
