package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tico/internal/ratelimit"
)

func TestAcquireDelaysWhenWindowIsFull(t *testing.T) {
	limiter := ratelimit.NewLimiter("basic", 2, 100*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx, nil); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("first two acquires should not block, took %v", elapsed)
	}

	// The third request must wait for the window to reset.
	if err := limiter.Acquire(ctx, nil); err != nil {
		t.Fatalf("third Acquire failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("third acquire should have waited for the window, took %v", elapsed)
	}
}

func TestAcquireHonorsCancellation(t *testing.T) {
	limiter := ratelimit.NewLimiter("basic", 1, time.Hour)
	ctx := context.Background()

	if err := limiter.Acquire(ctx, nil); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := limiter.Acquire(cancelled, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestRegistrySharesLimitersPerModel(t *testing.T) {
	registry := ratelimit.NewRegistry()

	basic := registry.For("basic", 10, time.Minute)
	same := registry.For("basic", 99, time.Hour)
	light := registry.For("light", 10, time.Minute)

	if basic != same {
		t.Error("expected one limiter per model name")
	}
	if basic == light {
		t.Error("expected distinct limiters for distinct models")
	}
}
