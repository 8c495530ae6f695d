package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tico/internal/logging"
)

// Limiter enforces max requests per fixed window for one model.
type Limiter struct {
	model  string
	max    int
	window time.Duration

	mu          sync.Mutex
	requests    int
	windowStart time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter builds a limiter allowing max requests per window.
func NewLimiter(model string, max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		model:  model,
		max:    max,
		window: window,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Acquire blocks until a request slot is available or ctx is cancelled.
// Within one fixed window at most max slots are granted; a new window starts
// with the first request after the previous one has elapsed.
func (l *Limiter) Acquire(ctx context.Context, logger *slog.Logger) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		now := l.now()
		if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
			l.windowStart = now
			l.requests = 0
		}
		if l.requests < l.max {
			l.requests++
			return nil
		}

		wait := l.windowStart.Add(l.window).Sub(now)
		if logger != nil {
			logger.Warn("rate limit reached, delaying request",
				logging.String(logging.FieldModel, l.model),
				logging.Duration("wait", wait),
			)
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Registry hands out one limiter per model name.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

// For returns the limiter for model, creating it with the given settings on
// first use. Later calls for the same model reuse the original window.
func (r *Registry) For(model string, max int, window time.Duration) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limiter, ok := r.limiters[model]; ok {
		return limiter
	}
	limiter := NewLimiter(model, max, window)
	r.limiters[model] = limiter
	return limiter
}
