package sched

import (
	"context"
	"time"
)

// DefaultQuantum is the slice used by the synchronizer and downloader loops.
const DefaultQuantum = time.Second

// Sleep waits for d, checking ctx between quanta. Returns ctx.Err() when the
// wait was interrupted by cancellation, nil when the full duration elapsed.
func Sleep(ctx context.Context, d, quantum time.Duration) error {
	return SleepUntil(ctx, time.Now().Add(d), quantum)
}

// SleepUntil waits until deadline, checking ctx between quanta. The wall
// clock is consulted on every quantum, so the wait never overshoots the
// deadline by more than one quantum even across host suspension.
func SleepUntil(ctx context.Context, deadline time.Time, quantum time.Duration) error {
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		wait := remaining
		if wait > quantum {
			wait = quantum
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
