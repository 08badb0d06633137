package usecase

import (
	"context"
	"time"
)

// backoffDelay returns the wait before retry number attempt (1-based).
// The delay doubles per attempt: base, 2*base, 4*base, ...
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepBackoff waits the backoff delay for attempt, returning early with
// the context error if cancelled.
func sleepBackoff(ctx context.Context, base time.Duration, attempt int) error {
	timer := time.NewTimer(backoffDelay(base, attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
