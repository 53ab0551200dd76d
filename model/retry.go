package model

import (
	"context"
	"fmt"
	"time"
)

// Retryer is an explicit retry state machine: attempt counting, a next-delay
// function, and terminal classification of the triggering error. Sleep is
// injectable so the schedule is testable without real time passing.
//
// Only transient failures are retried. Authentication and fatal failures
// propagate on the first occurrence.
type Retryer struct {
	// MaxAttempts bounds the total number of attempts (not retries).
	MaxAttempts int
	// Backoff maps the 1-based number of failed attempts so far to the delay
	// before the next attempt.
	Backoff func(failures int) time.Duration
	// Sleep waits the given duration, aborting early when the context ends.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryer builds the default schedule: 3 attempts with exponential
// backoff (2s, 4s, 8s) and a context-aware sleep.
func NewRetryer() Retryer {
	return Retryer{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(2 * time.Second),
		Sleep:       sleepContext,
	}
}

// ExponentialBackoff doubles the base delay per failure: base, 2*base,
// 4*base, ...
func ExponentialBackoff(base time.Duration) func(failures int) time.Duration {
	return func(failures int) time.Duration {
		d := base
		for i := 1; i < failures; i++ {
			d *= 2
		}
		return d
	}
}

// Do runs fn until it succeeds, fails terminally, or the attempt budget is
// spent. Exhaustion wraps ErrExhaustedRetries together with the last
// transient failure.
func (r Retryer) Do(ctx context.Context, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		if attempt >= r.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrExhaustedRetries, attempt, err)
		}
		if sleepErr := r.Sleep(ctx, r.Backoff(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
}

// sleepContext blocks for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
