// Package retry provides a single retry policy shared by every call site
// that talks to an external API. Backoff doubles from a base delay up to a
// cap, with a jitter fraction to avoid thundering retries.
package retry

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"
)

// Policy configures retry behavior.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt; it doubles each
	// subsequent attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay. Zero means no cap.
	MaxDelay time.Duration
	// Jitter is the fraction of the delay randomized (0 to 1).
	Jitter float64
	// Retryable decides whether an error is worth another attempt.
	// Nil means every error is retryable.
	Retryable func(error) bool

	// sleep is a test seam; nil uses a context-aware timer.
	sleep func(context.Context, time.Duration) error
}

// Default returns the policy used across the pipeline: 3 attempts,
// 1s base delay doubling to a 30s cap.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.2,
	}
}

// WithSleep returns a copy of the policy using fn instead of sleeping.
// Intended for tests.
func (p Policy) WithSleep(fn func(context.Context, time.Duration) error) Policy {
	p.sleep = fn
	return p
}

// Do runs fn until it succeeds, a non-retryable error occurs, the context
// is cancelled, or attempts are exhausted. op names the operation in logs
// and error messages.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		delay := p.backoff(attempt)
		log.Printf("[retry] %s: attempt %d/%d failed (%v), retrying in %s", op, attempt, maxAttempts, lastErr, delay)
		if err := p.doSleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s: exhausted %d attempts: %w", op, maxAttempts, lastErr)
}

// backoff computes the delay after the given 1-indexed attempt.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(delay) * p.Jitter
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

func (p Policy) doSleep(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
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
