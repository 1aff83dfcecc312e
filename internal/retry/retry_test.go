package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// noSleep records requested delays instead of waiting.
func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	p := Default().WithSleep(noSleep(&delays))

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(delays) != 0 {
		t.Errorf("expected no sleeps, got %v", delays)
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	var delays []time.Duration
	p := Default().WithSleep(noSleep(&delays))

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(delays) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(delays))
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	p := Default().WithSleep(noSleep(&delays))

	calls := 0
	underlying := errors.New("still down")
	err := p.Do(context.Background(), "create issue", func(context.Context) error {
		calls++
		return underlying
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, underlying) {
		t.Errorf("error should wrap the last failure, got %v", err)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	var delays []time.Duration
	p := Default().WithSleep(noSleep(&delays))
	fatal := errors.New("validation failed")
	p.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("err = %v, want the fatal error unchanged", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	p := Default().WithSleep(func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 3 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second}, // capped
		{4, 3 * time.Second},
	}
	for _, tt := range tests {
		if got := p.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoff_JitterStaysInBounds(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Jitter: 0.5}

	for i := 0; i < 50; i++ {
		d := p.backoff(1)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("jittered delay %v outside [0.5s, 1.5s]", d)
		}
	}
}

func TestDo_ZeroValuePolicyStillRuns(t *testing.T) {
	var p Policy
	p = p.WithSleep(func(context.Context, time.Duration) error { return nil })

	err := p.Do(context.Background(), "op", func(context.Context) error {
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
