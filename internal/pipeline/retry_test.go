package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testPolicy = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), testPolicy, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetry_ExhaustionReturnsLastError(t *testing.T) {
	calls := 0
	last := errors.New("still broken")
	err := Retry(context.Background(), testPolicy, func(context.Context) error {
		calls++
		return last
	})
	if !errors.Is(err, last) {
		t.Errorf("err: got %v, want %v", err, last)
	}
	if calls != testPolicy.MaxAttempts {
		t.Errorf("calls: got %d, want %d", calls, testPolicy.MaxAttempts)
	}
}

func TestRetry_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, testPolicy, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err: got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetry_ContextErrorNotRetried(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), testPolicy, func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err: got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetry_SingleAttemptPolicy(t *testing.T) {
	calls := 0
	Retry(context.Background(), RetryPolicy{MaxAttempts: 1}, func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestJitterStaysNearBase(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := jitter(base)
		if d < base*3/4 || d > base*5/4 {
			t.Fatalf("jitter out of ±25%% band: %v", d)
		}
	}
}
