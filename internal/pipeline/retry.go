package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy bounds transient-failure retries: doubling backoff with ±25%
// jitter, capped at MaxBackoff.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// Retry runs op until it succeeds, the attempts are exhausted, or the
// context ends. Context errors are returned immediately without another
// attempt.
func Retry(ctx context.Context, policy RetryPolicy, op func(context.Context) error) error {
	policy = policy.normalized()
	backoff := policy.InitialBackoff

	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		if sleepErr := sleepCtx(ctx, jitter(backoff)); sleepErr != nil {
			return sleepErr
		}
		backoff *= 2
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}
	return err
}

// jitter spreads a backoff by ±25% so parallel processors retrying against
// the same endpoint don't align.
func jitter(d time.Duration) time.Duration {
	delta := time.Duration(rand.Int63n(int64(d)/2+1)) - d/4
	return d + delta
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
