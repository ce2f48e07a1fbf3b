package ledger

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	maxBackoff = 2 * time.Second
)

// RetryPolicy re-runs an operation that lost a compare-and-set race.
//
// Retry schedule (default): 0, 10, 20, 40, 80, 160 ms plus up to 30% jitter.
// Only ErrConflict is retried; every other error fails fast.
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	JitterFactor float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  defaultMaxAttempts,
		BaseDelay:    defaultBaseDelay,
		JitterFactor: defaultJitterFactor,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.JitterFactor < 0 || p.JitterFactor > 1 {
		p.JitterFactor = defaultJitterFactor
	}
	return p
}

// backoff returns the wait before attempt, capped at maxBackoff.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 2; i < attempt && delay < maxBackoff; i++ {
		delay *= 2
	}
	return min(delay, maxBackoff)
}

// Do calls fn until it succeeds, fails with a non-conflict error, the
// attempts are exhausted, or ctx is done. attempt starts at 1.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	p = p.normalized()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.backoff(attempt)
			jitter := time.Duration(rand.Float64() * float64(delay) * p.JitterFactor) //nolint:gosec // jitter only

			timer := time.NewTimer(delay + jitter)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrConflict) {
			return lastErr
		}
	}

	return lastErr
}
