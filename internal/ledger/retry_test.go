package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	ctx := context.Background()

	t.Run("succeeds after conflicts", func(t *testing.T) {
		calls := 0
		err := p.Do(ctx, func(context.Context, int) error {
			calls++
			if calls < 3 {
				return ErrConflict
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("Do() = %v after %d calls", err, calls)
		}
	})

	t.Run("fails fast on other errors", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := p.Do(ctx, func(context.Context, int) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Errorf("Do() = %v after %d calls", err, calls)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var attempts []int
		err := p.Do(ctx, func(_ context.Context, attempt int) error {
			attempts = append(attempts, attempt)
			return ErrConflict
		})
		if !errors.Is(err, ErrConflict) || len(attempts) != 3 || attempts[2] != 3 {
			t.Errorf("Do() = %v, attempts %v", err, attempts)
		}
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		slow := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}
		err := slow.Do(cctx, func(context.Context, int) error {
			cancel()
			return ErrConflict
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() = %v, want context canceled", err)
		}
	})
}

func TestRetryBackoffIsCapped(t *testing.T) {
	p := RetryPolicy{BaseDelay: 10 * time.Millisecond}
	want := map[int]time.Duration{
		2:   10 * time.Millisecond,
		3:   20 * time.Millisecond,
		6:   160 * time.Millisecond,
		100: maxBackoff,
	}
	for attempt, d := range want {
		if got := p.backoff(attempt); got != d {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, d)
		}
	}
}
