package crawl

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"trawl/internal/services"
)

const defaultMaxRetryDelay = 30 * time.Second

// Backoff is the bounded retry policy applied to provider lookups. Only
// transient failures are retried; not-found answers and context cancellation
// return immediately. Attempts of 1 disables retrying entirely.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// BackoffFromConfig derives the retry policy from provider settings.
func BackoffFromConfig(retryAttempts, retryBaseMS int) Backoff {
	return Backoff{
		Attempts: retryAttempts,
		Base:     time.Duration(retryBaseMS) * time.Millisecond,
		Max:      defaultMaxRetryDelay,
	}
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. Between attempts it sleeps an exponentially
// growing, jittered delay, aborting early when ctx is done. The error of the
// final attempt is returned.
func (b Backoff) Do(ctx context.Context, op func() error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == attempts {
			return lastErr
		}
		if err := sleepCtx(ctx, b.delay(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// retryable reports whether the error classifies as transient. Cancellation
// is never retried even though Classify would fold it into the transient
// bucket.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(services.Classify(err), services.ErrTransient)
}

// delay computes the sleep before the next attempt: base doubled per retry,
// capped at Max, with the upper half jittered so synchronized clients spread
// out.
func (b Backoff) delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		return 0
	}
	maxDelay := b.Max
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	d := base
	for i := 1; i < attempt; i++ {
		if d > maxDelay/2 {
			d = maxDelay
			break
		}
		d *= 2
	}
	if d > maxDelay {
		d = maxDelay
	}
	if half := d / 2; half > 0 {
		d = half + time.Duration(rand.Int63n(int64(half)))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
