package matcher

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig controls how a failed producer call is repeated.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterFraction float64 // 0.0 to 1.0

	// RateLimitDelay is the minimum wait after a RATE_LIMITED error. A longer
	// Retry-After from the API wins. MaxDelay does not apply to it.
	RateLimitDelay time.Duration
}

// DefaultRetryConfig is tuned for the Gemini free tier, which answers 429
// with a retry hint of a few seconds.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialDelay:   1 * time.Second,
	MaxDelay:       10 * time.Second,
	BackoffFactor:  2.0,
	JitterFraction: 0.2,
	RateLimitDelay: 5 * time.Second,
}

// WithRetry calls fn until it succeeds, fails with a non-retryable *Error,
// or runs out of retries. Errors that are not *Error are retried. When the
// next wait would outlive the context deadline the last error is returned
// right away.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !shouldRetry(err) || attempt >= cfg.MaxRetries {
			return zero, err
		}

		delay := cfg.backoff(attempt, err)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
			slog.WarnContext(ctx, "Matcher retry would exceed deadline, giving up",
				"attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", err)
			return zero, err
		}
		slog.WarnContext(ctx, "Matcher call failed, retrying",
			"attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", err)

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func shouldRetry(err error) bool {
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Retryable
	}
	return true
}

// backoff returns the wait before retry number attempt+1.
func (c RetryConfig) backoff(attempt int, err error) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt))
	d = math.Min(d, float64(c.MaxDelay))
	if c.JitterFraction > 0 {
		d += d * c.JitterFraction * (rand.Float64()*2 - 1)
	}
	delay := time.Duration(d)

	var mErr *Error
	if errors.As(err, &mErr) && mErr.Code == ErrRateLimited {
		delay = max(delay, c.RateLimitDelay, mErr.RetryAfter)
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
