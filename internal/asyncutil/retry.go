// Package asyncutil holds the shared concurrency primitives used by the
// engine and the external risk client (C13): retry with backoff, timeout
// wrapping, and bounded parallel inference. Grounded on the teacher's
// orchestrator/huggingface-client retry loops, generalized into reusable
// primitives instead of being duplicated per call site.
package asyncutil

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig controls exponential backoff with jitter.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// IsTransient decides whether an error is worth retrying. A nil value
	// retries every error.
	IsTransient func(error) bool
}

// DefaultRetryConfig is a single retry (two attempts total) with a short
// base delay, matching the external risk client's "single retry on
// transient errors" requirement (spec §4.8).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Retry runs fn up to cfg.MaxAttempts times, backing off exponentially
// with jitter between attempts, stopping early if ctx is done or fn's
// error is not transient. It returns the last error on exhaustion.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg.BaseDelay, cfg.MaxDelay, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if cfg.IsTransient != nil && !cfg.IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	exp := float64(base) * math.Pow(2, float64(attempt-1))
	jittered := exp * (0.5 + rand.Float64()*0.5)
	d := time.Duration(jittered)
	if d > max {
		d = max
	}
	return d
}
