package asyncutil

import (
	"context"
	"errors"
	"time"
)

// ErrInferenceTimeout is the distinguished error for a model call that
// exceeded its per-model deadline (spec §4.13 "Timeout").
var ErrInferenceTimeout = errors.New("inference timeout")

// WithTimeout runs fn with a deadline of d. If fn does not return before
// the deadline, WithTimeout returns ErrInferenceTimeout immediately; fn
// keeps running in the background and its result is discarded (spec §5
// "a cancelled request may leave model inferences running briefly").
func WithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrInferenceTimeout
	}
}
