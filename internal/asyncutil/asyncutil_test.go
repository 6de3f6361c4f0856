package asyncutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunParallelPreservesOrderNotCompletionOrder(t *testing.T) {
	tasks := []Task[int]{
		{Name: "slow", Run: func(ctx context.Context) (int, error) {
			time.Sleep(20 * time.Millisecond)
			return 1, nil
		}},
		{Name: "fast", Run: func(ctx context.Context) (int, error) {
			return 2, nil
		}},
	}
	outcomes := RunParallel(context.Background(), tasks)
	if outcomes[0].Name != "slow" || outcomes[1].Name != "fast" {
		t.Errorf("expected outcomes in task order regardless of completion order, got %+v", outcomes)
	}
}

func TestRunParallelCarriesErrors(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[int]{
		{Name: "ok", Run: func(ctx context.Context) (int, error) { return 1, nil }},
		{Name: "bad", Run: func(ctx context.Context) (int, error) { return 0, boom }},
	}
	outcomes := RunParallel(context.Background(), tasks)
	if outcomes[1].Err != boom {
		t.Errorf("Err = %v, want boom", outcomes[1].Err)
	}
}

func TestSuccessfulFiltersErrors(t *testing.T) {
	outcomes := []Outcome[int]{
		{Name: "a", Err: nil},
		{Name: "b", Err: errors.New("fail")},
		{Name: "c", Err: nil},
	}
	ok := Successful(outcomes)
	if len(ok) != 2 {
		t.Errorf("Successful returned %d outcomes, want 2", len(ok))
	}
}

func TestRetrySucceedsWithoutRetryingWhenFirstAttemptWorks(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryRetriesOnTransientError(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryStopsEarlyOnNonTransientError(t *testing.T) {
	attempts := 0
	permanent := errors.New("permanent")
	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		IsTransient: func(err error) bool { return false },
	}
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return permanent
	})
	if err != permanent {
		t.Errorf("err = %v, want permanent", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (should not retry a non-transient error)", attempts)
	}
}

func TestRetryExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return errors.New("still failing")
	})
	if err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWithTimeoutReturnsResultWhenFastEnough(t *testing.T) {
	err := WithTimeout(context.Background(), 100*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithTimeoutReturnsTimeoutErrorWhenSlow(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, ErrInferenceTimeout) {
		t.Errorf("err = %v, want ErrInferenceTimeout", err)
	}
}
