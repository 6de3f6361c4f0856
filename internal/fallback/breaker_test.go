package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestExecuteRecordsSuccessAndFailure(t *testing.T) {
	s := New(DefaultConfig(), []string{"bart"}, zap.NewNop())

	_, err := s.Execute(context.Background(), "bart", func() (interface{}, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantErr := errors.New("boom")
	_, err = s.Execute(context.Background(), "bart", func() (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TripThreshold = 2
	s := New(cfg, []string{"bart"}, zap.NewNop())

	for i := 0; i < 2; i++ {
		s.Execute(context.Background(), "bart", func() (interface{}, error) {
			return nil, errors.New("fail")
		})
	}

	if !s.IsTripped("bart") {
		t.Error("breaker should be open after consecutive failures reach the trip threshold")
	}
	if s.BreakerStates()["bart"] != "open" {
		t.Errorf("BreakerStates()[bart] = %v, want open", s.BreakerStates()["bart"])
	}
}

func TestUnknownModelExecutesWithoutBreaker(t *testing.T) {
	s := New(DefaultConfig(), []string{"bart"}, zap.NewNop())
	result, err := s.Execute(context.Background(), "not-registered", func() (interface{}, error) {
		return 42, nil
	})
	if err != nil || result != 42 {
		t.Errorf("unregistered model names should execute fn directly, got result=%v err=%v", result, err)
	}
}

func TestResetClearsBreakerState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TripThreshold = 1
	s := New(cfg, []string{"bart"}, zap.NewNop())

	s.Execute(context.Background(), "bart", func() (interface{}, error) {
		return nil, errors.New("fail")
	})
	if !s.IsTripped("bart") {
		t.Fatal("expected breaker to be open before reset")
	}

	s.Reset()
	if s.IsTripped("bart") {
		t.Error("breaker should be closed after Reset")
	}
}

func TestDecayedCountHalvesOverHalfLife(t *testing.T) {
	st := &modelState{count: 4, lastEvent: time.Now().Add(-5 * time.Minute)}
	got := st.decayedCount(time.Now(), 5*time.Minute)
	if got < 1.9 || got > 2.1 {
		t.Errorf("decayedCount after one half-life = %v, want ~2", got)
	}
}

func TestCriticalModelFailureUnwraps(t *testing.T) {
	cause := errors.New("inference timeout")
	err := &CriticalModelFailure{ModelName: "bart", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("CriticalModelFailure should unwrap to its cause")
	}
}
