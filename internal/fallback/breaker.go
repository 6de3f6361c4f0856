// Package fallback implements the fallback strategy (C7): per-model
// circuit breakers with decaying failure counters, weight redistribution
// on partial-model failure, and the distinguished CriticalModelFailure
// signal for primary-model loss. Grounded on the teacher's
// internal/classifier/orchestrator.go RegisterProvider, which builds one
// gobreaker.CircuitBreaker per provider; generalized here to per-model
// breakers with an explicit decaying counter kept alongside each one. A
// breaker trips when its consecutive failures reach Config.TripThreshold,
// as the teacher's does; the decaying counter (and so Config.HalfLife) is
// updated by Execute but does not decide when a breaker trips.
package fallback

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config tunes the per-model breaker and decay behavior (spec §4.7).
type Config struct {
	HalfLife         time.Duration
	TripThreshold    float64
	Cooldown         time.Duration
	PrimaryCeiling   float64
}

// DefaultConfig returns the spec-documented defaults.
func DefaultConfig() Config {
	return Config{
		HalfLife:       5 * time.Minute,
		TripThreshold:  3,
		Cooldown:       60 * time.Second,
		PrimaryCeiling: 0.70,
	}
}

// modelState is the decaying-failure-counter + breaker pair for one
// model.
type modelState struct {
	mu        sync.Mutex
	count     float64
	lastEvent time.Time
	breaker   *gobreaker.CircuitBreaker
}

// Strategy tracks per-model failure state and circuit breakers across
// requests. Counters are updated under a per-model lock; gating reads are
// lock-free snapshots via breaker.State() (spec §5).
type Strategy struct {
	cfg    Config
	mu     sync.RWMutex
	models map[string]*modelState
	logger *zap.Logger
}

// New creates a fallback strategy for the given model names.
func New(cfg Config, modelNames []string, logger *zap.Logger) *Strategy {
	s := &Strategy{
		cfg:    cfg,
		models: make(map[string]*modelState, len(modelNames)),
		logger: logger,
	}
	for _, name := range modelNames {
		s.models[name] = s.newModelState(name)
	}
	return s
}

func (s *Strategy) newModelState(name string) *modelState {
	st := &modelState{lastEvent: time.Now()}
	st.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		MaxRequests: 1,
		Timeout:  s.cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return float64(counts.ConsecutiveFailures) >= s.cfg.TripThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("model circuit breaker state change",
				zap.String("model", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return st
}

// decayedCount returns the model's current failure count after applying
// exponential decay since the last recorded event.
func (st *modelState) decayedCount(now time.Time, halfLife time.Duration) float64 {
	if st.count == 0 {
		return 0
	}
	elapsed := now.Sub(st.lastEvent)
	if elapsed <= 0 || halfLife <= 0 {
		return st.count
	}
	halves := float64(elapsed) / float64(halfLife)
	return st.count * math.Pow(2, -halves)
}

// RecordFailure increments a model's decaying failure counter. Call this
// on every inference error for that model (spec §4.7 "On each inference
// error the detector increments a per-model counter with exponential
// decay").
func (s *Strategy) RecordFailure(name string) {
	s.mu.RLock()
	st, ok := s.models[name]
	s.mu.RUnlock()
	if !ok {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now()
	st.count = st.decayedCount(now, s.cfg.HalfLife) + 1
	st.lastEvent = now
}

// RecordSuccess resets a model's decaying failure counter.
func (s *Strategy) RecordSuccess(name string) {
	s.mu.RLock()
	st, ok := s.models[name]
	s.mu.RUnlock()
	if !ok {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.count = 0
	st.lastEvent = time.Now()
}

// Execute runs fn through the named model's breaker, recording success or
// failure against the decaying counter in addition to the breaker's own
// bookkeeping.
func (s *Strategy) Execute(ctx context.Context, name string, fn func() (interface{}, error)) (interface{}, error) {
	s.mu.RLock()
	st, ok := s.models[name]
	s.mu.RUnlock()
	if !ok {
		return fn()
	}

	result, err := st.breaker.Execute(fn)
	if err != nil {
		s.RecordFailure(name)
		return nil, err
	}
	s.RecordSuccess(name)
	return result, nil
}

// IsTripped reports whether a model's breaker is open.
func (s *Strategy) IsTripped(name string) bool {
	s.mu.RLock()
	st, ok := s.models[name]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return st.breaker.State() == gobreaker.StateOpen
}

// BreakerStates returns each tracked model's current breaker state, for
// GET /status.
func (s *Strategy) BreakerStates() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.models))
	for name, st := range s.models {
		out[name] = st.breaker.State().String()
	}
	return out
}

// Reset clears every model's counters and closes its breaker (spec §4.7
// "used on explicit operator command or after a successful reload").
func (s *Strategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.models {
		s.models[name] = s.newModelState(name)
	}
}

// CriticalModelFailure is the distinguished error the engine reacts to by
// returning a degraded-but-structured assessment rather than crashing
// (spec §4.7, §7).
type CriticalModelFailure struct {
	ModelName string
	Cause     error
}

func (e *CriticalModelFailure) Error() string {
	return fmt.Sprintf("critical model %s failed: %v", e.ModelName, e.Cause)
}

func (e *CriticalModelFailure) Unwrap() error { return e.Cause }
