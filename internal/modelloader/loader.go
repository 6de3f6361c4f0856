// Package modelloader implements the model loader (C2): lifecycle,
// warmup, and lazy/parallel loading of the four model wrappers, plus the
// readiness semantics the engine relies on. Grounded on the teacher's
// internal/classifier/orchestrator.go mutex-guarded provider registry,
// generalized from a fallback-chain registry to a warmup/readiness
// registry.
package modelloader

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"crisisengine.dev/ensemble/internal/models"
	"crisisengine.dev/ensemble/internal/wrapper"
	"go.uber.org/zap"
)

// defaultParallelWorkers bounds concurrent warmup due to GPU memory
// pressure (spec §4.2).
const defaultParallelWorkers = 2

// Loader owns the process-lifetime registry of model wrappers. Reload and
// unload drain ongoing inferences before proceeding (spec §5); in this
// implementation that means holding the write lock for the duration of
// the mutation, since wrappers are stateless after warmup and inference
// calls only read the registry snapshot.
type Loader struct {
	mu       sync.RWMutex
	wrappers map[string]wrapper.Wrapper
	order    []string // registration order, for deterministic iteration
	workers  int
	logger   *zap.Logger
}

// New creates an empty loader. Workers bounds parallel warmup
// concurrency; values <= 0 fall back to the spec default of 2.
func New(workers int, logger *zap.Logger) *Loader {
	if workers <= 0 {
		workers = defaultParallelWorkers
	}
	return &Loader{
		wrappers: make(map[string]wrapper.Wrapper),
		workers:  workers,
		logger:   logger,
	}
}

// Register adds a wrapper to the registry. Not safe to call concurrently
// with inference; intended for startup wiring only.
func (l *Loader) Register(w wrapper.Wrapper) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.wrappers[w.Name()]; !exists {
		l.order = append(l.order, w.Name())
	}
	l.wrappers[w.Name()] = w
}

// LoadAll warms up every registered, enabled wrapper in parallel, bounded
// by l.workers. Returns the first primary-model warmup error, if any;
// non-primary warmup errors are logged and otherwise ignored (a
// non-primary model that fails warmup simply starts unloaded, which
// degrades gracefully per spec §4.2).
func (l *Loader) LoadAll(ctx context.Context) error {
	l.mu.RLock()
	names := append([]string(nil), l.order...)
	l.mu.RUnlock()

	sem := make(chan struct{}, l.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var primaryErr error

	for _, name := range names {
		l.mu.RLock()
		w := l.wrappers[name]
		l.mu.RUnlock()
		if w == nil || !w.IsEnabled() {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(w wrapper.Wrapper) {
			defer wg.Done()
			defer func() { <-sem }()

			err := w.Warmup(ctx)
			if err != nil {
				l.logger.Warn("model warmup failed",
					zap.String("model", w.Name()),
					zap.Error(err),
				)
				if w.Role() == models.RolePrimary {
					mu.Lock()
					primaryErr = fmt.Errorf("primary model %s failed warmup: %w", w.Name(), err)
					mu.Unlock()
				}
				return
			}
			l.logger.Info("model warmed up", zap.String("model", w.Name()))
		}(w)
	}
	wg.Wait()

	return primaryErr
}

// Get returns a named wrapper and whether it was found.
func (l *Loader) Get(name string) (wrapper.Wrapper, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.wrappers[name]
	return w, ok
}

// GetEnabled returns every registered wrapper that is enabled, in
// registration order.
func (l *Loader) GetEnabled() []wrapper.Wrapper {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]wrapper.Wrapper, 0, len(l.order))
	for _, name := range l.order {
		w := l.wrappers[name]
		if w.IsEnabled() {
			out = append(out, w)
		}
	}
	return out
}

// Unload releases a single model's resources.
func (l *Loader) Unload(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.wrappers[name]; ok {
		w.Unload()
	}
}

// UnloadAll releases every registered model's resources.
func (l *Loader) UnloadAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.wrappers {
		w.Unload()
	}
}

// IsReady reports whether the engine is operational: the primary model is
// loaded (spec §4.2 "Readiness semantics").
func (l *Loader) IsReady() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, w := range l.wrappers {
		if w.Role() == models.RolePrimary {
			return w.IsLoaded()
		}
	}
	return false
}

// Descriptor is a model's public status, for GET /models and GET /status.
type Descriptor struct {
	Name    string           `json:"name"`
	Role    models.ModelRole `json:"role"`
	Weight  float64          `json:"weight"`
	Enabled bool             `json:"enabled"`
	Loaded  bool             `json:"loaded"`
}

// Descriptors returns a stable, name-sorted snapshot of every registered
// model's status.
func (l *Loader) Descriptors() []Descriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Descriptor, 0, len(l.wrappers))
	for name, w := range l.wrappers {
		out = append(out, Descriptor{
			Name:    name,
			Role:    w.Role(),
			Weight:  w.Weight(),
			Enabled: w.IsEnabled(),
			Loaded:  w.IsLoaded(),
		})
		_ = name
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
