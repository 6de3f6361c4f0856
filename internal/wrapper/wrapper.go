// Package wrapper implements the four model wrappers (C1): a uniform
// inference interface over heterogeneous zero-shot classifiers. Grounded
// on the teacher's services/moderation/client/huggingface.go HTTP-client
// shape (request/retry/response-parsing), generalized from toxicity
// category scores to the spec's ModelResult{label, score, all_scores}.
package wrapper

import (
	"context"
	"time"

	"crisisengine.dev/ensemble/internal/models"
)

// Wrapper is the uniform contract every model implements (spec §4.1).
// Implementations must not panic out of Analyze; failures are carried in
// the returned ModelResult.
type Wrapper interface {
	Analyze(ctx context.Context, text string) models.ModelResult
	Warmup(ctx context.Context) error
	Unload()
	IsLoaded() bool
	IsEnabled() bool
	Name() string
	Role() models.ModelRole
	Weight() float64
}

// CrisisSignal extracts the scalar crisis signal from a ModelResult
// according to the model's extraction rule (spec §4.1 table). Wrappers
// that are not the irony model report their signal directly via
// ModelResult fields populated at Analyze time (AllScores keyed by the
// model's own label set); this helper is shared so the scorer need not
// know each model's label vocabulary.
type CrisisSignalFunc func(models.ModelResult) float64

// warmupText is a short, representative input used to warm each model on
// first load (spec §4.2 "warm each model with a representative dummy
// input").
const warmupText = "This is a warmup request to initialize the model."

// baseState holds the lifecycle bits shared by every concrete wrapper:
// enabled/weight from configuration, and a loaded flag toggled by
// Warmup/Unload. Model wrappers are effectively immutable after load
// (spec §5); loaded is the only mutable bit and is only ever touched by
// the model loader, never concurrently with inference.
type baseState struct {
	enabled bool
	weight  float64
	loaded  bool
}

func (b *baseState) IsEnabled() bool { return b.enabled }
func (b *baseState) Weight() float64 { return b.weight }
func (b *baseState) IsLoaded() bool  { return b.loaded }
func (b *baseState) Unload()         { b.loaded = false }

func latencyMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
