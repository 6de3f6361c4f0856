package wrapper

import (
	"context"
	"time"

	"crisisengine.dev/ensemble/internal/models"
	"go.uber.org/zap"
)

// BartLabels is the crisis-label set the primary classifier votes over.
// "safe" is the non-crisis label; the rest are crisis-correlated.
var BartLabels = []string{"suicide ideation", "emotional distress", "safe"}

// Bart is the primary model wrapper: zero-shot classification over a
// crisis-label set (spec §4.1 table, primary, weight 0.50).
type Bart struct {
	baseState
	client   *zeroShotClient
	revision string
	logger   *zap.Logger
}

// NewBart constructs the primary wrapper. endpoint is the zero-shot
// classification inference endpoint (e.g. a HuggingFace Inference API
// model URL for facebook/bart-large-mnli).
func NewBart(apiKey, endpoint, revision string, weight float64, enabled bool, timeout time.Duration, logger *zap.Logger) *Bart {
	return &Bart{
		baseState: baseState{enabled: enabled, weight: weight},
		client:    newZeroShotClient(apiKey, endpoint, timeout, logger),
		revision:  revision,
		logger:    logger,
	}
}

func (b *Bart) Name() string          { return "bart" }
func (b *Bart) Role() models.ModelRole { return models.RolePrimary }

func (b *Bart) Analyze(ctx context.Context, text string) models.ModelResult {
	start := time.Now()
	scores, top, err := b.client.classify(ctx, text, BartLabels, "This text expresses {}.")
	result := models.ModelResult{
		ModelName: b.Name(),
		ModelRole: b.Role(),
		LatencyMS: latencyMS(start),
	}
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.Label = top
	result.Score = scores[top]
	result.AllScores = scores
	return result
}

func (b *Bart) Warmup(ctx context.Context) error {
	err := b.client.health(ctx, BartLabels)
	if err == nil {
		b.loaded = true
	}
	return err
}

// bartCrisisLabels is BartLabels minus the non-crisis "safe" label.
var bartCrisisLabels = []string{"suicide ideation", "emotional distress"}

// CrisisSignal extracts the primary model's crisis signal: the max score
// across crisis-correlated labels (spec §4.1 table).
func CrisisSignal(result models.ModelResult) float64 {
	if !result.Success {
		return 0
	}
	var max float64
	for _, label := range bartCrisisLabels {
		if s := result.AllScores[label]; s > max {
			max = s
		}
	}
	return max
}
