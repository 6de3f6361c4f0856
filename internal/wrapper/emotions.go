package wrapper

import (
	"context"
	"time"

	"crisisengine.dev/ensemble/internal/models"
	"go.uber.org/zap"
)

// EmotionLabels is the zero-shot emotion label set for the supplementary
// model.
var EmotionLabels = []string{"sadness", "fear", "anger", "grief", "despair", "joy", "surprise"}

// CrisisCorrelatedEmotions is the crisis-correlated subset of
// EmotionLabels (spec §4.1 table).
var CrisisCorrelatedEmotions = []string{"sadness", "fear", "anger", "grief", "despair"}

// Emotions is the supplementary model wrapper (spec §4.1 table,
// supplementary, weight 0.10): crisis signal is the capped sum of
// crisis-correlated emotion scores.
type Emotions struct {
	baseState
	client *zeroShotClient
	logger *zap.Logger
}

func NewEmotions(apiKey, endpoint string, weight float64, enabled bool, timeout time.Duration, logger *zap.Logger) *Emotions {
	return &Emotions{
		baseState: baseState{enabled: enabled, weight: weight},
		client:    newZeroShotClient(apiKey, endpoint, timeout, logger),
		logger:    logger,
	}
}

func (e *Emotions) Name() string           { return "emotions" }
func (e *Emotions) Role() models.ModelRole { return models.RoleSupplementary }

func (e *Emotions) Analyze(ctx context.Context, text string) models.ModelResult {
	start := time.Now()
	scores, top, err := e.client.classify(ctx, text, EmotionLabels, "This text conveys {}.")
	result := models.ModelResult{
		ModelName: e.Name(),
		ModelRole: e.Role(),
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

func (e *Emotions) Warmup(ctx context.Context) error {
	err := e.client.health(ctx, EmotionLabels)
	if err == nil {
		e.loaded = true
	}
	return err
}

// CrisisCorrelatedSum extracts the capped sum of crisis-correlated
// emotion scores from a completed emotions ModelResult.
func CrisisCorrelatedSum(result models.ModelResult) float64 {
	if !result.Success {
		return 0
	}
	var sum float64
	for _, label := range CrisisCorrelatedEmotions {
		sum += result.AllScores[label]
	}
	if sum > 1.0 {
		sum = 1.0
	}
	return sum
}
