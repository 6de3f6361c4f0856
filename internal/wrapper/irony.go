package wrapper

import (
	"context"
	"time"

	"crisisengine.dev/ensemble/internal/models"
	"go.uber.org/zap"
)

// IronyLabels is the binary zero-shot label set for the tertiary model.
var IronyLabels = []string{"ironic", "non-ironic"}

// Irony is the tertiary model wrapper (spec §4.1 table, tertiary, weight
// 0.15). Its output is not an additive crisis signal; the scorer uses its
// ironic-label score as a multiplicative dampening factor (§4.3 step 4).
type Irony struct {
	baseState
	client *zeroShotClient
	logger *zap.Logger
}

func NewIrony(apiKey, endpoint string, weight float64, enabled bool, timeout time.Duration, logger *zap.Logger) *Irony {
	return &Irony{
		baseState: baseState{enabled: enabled, weight: weight},
		client:    newZeroShotClient(apiKey, endpoint, timeout, logger),
		logger:    logger,
	}
}

func (i *Irony) Name() string           { return "irony" }
func (i *Irony) Role() models.ModelRole { return models.RoleTertiary }

func (i *Irony) Analyze(ctx context.Context, text string) models.ModelResult {
	start := time.Now()
	scores, top, err := i.client.classify(ctx, text, IronyLabels, "This text is {}.")
	result := models.ModelResult{
		ModelName: i.Name(),
		ModelRole: i.Role(),
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

func (i *Irony) Warmup(ctx context.Context) error {
	err := i.client.health(ctx, IronyLabels)
	if err == nil {
		i.loaded = true
	}
	return err
}

// IronyProbability extracts P(ironic) from a completed irony ModelResult,
// defaulting to 0 (no dampening) when the model failed.
func IronyProbability(result models.ModelResult) float64 {
	if !result.Success {
		return 0
	}
	if p, ok := result.AllScores["ironic"]; ok {
		return p
	}
	return 0
}
