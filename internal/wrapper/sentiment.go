package wrapper

import (
	"context"
	"time"

	"crisisengine.dev/ensemble/internal/models"
	"go.uber.org/zap"
)

// SentimentLabels is the zero-shot label set for the secondary model.
var SentimentLabels = []string{"negative", "neutral", "positive"}

// Sentiment is the secondary model wrapper (spec §4.1 table, secondary,
// weight 0.25): crisis signal is the negative-sentiment score.
type Sentiment struct {
	baseState
	client *zeroShotClient
	logger *zap.Logger
}

func NewSentiment(apiKey, endpoint string, weight float64, enabled bool, timeout time.Duration, logger *zap.Logger) *Sentiment {
	return &Sentiment{
		baseState: baseState{enabled: enabled, weight: weight},
		client:    newZeroShotClient(apiKey, endpoint, timeout, logger),
		logger:    logger,
	}
}

func (s *Sentiment) Name() string           { return "sentiment" }
func (s *Sentiment) Role() models.ModelRole { return models.RoleSecondary }

func (s *Sentiment) Analyze(ctx context.Context, text string) models.ModelResult {
	start := time.Now()
	scores, top, err := s.client.classify(ctx, text, SentimentLabels, "The sentiment of this text is {}.")
	result := models.ModelResult{
		ModelName: s.Name(),
		ModelRole: s.Role(),
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

func (s *Sentiment) Warmup(ctx context.Context) error {
	err := s.client.health(ctx, SentimentLabels)
	if err == nil {
		s.loaded = true
	}
	return err
}

// NegativeSignal extracts the secondary model's crisis signal: the
// negative-sentiment score (spec §4.1 table).
func NegativeSignal(result models.ModelResult) float64 {
	if !result.Success {
		return 0
	}
	return result.AllScores["negative"]
}
