package context

import (
	"time"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
)

// Analyzer orchestrates history validation and the three context
// detectors into one ContextAnalysisResult (C9). It is only invoked when
// the request carries history (spec §4.9 "context analysis is skipped
// entirely when history is absent").
type Analyzer struct {
	cfg        config.ContextConfig
	thresholds config.ThresholdConfig
}

func New(cfg config.ContextConfig, thresholds config.ThresholdConfig) *Analyzer {
	return &Analyzer{cfg: cfg, thresholds: thresholds}
}

// Analyze validates history, builds the crisis-score series (history
// plus the current message's score), and runs the escalation, temporal,
// and trend detectors against it.
func (a *Analyzer) Analyze(history []models.MessageHistoryItem, currentScore float64, severity models.Severity, now time.Time) *models.ContextAnalysisResult {
	cleaned, issues := ValidateHistory(history, a.cfg.MaxHistory)

	series := make([]float64, 0, len(cleaned)+1)
	for _, item := range cleaned {
		if item.CrisisScore != nil {
			series = append(series, *item.CrisisScore)
		}
	}
	series = append(series, currentScore)

	escalation := DetectEscalation(series, a.thresholds)
	temporal := DetectTemporal(cleaned, now, a.cfg)
	trend := AnalyzeTrend(series, a.cfg)
	urgency := DeriveUrgency(severity, escalation, temporal, trend)

	return &models.ContextAnalysisResult{
		Escalation:              escalation,
		Temporal:                temporal,
		Trend:                   trend,
		InterventionUrgency:     urgency,
		HistoryValidationIssues: issues,
		SmoothedSeries:          movingAverage(series, 3),
	}
}
