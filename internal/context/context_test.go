package context

import (
	"testing"
	"time"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
)

func testThresholds() config.ThresholdConfig {
	return config.ThresholdConfig{Critical: 0.85, High: 0.70, Medium: 0.50, Low: 0.30}
}

func testContextConfig() config.ContextConfig {
	return config.ContextConfig{
		Enabled:               true,
		MaxHistory:            50,
		LateNightWindowStart:  22,
		LateNightWindowEnd:    4,
		RapidPostingK:         5,
		RapidPostingWindowMin: 10,
		TrendWindowN:          6,
		TrendEpsilon:          0.02,
		TrendVolatility:       0.2,
	}
}

func TestDetectEscalationSuddenJump(t *testing.T) {
	result := DetectEscalation([]float64{0.1, 0.6}, testThresholds())
	if result.Type != models.EscalationSudden {
		t.Errorf("Type = %v, want sudden for a 0.5 jump", result.Type)
	}
}

func TestDetectEscalationNoneForFlatSeries(t *testing.T) {
	result := DetectEscalation([]float64{0.3, 0.3, 0.31}, testThresholds())
	if result.Type != models.EscalationNone {
		t.Errorf("Type = %v, want none for a near-flat series", result.Type)
	}
}

func TestDetectEscalationTooShortSeries(t *testing.T) {
	result := DetectEscalation([]float64{0.5}, testThresholds())
	if result.Type != models.EscalationNone {
		t.Error("a single-point series cannot escalate")
	}
}

func TestDeriveUrgencyCriticalIsAlwaysImmediate(t *testing.T) {
	u := DeriveUrgency(models.SeverityCritical, models.EscalationResult{}, models.TemporalResult{}, models.TrendResult{})
	if u != models.UrgencyImmediate {
		t.Errorf("urgency = %v, want immediate for critical severity", u)
	}
}

func TestDeriveUrgencyHighWithSuddenEscalationIsImmediate(t *testing.T) {
	u := DeriveUrgency(models.SeverityHigh, models.EscalationResult{Type: models.EscalationSudden}, models.TemporalResult{}, models.TrendResult{})
	if u != models.UrgencyImmediate {
		t.Errorf("urgency = %v, want immediate for high severity + sudden escalation", u)
	}
}

func TestDeriveUrgencySafeIsNone(t *testing.T) {
	u := DeriveUrgency(models.SeveritySafe, models.EscalationResult{}, models.TemporalResult{}, models.TrendResult{})
	if u != models.UrgencyNone {
		t.Errorf("urgency = %v, want none for safe severity", u)
	}
}

func TestAnalyzeWithNoHistoryReportsNoEscalation(t *testing.T) {
	a := New(testContextConfig(), testThresholds())
	result := a.Analyze(nil, 0.9, models.SeverityCritical, time.Now())
	if result == nil {
		t.Fatal("Analyze should still return a result when called directly (caller decides whether to call it)")
	}
	if result.Escalation.Type != models.EscalationNone {
		t.Error("with no history, the single-point series cannot show escalation")
	}
}

func TestAnalyzeBuildsSeriesFromHistoryAndCurrentScore(t *testing.T) {
	a := New(testContextConfig(), testThresholds())
	score1, score2 := 0.1, 0.2
	history := []models.MessageHistoryItem{
		{Text: "a", Timestamp: time.Now().Add(-time.Hour), CrisisScore: &score1},
		{Text: "b", Timestamp: time.Now().Add(-time.Minute), CrisisScore: &score2},
	}
	result := a.Analyze(history, 0.9, models.SeverityCritical, time.Now())
	if result.Escalation.Type != models.EscalationSudden {
		t.Errorf("Escalation.Type = %v, want sudden given 0.1 -> 0.2 -> 0.9", result.Escalation.Type)
	}
	if result.InterventionUrgency != models.UrgencyImmediate {
		t.Errorf("InterventionUrgency = %v, want immediate for critical severity", result.InterventionUrgency)
	}
}
