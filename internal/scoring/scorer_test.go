package scoring

import (
	"testing"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
)

func thresholds() config.ThresholdConfig {
	return config.ThresholdConfig{Critical: 0.85, High: 0.70, Medium: 0.50, Low: 0.30}
}

func TestScoreWeightedSum(t *testing.T) {
	s := New(thresholds(), 0.6)
	results := map[string]models.ModelResult{
		"bart":      {Success: true, AllScores: map[string]float64{"suicide ideation": 0.9, "emotional distress": 0.2, "safe": 0.1}},
		"sentiment": {Success: true, AllScores: map[string]float64{"negative": 0.8}},
		"emotions":  {Success: true, AllScores: map[string]float64{"sadness": 0.1}},
	}
	weights := map[string]float64{"bart": 0.5, "sentiment": 0.25, "emotions": 0.25}

	score := s.Score(results, weights)

	want := 0.5*0.9 + 0.25*0.8 + 0.25*0.1
	if diff := score.CrisisScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CrisisScore = %v, want %v", score.CrisisScore, want)
	}
	if score.Severity != models.SeverityCritical {
		t.Errorf("Severity = %v, want critical", score.Severity)
	}
}

func TestScoreReturnsUndampenedBaseAndIronyProbability(t *testing.T) {
	s := New(thresholds(), 0.6)
	results := map[string]models.ModelResult{
		"bart":      {Success: true, AllScores: map[string]float64{"suicide ideation": 0.9, "emotional distress": 0.1}},
		"sentiment": {Success: true, AllScores: map[string]float64{"negative": 0.8}},
		"emotions":  {Success: true, AllScores: map[string]float64{}},
		"irony":     {Success: true, AllScores: map[string]float64{"ironic": 1.0}},
	}
	weights := map[string]float64{"bart": 0.5, "sentiment": 0.25, "emotions": 0.25}

	score := s.Score(results, weights)

	base := 0.5*0.9 + 0.25*0.8
	if diff := score.CrisisScore - base; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CrisisScore = %v, want %v (undampened base)", score.CrisisScore, base)
	}
	if score.IronyProbability != 1.0 {
		t.Errorf("IronyProbability = %v, want 1.0", score.IronyProbability)
	}
}

func TestDampenAppliesMultiplicativeReductionAfterAmplification(t *testing.T) {
	s := New(thresholds(), 0.6)
	amplified := 0.7

	final, delta := s.Dampen(amplified, 1.0)

	want := amplified * (1 - 0.6*1.0)
	if diff := final - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Dampen final = %v, want %v", final, want)
	}
	if delta >= 0 {
		t.Errorf("Dampen delta should be <= 0, got %v", delta)
	}
}

func TestDampenNoOpWhenIronyProbabilityZero(t *testing.T) {
	s := New(thresholds(), 0.6)
	final, delta := s.Dampen(0.7, 0)
	if final != 0.7 {
		t.Errorf("Dampen with zero irony probability = %v, want 0.7 unchanged", final)
	}
	if delta != 0 {
		t.Errorf("delta = %v, want 0", delta)
	}
}

func TestScoreFailedModelExcluded(t *testing.T) {
	s := New(thresholds(), 0.6)
	results := map[string]models.ModelResult{
		"bart":      {Success: false},
		"sentiment": {Success: true, AllScores: map[string]float64{"negative": 0.4}},
	}
	weights := map[string]float64{"bart": 0.5, "sentiment": 0.5}

	score := s.Score(results, weights)

	if diff := score.CrisisScore - 0.2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CrisisScore = %v, want 0.2 (bart excluded)", score.CrisisScore)
	}
}

func TestSeverityForOrderedThresholds(t *testing.T) {
	s := New(thresholds(), 0.6)
	cases := []struct {
		score float64
		want  models.Severity
	}{
		{0.90, models.SeverityCritical},
		{0.85, models.SeverityCritical},
		{0.75, models.SeverityHigh},
		{0.55, models.SeverityMedium},
		{0.35, models.SeverityLow},
		{0.10, models.SeveritySafe},
	}
	for _, c := range cases {
		if got := s.SeverityFor(c.score); got != c.want {
			t.Errorf("SeverityFor(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestClamp01(t *testing.T) {
	if clamp01(-0.5) != 0 {
		t.Error("clamp01(-0.5) should be 0")
	}
	if clamp01(1.5) != 1 {
		t.Error("clamp01(1.5) should be 1")
	}
	if clamp01(0.4) != 0.4 {
		t.Error("clamp01(0.4) should be unchanged")
	}
}
