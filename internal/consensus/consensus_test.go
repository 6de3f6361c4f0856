package consensus

import (
	"testing"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
)

func testThresholds() config.ThresholdConfig {
	return config.ThresholdConfig{Critical: 0.85, High: 0.70, Medium: 0.50, Low: 0.30}
}

func crisisResults() map[string]models.ModelResult {
	return map[string]models.ModelResult{
		"bart":      {Success: true, AllScores: map[string]float64{"suicide ideation": 0.9, "emotional distress": 0.1}},
		"sentiment": {Success: true, AllScores: map[string]float64{"negative": 0.8}},
		"emotions":  {Success: true, AllScores: map[string]float64{"sadness": 0.7}},
		"irony":     {Success: true, AllScores: map[string]float64{"ironic": 0.1}},
	}
}

func TestSelectWeightedReusesScore(t *testing.T) {
	sel := New(testThresholds())
	score := models.EnsembleScore{CrisisScore: 0.77, Confidence: 0.6}
	result, forceReview := sel.Select(models.AlgorithmWeighted, crisisResults(), nil, score, models.ConflictReport{})

	if forceReview {
		t.Error("weighted should never force review")
	}
	if result.FinalScore != 0.77 {
		t.Errorf("FinalScore = %v, want scorer's CrisisScore (0.77)", result.FinalScore)
	}
	if result.Confidence != 0.6 {
		t.Errorf("Confidence = %v, want scorer's Confidence (0.6)", result.Confidence)
	}
}

func TestSelectMajorityTieForcesReview(t *testing.T) {
	sel := New(testThresholds())
	results := map[string]models.ModelResult{
		"bart":      {Success: true, AllScores: map[string]float64{"suicide ideation": 0.9, "emotional distress": 0}}, // crisis
		"sentiment": {Success: true, AllScores: map[string]float64{"negative": 0.1}},                                  // no crisis
	}
	_, forceReview := sel.Select(models.AlgorithmMajority, results, nil, models.EnsembleScore{}, models.ConflictReport{})
	if !forceReview {
		t.Error("a 1-1 majority tie should force review")
	}
}

func TestSelectUnanimousDissentForcesReview(t *testing.T) {
	sel := New(testThresholds())
	results := map[string]models.ModelResult{
		"bart":      {Success: true, AllScores: map[string]float64{"suicide ideation": 0.9, "emotional distress": 0}}, // crisis
		"sentiment": {Success: true, AllScores: map[string]float64{"negative": 0.1}},                                  // no crisis
		"emotions":  {Success: true, AllScores: map[string]float64{}},
	}
	result, forceReview := sel.Select(models.AlgorithmUnanimous, results, nil, models.EnsembleScore{}, models.ConflictReport{})
	if !forceReview {
		t.Error("unanimous dissent with at least one crisis vote should force review")
	}
	if result.FinalScore != 0 {
		t.Errorf("FinalScore = %v, want 0 (no-crisis decision under dissent)", result.FinalScore)
	}
}

func TestSelectUnanimousAllAgree(t *testing.T) {
	sel := New(testThresholds())
	results := crisisResults()
	result, forceReview := sel.Select(models.AlgorithmUnanimous, results, nil, models.EnsembleScore{}, models.ConflictReport{})
	if forceReview {
		t.Error("full agreement should not force review")
	}
	if result.FinalScore <= 0 {
		t.Errorf("FinalScore = %v, want > 0 when every model votes crisis", result.FinalScore)
	}
}

func TestSelectConflictAwareForcesReviewOnCriticalConflict(t *testing.T) {
	sel := New(testThresholds())
	score := models.EnsembleScore{CrisisScore: 0.6, Confidence: 0.5}
	conflicts := models.ConflictReport{Conflicts: []models.DetectedConflict{{Severity: models.ConflictCritical}}}
	_, forceReview := sel.Select(models.AlgorithmConflictAware, crisisResults(), nil, score, conflicts)
	if !forceReview {
		t.Error("a critical conflict should force review under conflict_aware")
	}
}

func TestAgreementLevelUnanimousWhenAllVotesMatch(t *testing.T) {
	sel := New(testThresholds())
	level := sel.agreementLevel([]float64{0.9, 0.85}, map[string]bool{"a": true, "b": true})
	if level != models.AgreementUnanimous {
		t.Errorf("agreementLevel = %v, want unanimous", level)
	}
}
