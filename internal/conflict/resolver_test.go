package conflict

import (
	"context"
	"testing"
	"time"

	"crisisengine.dev/ensemble/internal/models"
	"go.uber.org/zap"
)

type fakeAlerter struct {
	alerted chan models.DetectedConflict
}

func newFakeAlerter() *fakeAlerter {
	return &fakeAlerter{alerted: make(chan models.DetectedConflict, 4)}
}

func (f *fakeAlerter) Alert(ctx context.Context, conflict models.DetectedConflict, score float64) error {
	f.alerted <- conflict
	return nil
}

func sampleResults() map[string]models.ModelResult {
	return map[string]models.ModelResult{
		"bart":      {Success: true, AllScores: map[string]float64{"suicide ideation": 0.9, "emotional distress": 0.1}},
		"sentiment": {Success: true, AllScores: map[string]float64{"negative": 0.3}},
		"emotions":  {Success: true, AllScores: map[string]float64{"sadness": 0.2}},
	}
}

func TestResolveNoConflictsPassesScoreThrough(t *testing.T) {
	r := NewResolver(models.StrategyConservative, nil, zap.NewNop())
	result := r.Resolve(context.Background(), "", 0.6, sampleResults(), models.ConflictReport{}, false)
	if result.ResolvedScore != 0.6 {
		t.Errorf("ResolvedScore = %v, want 0.6 unchanged", result.ResolvedScore)
	}
	if result.RequiresReview {
		t.Error("no conflicts and no forceReview should not require review")
	}
}

func TestResolveConservativeTakesMax(t *testing.T) {
	r := NewResolver(models.StrategyConservative, nil, zap.NewNop())
	report := models.ConflictReport{Conflicts: []models.DetectedConflict{{Type: models.ConflictScoreSpread, Severity: models.ConflictWarning}}}
	result := r.Resolve(context.Background(), models.StrategyConservative, 0.5, sampleResults(), report, false)
	if result.ResolvedScore != 0.9 {
		t.Errorf("ResolvedScore = %v, want 0.9 (max additive signal)", result.ResolvedScore)
	}
}

func TestResolveOptimisticTakesMin(t *testing.T) {
	r := NewResolver(models.StrategyOptimistic, nil, zap.NewNop())
	report := models.ConflictReport{Conflicts: []models.DetectedConflict{{Type: models.ConflictScoreSpread, Severity: models.ConflictWarning}}}
	result := r.Resolve(context.Background(), models.StrategyOptimistic, 0.5, sampleResults(), report, false)
	if result.ResolvedScore != 0.2 {
		t.Errorf("ResolvedScore = %v, want 0.2 (min additive signal)", result.ResolvedScore)
	}
}

func TestResolveReviewFlagAlwaysRequiresReview(t *testing.T) {
	r := NewResolver(models.StrategyReviewFlag, nil, zap.NewNop())
	report := models.ConflictReport{Conflicts: []models.DetectedConflict{{Type: models.ConflictScoreSpread, Severity: models.ConflictInfo}}}
	result := r.Resolve(context.Background(), models.StrategyReviewFlag, 0.4, sampleResults(), report, false)
	if !result.RequiresReview {
		t.Error("review_flag strategy must always require review when conflicts are present")
	}
	if result.ResolvedScore != 0.4 {
		t.Errorf("ResolvedScore = %v, want 0.4 unchanged under review_flag", result.ResolvedScore)
	}
}

func TestResolveCriticalConflictForcesReview(t *testing.T) {
	r := NewResolver(models.StrategyConservative, nil, zap.NewNop())
	report := models.ConflictReport{Conflicts: []models.DetectedConflict{{Type: models.ConflictScoreSpread, Severity: models.ConflictCritical}}}
	result := r.Resolve(context.Background(), models.StrategyConservative, 0.5, sampleResults(), report, false)
	if !result.RequiresReview {
		t.Error("a critical conflict should require review regardless of strategy")
	}
}

func TestResolveDispatchesAlertOnCriticalConflict(t *testing.T) {
	alerter := newFakeAlerter()
	r := NewResolver(models.StrategyConservative, alerter, zap.NewNop())
	report := models.ConflictReport{Conflicts: []models.DetectedConflict{{Type: models.ConflictScoreSpread, Severity: models.ConflictCritical}}}
	r.Resolve(context.Background(), models.StrategyConservative, 0.5, sampleResults(), report, false)

	select {
	case got := <-alerter.alerted:
		if got.Severity != models.ConflictCritical {
			t.Errorf("alerted conflict severity = %v, want critical", got.Severity)
		}
	case <-time.After(time.Second):
		t.Error("expected the alerter to be invoked for a critical conflict")
	}
}

func TestResolveDoesNotAlertOnNonCriticalConflict(t *testing.T) {
	alerter := newFakeAlerter()
	r := NewResolver(models.StrategyConservative, alerter, zap.NewNop())
	report := models.ConflictReport{Conflicts: []models.DetectedConflict{{Type: models.ConflictScoreSpread, Severity: models.ConflictWarning}}}
	r.Resolve(context.Background(), models.StrategyConservative, 0.5, sampleResults(), report, false)

	select {
	case got := <-alerter.alerted:
		t.Errorf("unexpected alert for non-critical conflict: %+v", got)
	case <-time.After(100 * time.Millisecond):
		// expected: no alert
	}
}
