// Package scoring implements the weighted scorer (C3): fusing the four
// model results into a single crisis score and severity. Irony-based
// multiplicative dampening (Dampen) is exposed separately so the caller
// can apply it last, after optional external-risk amplification.
// Grounded on the
// teacher's internal/classifier/ensemble.go combineScores/computeAgreement
// shape (strategy-selected combination plus a variance-derived agreement
// figure), generalized from toxicity-category averaging to the spec's
// single-score weighted fusion with dampening.
package scoring

import (
	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
	"crisisengine.dev/ensemble/internal/wrapper"
)

// Scorer fuses model results into an EnsembleScore.
type Scorer struct {
	thresholds config.ThresholdConfig
	ironyAlpha float64
}

// New creates a Scorer. thresholds must satisfy critical > high > medium
// > low > 0 (validated by config.EngineConfig.Validate before this is
// constructed).
func New(thresholds config.ThresholdConfig, ironyAlpha float64) *Scorer {
	return &Scorer{thresholds: thresholds, ironyAlpha: ironyAlpha}
}

// additiveModels are the models whose weighted contribution sums directly
// into base_without_irony (spec §4.3 step 4). Irony is excluded: it
// dampens the sum rather than adding to it.
var additiveModels = []string{"bart", "sentiment", "emotions"}

func signalFor(name string, result models.ModelResult) float64 {
	switch name {
	case "bart":
		return wrapper.CrisisSignal(result)
	case "sentiment":
		return wrapper.NegativeSignal(result)
	case "emotions":
		return wrapper.CrisisCorrelatedSum(result)
	case "irony":
		return wrapper.IronyProbability(result)
	default:
		return 0
	}
}

// Score fuses results (keyed by model name) using weights (the effective,
// already-redistributed weights for this request — spec §4.3 step 3
// happens before this call, in the engine). Returns base_without_irony
// (spec §4.3 step 4) with confidence and severity derived from that same
// undampened base: this is the pre-amplification, pre-dampening score the
// external-risk gate inspects (spec §4.8). Irony probability is carried
// on the result for a later call to Dampen, which the caller must make
// after any amplification has been applied (spec §4.11 steps 4-5).
func (s *Scorer) Score(results map[string]models.ModelResult, weights map[string]float64) models.EnsembleScore {
	contributions := make(map[string]float64, len(weights))
	var baseWithoutIrony float64
	var signals []float64

	for _, name := range additiveModels {
		result, ok := results[name]
		if !ok || !result.Success {
			continue
		}
		signal := signalFor(name, result)
		contribution := weights[name] * signal
		contributions[name] = contribution
		baseWithoutIrony += contribution
		signals = append(signals, signal)
	}

	ironyProb := 0.0
	if ironyResult, ok := results["irony"]; ok && ironyResult.Success {
		ironyProb = wrapper.IronyProbability(ironyResult)
	}

	confidence := s.confidence(signals)
	base := clamp01(baseWithoutIrony)
	severity := s.SeverityFor(base)

	return models.EnsembleScore{
		CrisisScore:      base,
		Confidence:       confidence,
		Severity:         severity,
		Contributions:    contributions,
		IronyProbability: ironyProb,
	}
}

// Dampen applies the final multiplicative irony-dampening step (spec
// §4.3 step 5 / §4.8: "applied after amplification"). amplified is the
// score following the optional external-risk gate, or the unamplified
// base score when the gate did not fire. Returns the final crisis score
// and the dampening delta (<= 0) for the contributions audit trail.
func (s *Scorer) Dampen(amplified, ironyProbability float64) (float64, float64) {
	dampened := clamp01(amplified * (1 - s.ironyAlpha*ironyProbability))
	return dampened, dampened - amplified
}

// confidence implements spec §4.3 step 6: confidence is derived from
// agreement (1 − normalized variance across successful additive models)
// and the maximum observed signal, with confidence >= max_signal *
// agreement guaranteed by construction (it is computed as exactly that
// product).
func (s *Scorer) confidence(signals []float64) float64 {
	if len(signals) == 0 {
		return 0
	}
	maxSignal := signals[0]
	var sum float64
	for _, v := range signals {
		sum += v
		if v > maxSignal {
			maxSignal = v
		}
	}
	mean := sum / float64(len(signals))
	var variance float64
	for _, v := range signals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(signals))

	// Signals live in [0,1], so variance is bounded by 0.25; normalize to
	// [0,1] before treating it as a disagreement penalty.
	normalizedVariance := variance / 0.25
	if normalizedVariance > 1 {
		normalizedVariance = 1
	}
	agreement := 1 - normalizedVariance

	return clamp01(maxSignal * agreement)
}

// SeverityFor maps a score to severity via ordered thresholds (spec §4.3
// step 7, I2). Exported so callers that adjust a score after Score has
// already run (external-risk amplification) can reclassify it without
// duplicating the threshold ladder.
func (s *Scorer) SeverityFor(score float64) models.Severity {
	switch {
	case score >= s.thresholds.Critical:
		return models.SeverityCritical
	case score >= s.thresholds.High:
		return models.SeverityHigh
	case score >= s.thresholds.Medium:
		return models.SeverityMedium
	case score >= s.thresholds.Low:
		return models.SeverityLow
	default:
		return models.SeveritySafe
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
