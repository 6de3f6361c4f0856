package context

import (
	"fmt"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
)

// Escalation classification constants (C9.1). These are not
// configuration-surfaced (spec §6 lists only the context tunables that
// callers reasonably need to tune); a single jump this large, or a
// sustained average rate this high, is judged rapid/sudden regardless of
// deployment.
const (
	suddenJumpThreshold = 0.35
	rapidRateThreshold  = 0.15
	gradualRateThreshold = 0.02
)

// DetectEscalation classifies the shape of change in crisis score across
// history plus the current message (spec §4.9.1). series must be
// oldest-first with the current score last.
func DetectEscalation(series []float64, thresholds config.ThresholdConfig) models.EscalationResult {
	if len(series) < 2 {
		return models.EscalationResult{Type: models.EscalationNone}
	}

	deltas := make([]float64, len(series)-1)
	var sumDelta, maxJump float64
	positiveSteps := 0
	for i := 1; i < len(series); i++ {
		d := series[i] - series[i-1]
		deltas[i-1] = d
		sumDelta += d
		if d > maxJump {
			maxJump = d
		}
		if d > 0 {
			positiveSteps++
		}
	}
	rate := sumDelta / float64(len(deltas))
	confidence := float64(positiveSteps) / float64(len(deltas))

	escalationType := models.EscalationNone
	switch {
	case maxJump >= suddenJumpThreshold:
		escalationType = models.EscalationSudden
	case rate >= rapidRateThreshold:
		escalationType = models.EscalationRapid
	case rate >= gradualRateThreshold:
		escalationType = models.EscalationGradual
	}

	var pattern string
	if escalationType != models.EscalationNone {
		pattern = fmt.Sprintf("%s escalation across %d messages, average step %.2f", escalationType, len(series), rate)
	}

	return models.EscalationResult{
		Type:               escalationType,
		Rate:               rate,
		Pattern:            pattern,
		Confidence:         confidence,
		InterventionPoints: crossingPoints(series, thresholds.Medium),
	}
}

// crossingPoints returns the indices where series first crosses from
// below threshold to at-or-above it, marking where intervention would
// have first been warranted.
func crossingPoints(series []float64, threshold float64) []int {
	var points []int
	below := true
	for i, v := range series {
		if below && v >= threshold {
			points = append(points, i)
			below = false
		} else if v < threshold {
			below = true
		}
	}
	return points
}
