// Package conflict implements the conflict detector (C5) and resolver
// (C6): finding disagreement patterns between model signals and rewriting
// the fused score when a resolution strategy requires it. Grounded on the
// teacher's internal/classifier/ensemble.go detectDisagreement shape
// (pairwise score-spread flagging), extended to the spec's four named
// conflict types and four resolution strategies.
package conflict

import (
	"fmt"
	"sort"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
	"crisisengine.dev/ensemble/internal/wrapper"
)

// Detector finds DetectedConflicts among a request's model results.
type Detector struct {
	spreadThreshold   float64
	criticalThreshold float64
}

func NewDetector(spreadThreshold, criticalThreshold float64) *Detector {
	return &Detector{spreadThreshold: spreadThreshold, criticalThreshold: criticalThreshold}
}

func NewDetectorFromConfig(cfg config.EngineConfig) *Detector {
	return NewDetector(cfg.ConflictSpreadThreshold, cfg.ConflictCriticalThreshold)
}

// Detect runs every rule in a fixed order (spec §4.5 "order is
// deterministic, by detection rule id, never by magnitude") and returns
// the conflicts found. Absent or failed models simply don't participate
// in the rules that need them.
func (d *Detector) Detect(results map[string]models.ModelResult) models.ConflictReport {
	var conflicts []models.DetectedConflict

	if c, ok := d.scoreSpread(results); ok {
		conflicts = append(conflicts, c)
	}
	if c, ok := d.ironyVsSentiment(results); ok {
		conflicts = append(conflicts, c)
	}
	if c, ok := d.emotionVsCrisis(results); ok {
		conflicts = append(conflicts, c)
	}
	if c, ok := d.labelMismatch(results); ok {
		conflicts = append(conflicts, c)
	}

	return models.ConflictReport{Conflicts: conflicts}
}

// scoreSpread fires when the additive models' crisis signals disagree
// widely (max - min reaches or exceeds spreadThreshold).
func (d *Detector) scoreSpread(results map[string]models.ModelResult) (models.DetectedConflict, bool) {
	names := []string{"bart", "sentiment", "emotions"}
	signals := make(map[string]float64)
	for _, name := range names {
		result, ok := results[name]
		if !ok || !result.Success {
			continue
		}
		signals[name] = additiveSignal(name, result)
	}
	if len(signals) < 2 {
		return models.DetectedConflict{}, false
	}

	var minName, maxName string
	var min, max float64
	first := true
	for name, s := range signals {
		if first || s < min {
			min = s
			minName = name
		}
		if first || s > max {
			max = s
			maxName = name
		}
		first = false
	}
	spread := max - min
	if spread < d.spreadThreshold {
		return models.DetectedConflict{}, false
	}

	return models.DetectedConflict{
		Type:           models.ConflictScoreSpread,
		Severity:       d.severityFor(spread),
		ModelsInvolved: sortedPair(minName, maxName),
		Magnitude:      spread,
		Description:    fmt.Sprintf("%s and %s disagree on crisis signal by %.2f", minName, maxName, spread),
	}, true
}

// ironyVsSentiment fires when the irony model reports high irony
// probability while the sentiment model independently reports strong
// negative sentiment: the two disagree about whether distress is
// sincere.
func (d *Detector) ironyVsSentiment(results map[string]models.ModelResult) (models.DetectedConflict, bool) {
	ironyResult, ok := results["irony"]
	if !ok || !ironyResult.Success {
		return models.DetectedConflict{}, false
	}
	sentimentResult, ok := results["sentiment"]
	if !ok || !sentimentResult.Success {
		return models.DetectedConflict{}, false
	}

	irony := wrapper.IronyProbability(ironyResult)
	negative := wrapper.NegativeSignal(sentimentResult)
	if irony < 0.7 || negative < 0.7 {
		return models.DetectedConflict{}, false
	}

	severity := models.ConflictWarning
	if bartResult, ok := results["bart"]; ok && bartResult.Success && wrapper.CrisisSignal(bartResult) >= 0.7 {
		severity = models.ConflictCritical
	}

	magnitude := irony * negative
	return models.DetectedConflict{
		Type:           models.ConflictIronyVsSentiment,
		Severity:       severity,
		ModelsInvolved: []string{"irony", "sentiment"},
		Magnitude:      magnitude,
		Description:    fmt.Sprintf("irony probability %.2f alongside strong negative sentiment %.2f", irony, negative),
	}, true
}

// emotionVsCrisis fires when the primary model's crisis signal and the
// supplementary emotions model's crisis-correlated sum diverge sharply:
// one says crisis, the other doesn't corroborate it.
func (d *Detector) emotionVsCrisis(results map[string]models.ModelResult) (models.DetectedConflict, bool) {
	bartResult, ok := results["bart"]
	if !ok || !bartResult.Success {
		return models.DetectedConflict{}, false
	}
	emotionsResult, ok := results["emotions"]
	if !ok || !emotionsResult.Success {
		return models.DetectedConflict{}, false
	}

	bartSignal := wrapper.CrisisSignal(bartResult)
	emotionSignal := wrapper.CrisisCorrelatedSum(emotionsResult)
	magnitude := absDiff(bartSignal, emotionSignal)
	if magnitude < d.spreadThreshold {
		return models.DetectedConflict{}, false
	}

	return models.DetectedConflict{
		Type:           models.ConflictEmotionVsCrisis,
		Severity:       d.severityFor(magnitude),
		ModelsInvolved: []string{"bart", "emotions"},
		Magnitude:      magnitude,
		Description:    fmt.Sprintf("primary crisis signal %.2f not corroborated by emotion signal %.2f", bartSignal, emotionSignal),
	}, true
}

// labelMismatch fires when the primary model's top label is the
// non-crisis label "safe" while its own crisis-correlated score is still
// elevated: the label and the underlying score disagree about the
// outcome.
func (d *Detector) labelMismatch(results map[string]models.ModelResult) (models.DetectedConflict, bool) {
	bartResult, ok := results["bart"]
	if !ok || !bartResult.Success {
		return models.DetectedConflict{}, false
	}
	if bartResult.Label != "safe" {
		return models.DetectedConflict{}, false
	}
	crisisSignal := wrapper.CrisisSignal(bartResult)
	if crisisSignal < d.spreadThreshold {
		return models.DetectedConflict{}, false
	}

	return models.DetectedConflict{
		Type:           models.ConflictLabelMismatch,
		Severity:       d.severityFor(crisisSignal),
		ModelsInvolved: []string{"bart"},
		Magnitude:      crisisSignal,
		Description:    fmt.Sprintf("top label %q but crisis-correlated score %.2f", bartResult.Label, crisisSignal),
	}, true
}

func (d *Detector) severityFor(magnitude float64) models.ConflictSeverity {
	switch {
	case magnitude >= d.criticalThreshold:
		return models.ConflictCritical
	case magnitude >= d.spreadThreshold:
		return models.ConflictWarning
	default:
		return models.ConflictInfo
	}
}

func additiveSignal(name string, result models.ModelResult) float64 {
	switch name {
	case "bart":
		return wrapper.CrisisSignal(result)
	case "sentiment":
		return wrapper.NegativeSignal(result)
	case "emotions":
		return wrapper.CrisisCorrelatedSum(result)
	default:
		return 0
	}
}

func sortedPair(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
