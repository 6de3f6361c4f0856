// Package aggregator implements the result aggregator and explainability
// layer (C10): folding every upstream component's output into the single
// CrisisAssessment returned at the API boundary, plus a deterministic,
// non-model-generated explanation at one of three verbosity levels.
// Grounded on the teacher's internal/classifier/ensemble.go
// buildModerationResult assembly step, generalized from a moderation
// verdict to a crisis assessment.
package aggregator

import (
	"fmt"
	"sort"
	"strings"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Aggregator builds the final CrisisAssessment.
type Aggregator struct {
	thresholds config.ThresholdConfig
}

func New(thresholds config.ThresholdConfig) *Aggregator {
	return &Aggregator{thresholds: thresholds}
}

// Input is everything the upstream pipeline stages produced for one
// request.
type Input struct {
	Signals          []models.ModelResult
	Score            models.EnsembleScore
	Consensus        models.ConsensusResult
	Conflicts        *models.ConflictReport
	Resolution       *models.ResolutionResult
	Context          *models.ContextAnalysisResult
	ExternalRisk     *models.ExternalRiskResult
	ModelsUsed       []string
	IsDegraded       bool
	ProcessingTimeMS int64
	Verbosity        models.Verbosity
}

// Build derives crisis_detected, requires_intervention, and
// recommended_action from the fused score and severity, and renders the
// explanation (spec §4.10).
func (a *Aggregator) Build(in Input) models.CrisisAssessment {
	finalScore := in.Score.CrisisScore
	if in.Resolution != nil {
		finalScore = in.Resolution.ResolvedScore
	}

	severity := a.severityFor(finalScore)
	crisisDetected := severity != models.SeveritySafe

	urgency := models.UrgencyNone
	if in.Context != nil {
		urgency = in.Context.InterventionUrgency
	}

	requiresReview := in.Resolution != nil && in.Resolution.RequiresReview
	// requires_intervention does not require crisisDetected: a
	// requires_review result implies intervention regardless of
	// nominal severity (spec §4.10, I8).
	requiresIntervention := urgency.AtLeast(models.UrgencyElevated) || requiresReview || severity.AtLeast(models.SeverityHigh)

	action := recommendedAction(severity, urgency, requiresReview)

	assessment := models.CrisisAssessment{
		CrisisDetected:       crisisDetected,
		Severity:             severity,
		Confidence:           in.Consensus.Confidence,
		CrisisScore:          finalScore,
		RequiresIntervention: requiresIntervention,
		RecommendedAction:    action,
		Signals:              in.Signals,
		Consensus:            in.Consensus,
		Conflicts:            in.Conflicts,
		Resolution:           in.Resolution,
		Context:              in.Context,
		ProcessingTimeMS:      in.ProcessingTimeMS,
		ModelsUsed:           in.ModelsUsed,
		IsDegraded:           in.IsDegraded,
		ExternalRisk:         in.ExternalRisk,
	}
	assessment.Explanation = explain(in.Verbosity, assessment)
	return assessment
}

func (a *Aggregator) severityFor(score float64) models.Severity {
	switch {
	case score >= a.thresholds.Critical:
		return models.SeverityCritical
	case score >= a.thresholds.High:
		return models.SeverityHigh
	case score >= a.thresholds.Medium:
		return models.SeverityMedium
	case score >= a.thresholds.Low:
		return models.SeverityLow
	default:
		return models.SeveritySafe
	}
}

// recommendedAction maps severity/urgency/review status to a
// moderator-facing action (spec §4.10).
func recommendedAction(severity models.Severity, urgency models.InterventionUrgency, requiresReview bool) models.RecommendedAction {
	switch {
	case severity == models.SeverityCritical || urgency == models.UrgencyImmediate:
		return models.ActionImmediateIntervention
	case severity == models.SeverityHigh || urgency == models.UrgencyUrgent:
		return models.ActionPriorityResponse
	case requiresReview || severity == models.SeverityMedium || urgency == models.UrgencyElevated:
		return models.ActionAcknowledge
	case severity == models.SeverityLow || urgency == models.UrgencyRoutine:
		return models.ActionMonitor
	default:
		return models.ActionIgnore
	}
}

// explain renders a deterministic, template-based explanation at the
// requested verbosity. Nothing here is model-generated: every sentence is
// built directly from the structured fields already on assessment.
func explain(verbosity models.Verbosity, a models.CrisisAssessment) string {
	switch verbosity {
	case models.VerbosityMinimal:
		return explainMinimal(a)
	case models.VerbosityDetailed:
		return explainDetailed(a)
	default:
		return explainStandard(a)
	}
}

func explainMinimal(a models.CrisisAssessment) string {
	if !a.CrisisDetected {
		return "No crisis indicators detected."
	}
	return fmt.Sprintf("%s severity crisis detected (score %.2f).", titleCaser.String(string(a.Severity)), a.CrisisScore)
}

func explainStandard(a models.CrisisAssessment) string {
	var b strings.Builder
	if !a.CrisisDetected {
		fmt.Fprintf(&b, "No crisis indicators detected (score %.2f, confidence %.2f).", a.CrisisScore, a.Confidence)
	} else {
		fmt.Fprintf(&b, "%s severity crisis detected (score %.2f, confidence %.2f) via %s consensus.",
			titleCaser.String(string(a.Severity)), a.CrisisScore, a.Confidence, a.Consensus.Algorithm)
	}
	if a.Conflicts != nil && len(a.Conflicts.Conflicts) > 0 {
		fmt.Fprintf(&b, " %d model conflict(s) detected.", len(a.Conflicts.Conflicts))
	}
	if a.IsDegraded {
		b.WriteString(" Assessment is degraded: one or more models were unavailable.")
	}
	return b.String()
}

func explainDetailed(a models.CrisisAssessment) string {
	var b strings.Builder
	b.WriteString(explainStandard(a))

	if len(a.Signals) > 0 {
		names := make([]string, 0, len(a.Signals))
		for _, s := range a.Signals {
			if s.Success {
				names = append(names, fmt.Sprintf("%s=%.2f", s.ModelName, s.Score))
			}
		}
		sort.Strings(names)
		fmt.Fprintf(&b, " Signals: %s.", strings.Join(names, ", "))
	}

	if a.Conflicts != nil {
		for _, c := range a.Conflicts.Conflicts {
			fmt.Fprintf(&b, " Conflict[%s/%s]: %s.", c.Type, c.Severity, c.Description)
		}
	}

	if a.Resolution != nil {
		fmt.Fprintf(&b, " Resolution: %s (%s).", a.Resolution.Strategy, a.Resolution.Rationale)
	}

	if a.Context != nil {
		fmt.Fprintf(&b, " Context: escalation=%s trend=%s urgency=%s.",
			a.Context.Escalation.Type, a.Context.Trend.Direction, a.Context.InterventionUrgency)
	}

	if a.ExternalRisk != nil {
		fmt.Fprintf(&b, " External risk: %s.", a.ExternalRisk.Status)
	}

	return b.String()
}
