package context

import "crisisengine.dev/ensemble/internal/models"

// DeriveUrgency folds severity together with the three detectors into a
// single intervention urgency (spec §4.9.4), evaluated in priority order
// so exactly one rule ever fires.
func DeriveUrgency(severity models.Severity, escalation models.EscalationResult, temporal models.TemporalResult, trend models.TrendResult) models.InterventionUrgency {
	switch {
	case severity == models.SeverityCritical:
		return models.UrgencyImmediate
	case severity == models.SeverityHigh && (escalation.Type == models.EscalationSudden || escalation.Type == models.EscalationRapid):
		return models.UrgencyImmediate
	case severity == models.SeverityHigh:
		return models.UrgencyUrgent
	case severity == models.SeverityMedium && trend.Direction == models.TrendWorsening:
		return models.UrgencyUrgent
	case severity == models.SeverityMedium && escalation.Type != models.EscalationNone:
		return models.UrgencyElevated
	case severity == models.SeverityMedium:
		return models.UrgencyElevated
	case severity == models.SeverityLow && temporal.TimeOfDayRisk == models.TimeOfDayLateNight:
		return models.UrgencyElevated
	case severity == models.SeverityLow:
		return models.UrgencyRoutine
	default:
		return models.UrgencyNone
	}
}
