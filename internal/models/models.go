// Package models holds the shared data model of the ensemble decision
// engine: the record types that cross every component boundary, plus the
// enumerations used to classify them. Nothing here has behavior beyond
// small deterministic helpers (ordering, zero values) — the algorithms that
// produce and consume these types live in their own packages.
package models

import "time"

// ModelRole is the tier of a model wrapper within the ensemble. The
// primary's failure is fatal to the pipeline; the others degrade
// gracefully.
type ModelRole string

const (
	RolePrimary       ModelRole = "primary"
	RoleSecondary     ModelRole = "secondary"
	RoleTertiary      ModelRole = "tertiary"
	RoleSupplementary ModelRole = "supplementary"
)

// Severity is the crisis severity bucket derived from crisis_score via
// ordered thresholds (critical > high > medium > low > safe).
type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeveritySafe:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the severity's position in the safe < low < medium < high <
// critical ordering, for monotonicity comparisons (P4).
func (s Severity) Rank() int { return severityRank[s] }

// AtLeast reports whether s is at or above other in the severity ordering.
func (s Severity) AtLeast(other Severity) bool { return s.Rank() >= other.Rank() }

// Algorithm selects the consensus voting strategy (C4).
type Algorithm string

const (
	AlgorithmWeighted      Algorithm = "weighted"
	AlgorithmMajority      Algorithm = "majority"
	AlgorithmUnanimous     Algorithm = "unanimous"
	AlgorithmConflictAware Algorithm = "conflict_aware"
)

// Verbosity selects the explanation rendering detail (C10).
type Verbosity string

const (
	VerbosityMinimal  Verbosity = "minimal"
	VerbosityStandard Verbosity = "standard"
	VerbosityDetailed Verbosity = "detailed"
)

// AgreementLevel classifies how closely the ensemble's models agree.
type AgreementLevel string

const (
	AgreementUnanimous AgreementLevel = "unanimous"
	AgreementStrong    AgreementLevel = "strong"
	AgreementModerate  AgreementLevel = "moderate"
	AgreementWeak      AgreementLevel = "weak"
	AgreementNone      AgreementLevel = "none"
)

// ConflictType names a disagreement pattern detected between models (C5).
type ConflictType string

const (
	ConflictScoreSpread      ConflictType = "score_spread"
	ConflictIronyVsSentiment ConflictType = "irony_vs_sentiment"
	ConflictEmotionVsCrisis  ConflictType = "emotion_vs_crisis"
	ConflictLabelMismatch    ConflictType = "label_mismatch"
)

// ConflictSeverity is the severity of a single detected conflict.
type ConflictSeverity string

const (
	ConflictInfo     ConflictSeverity = "info"
	ConflictWarning  ConflictSeverity = "warning"
	ConflictCritical ConflictSeverity = "critical"
)

var conflictSeverityRank = map[ConflictSeverity]int{
	ConflictInfo:     0,
	ConflictWarning:  1,
	ConflictCritical: 2,
}

// AtLeast reports whether c is at or above other in severity.
func (c ConflictSeverity) AtLeast(other ConflictSeverity) bool {
	return conflictSeverityRank[c] >= conflictSeverityRank[other]
}

// ResolutionStrategy selects how the conflict resolver rewrites the score
// (C6).
type ResolutionStrategy string

const (
	StrategyConservative ResolutionStrategy = "conservative"
	StrategyOptimistic   ResolutionStrategy = "optimistic"
	StrategyMean         ResolutionStrategy = "mean"
	StrategyReviewFlag   ResolutionStrategy = "review_flag"
)

// EscalationType is the shape of change in crisis score over a history
// window (C9.1).
type EscalationType string

const (
	EscalationNone    EscalationType = "none"
	EscalationRapid   EscalationType = "rapid"
	EscalationGradual EscalationType = "gradual"
	EscalationSudden  EscalationType = "sudden"
)

// TrendDirection is the regression-fit direction of recent scores (C9.3).
type TrendDirection string

const (
	TrendWorsening TrendDirection = "worsening"
	TrendStable    TrendDirection = "stable"
	TrendImproving TrendDirection = "improving"
	TrendVolatile  TrendDirection = "volatile"
)

// TimeOfDayRisk flags whether the message arrived in a higher-risk window.
type TimeOfDayRisk string

const (
	TimeOfDayNormal    TimeOfDayRisk = "normal"
	TimeOfDayLateNight TimeOfDayRisk = "late_night"
)

// InterventionUrgency recommends how quickly a human should respond (C9.4).
type InterventionUrgency string

const (
	UrgencyNone      InterventionUrgency = "none"
	UrgencyRoutine   InterventionUrgency = "routine"
	UrgencyElevated  InterventionUrgency = "elevated"
	UrgencyUrgent    InterventionUrgency = "urgent"
	UrgencyImmediate InterventionUrgency = "immediate"
)

var urgencyRank = map[InterventionUrgency]int{
	UrgencyNone:      0,
	UrgencyRoutine:   1,
	UrgencyElevated:  2,
	UrgencyUrgent:    3,
	UrgencyImmediate: 4,
}

// Rank returns the urgency's position in the none < routine < elevated <
// urgent < immediate ordering.
func (u InterventionUrgency) Rank() int { return urgencyRank[u] }

// AtLeast reports whether u is at or above other in urgency.
func (u InterventionUrgency) AtLeast(other InterventionUrgency) bool {
	return u.Rank() >= other.Rank()
}

// RecommendedAction is the moderator-facing action mapped from severity and
// urgency (C10).
type RecommendedAction string

const (
	ActionIgnore                RecommendedAction = "ignore"
	ActionMonitor               RecommendedAction = "monitor"
	ActionAcknowledge           RecommendedAction = "acknowledge"
	ActionPriorityResponse      RecommendedAction = "priority_response"
	ActionImmediateIntervention RecommendedAction = "immediate_intervention"
)

// ExternalRiskStatus reports whether the external risk client was
// consulted and succeeded.
type ExternalRiskStatus string

const (
	ExternalRiskOK          ExternalRiskStatus = "ok"
	ExternalRiskSkipped     ExternalRiskStatus = "skipped"
	ExternalRiskUnavailable ExternalRiskStatus = "unavailable"
)

// MessageHistoryItem is one caller-supplied prior message. History is
// ordered oldest-first; the current message is never included in it.
type MessageHistoryItem struct {
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	CrisisScore *float64  `json:"crisis_score,omitempty"`
}

// Message is the request-scoped input to the engine.
type Message struct {
	Text      string               `json:"message"`
	UserID    *string              `json:"user_id,omitempty"`
	ChannelID *string              `json:"channel_id,omitempty"`
	Timezone  *string              `json:"timezone,omitempty"`
	History   []MessageHistoryItem `json:"history,omitempty"`
}

// ModelResult is produced by each model wrapper and is immutable once
// returned. A wrapper never panics out of analyze; failures are carried
// in Success/Error.
type ModelResult struct {
	Label     string             `json:"label"`
	Score     float64            `json:"score"`
	AllScores map[string]float64 `json:"all_scores"`
	LatencyMS int64              `json:"latency_ms"`
	ModelName string             `json:"model_name"`
	ModelRole ModelRole          `json:"model_role"`
	Success   bool               `json:"success"`
	Error     string             `json:"error,omitempty"`
}

// EnsembleScore is the weighted scorer's output (C3).
type EnsembleScore struct {
	CrisisScore      float64            `json:"crisis_score"`
	Confidence       float64            `json:"confidence"`
	Severity         Severity           `json:"severity"`
	Contributions    map[string]float64 `json:"contributions"`
	IronyProbability float64            `json:"-"`
}

// ConsensusResult is the consensus selector's output (C4).
type ConsensusResult struct {
	Algorithm      Algorithm       `json:"algorithm"`
	AgreementLevel AgreementLevel  `json:"agreement_level"`
	FinalScore     float64         `json:"final_score"`
	Confidence     float64         `json:"confidence"`
	Votes          map[string]bool `json:"votes"`
}

// DetectedConflict is one disagreement pattern found by the conflict
// detector (C5).
type DetectedConflict struct {
	Type           ConflictType     `json:"type"`
	Severity       ConflictSeverity `json:"severity"`
	ModelsInvolved []string         `json:"models_involved"`
	Magnitude      float64          `json:"magnitude"`
	Description    string           `json:"description"`
}

// ConflictReport is the ordered set of conflicts found for one request.
// Order is deterministic: by detection rule id, never by magnitude.
type ConflictReport struct {
	Conflicts []DetectedConflict `json:"conflicts"`
}

// HasSeverityAtLeast reports whether any conflict is at or above sev.
func (r ConflictReport) HasSeverityAtLeast(sev ConflictSeverity) bool {
	for _, c := range r.Conflicts {
		if c.Severity.AtLeast(sev) {
			return true
		}
	}
	return false
}

// ResolutionResult is the conflict resolver's output (C6).
type ResolutionResult struct {
	Strategy       ResolutionStrategy `json:"strategy"`
	ResolvedScore  float64            `json:"resolved_score"`
	RequiresReview bool               `json:"requires_review"`
	Rationale      string             `json:"rationale"`
}

// EscalationResult is the escalation detector's output (C9.1).
type EscalationResult struct {
	Type               EscalationType `json:"type"`
	Rate               float64        `json:"rate"`
	Pattern            string         `json:"pattern,omitempty"`
	Confidence         float64        `json:"confidence"`
	InterventionPoints []int          `json:"intervention_points"`
}

// TemporalResult is the temporal detector's output (C9.2).
type TemporalResult struct {
	TimeOfDayRisk    TimeOfDayRisk `json:"time_of_day_risk"`
	PostingFrequency float64       `json:"posting_frequency"`
	RiskModifier     float64       `json:"risk_modifier"`
	IsWeekend        bool          `json:"is_weekend"`
}

// TrendResult is the trend analyzer's output (C9.3).
type TrendResult struct {
	Direction        TrendDirection `json:"direction"`
	Velocity         float64        `json:"velocity"`
	InflectionPoints []int          `json:"inflection_points"`
}

// ContextAnalysisResult aggregates the three context detectors (C9).
type ContextAnalysisResult struct {
	Escalation              EscalationResult    `json:"escalation"`
	Temporal                TemporalResult      `json:"temporal"`
	Trend                   TrendResult         `json:"trend"`
	InterventionUrgency     InterventionUrgency `json:"intervention_urgency"`
	HistoryValidationIssues []string            `json:"history_validation_issues,omitempty"`
	SmoothedSeries          []float64           `json:"smoothed_series,omitempty"`
}

// ExternalRiskResult is the external risk client's output (C8), nil when
// the client is disabled or the gate skipped the call.
type ExternalRiskResult struct {
	Status    ExternalRiskStatus `json:"status"`
	RiskScore float64            `json:"risk_score,omitempty"`
	RiskLabel string             `json:"risk_label,omitempty"`
	Amplified bool               `json:"amplified"`
}

// CrisisAssessment is the API boundary value returned for every request.
type CrisisAssessment struct {
	CrisisDetected       bool                   `json:"crisis_detected"`
	Severity             Severity               `json:"severity"`
	Confidence           float64                `json:"confidence"`
	CrisisScore          float64                `json:"crisis_score"`
	RequiresIntervention bool                   `json:"requires_intervention"`
	RecommendedAction    RecommendedAction       `json:"recommended_action"`
	Signals              []ModelResult          `json:"signals"`
	Consensus            ConsensusResult        `json:"consensus"`
	Conflicts            *ConflictReport        `json:"conflicts,omitempty"`
	Resolution           *ResolutionResult      `json:"resolution,omitempty"`
	Context              *ContextAnalysisResult `json:"context,omitempty"`
	Explanation          string                 `json:"explanation"`
	ProcessingTimeMS     int64                  `json:"processing_time_ms"`
	ModelsUsed           []string               `json:"models_used"`
	IsDegraded           bool                   `json:"is_degraded"`
	ExternalRisk         *ExternalRiskResult    `json:"external_risk,omitempty"`
}
