package conflict

import (
	"context"

	"crisisengine.dev/ensemble/internal/models"
	"crisisengine.dev/ensemble/internal/wrapper"
	"go.uber.org/zap"
)

// Alerter dispatches a notification for a critical conflict. Implemented
// by internal/alerting; injected here so this package has no transport
// dependency of its own.
type Alerter interface {
	Alert(ctx context.Context, conflict models.DetectedConflict, score float64) error
}

// Resolver rewrites the fused score when conflicts are present, per one
// of four strategies (spec §4.6).
type Resolver struct {
	defaultStrategy models.ResolutionStrategy
	alerter         Alerter
	logger          *zap.Logger
}

func NewResolver(defaultStrategy models.ResolutionStrategy, alerter Alerter, logger *zap.Logger) *Resolver {
	return &Resolver{defaultStrategy: defaultStrategy, alerter: alerter, logger: logger}
}

// Resolve applies strategy to finalScore given the models that
// contributed to it and the conflicts found by the detector. forceReview
// is OR'd into the result's RequiresReview — it carries the consensus
// selector's own safety-first signals (majority ties, unanimous dissent)
// that have nothing to do with the conflict report itself.
func (r *Resolver) Resolve(ctx context.Context, strategy models.ResolutionStrategy, finalScore float64, results map[string]models.ModelResult, report models.ConflictReport, forceReview bool) models.ResolutionResult {
	if strategy == "" {
		strategy = r.defaultStrategy
	}

	r.dispatchAlerts(ctx, report, finalScore)

	if len(report.Conflicts) == 0 {
		return models.ResolutionResult{
			Strategy:       strategy,
			ResolvedScore:  finalScore,
			RequiresReview: forceReview,
			Rationale:      "no conflicts detected",
		}
	}

	hasCritical := report.HasSeverityAtLeast(models.ConflictCritical)

	switch strategy {
	case models.StrategyConservative:
		return models.ResolutionResult{
			Strategy:       strategy,
			ResolvedScore:  maxAdditiveSignal(results),
			RequiresReview: forceReview || hasCritical,
			Rationale:      "conservative: took the most severe signal among the successful additive models",
		}
	case models.StrategyOptimistic:
		return models.ResolutionResult{
			Strategy:       strategy,
			ResolvedScore:  minAdditiveSignal(results),
			RequiresReview: forceReview || hasCritical,
			Rationale:      "optimistic: took the least severe signal among the successful additive models",
		}
	case models.StrategyMean:
		return models.ResolutionResult{
			Strategy:       strategy,
			ResolvedScore:  meanAdditiveSignal(results),
			RequiresReview: forceReview || hasCritical,
			Rationale:      "mean: averaged the successful additive models' signals",
		}
	case models.StrategyReviewFlag:
		return models.ResolutionResult{
			Strategy:       strategy,
			ResolvedScore:  finalScore,
			RequiresReview: true,
			Rationale:      "review_flag: conflicts present, escalated to human review without rewriting the score",
		}
	default:
		return models.ResolutionResult{
			Strategy:       strategy,
			ResolvedScore:  finalScore,
			RequiresReview: forceReview || hasCritical,
			Rationale:      "unrecognized strategy, score passed through unresolved",
		}
	}
}

// dispatchAlerts fires the alerter for every critical conflict, without
// blocking resolution on the alert's delivery.
func (r *Resolver) dispatchAlerts(ctx context.Context, report models.ConflictReport, score float64) {
	if r.alerter == nil {
		return
	}
	for _, c := range report.Conflicts {
		if !c.Severity.AtLeast(models.ConflictCritical) {
			continue
		}
		conflict := c
		go func() {
			if err := r.alerter.Alert(context.WithoutCancel(ctx), conflict, score); err != nil {
				r.logger.Warn("conflict alert delivery failed", zap.String("conflict_type", string(conflict.Type)), zap.Error(err))
			}
		}()
	}
}

var additiveModels = []string{"bart", "sentiment", "emotions"}

func additiveSignals(results map[string]models.ModelResult) []float64 {
	var signals []float64
	for _, name := range additiveModels {
		result, ok := results[name]
		if !ok || !result.Success {
			continue
		}
		signals = append(signals, signalFor(name, result))
	}
	return signals
}

func signalFor(name string, result models.ModelResult) float64 {
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

func maxAdditiveSignal(results map[string]models.ModelResult) float64 {
	signals := additiveSignals(results)
	if len(signals) == 0 {
		return 0
	}
	max := signals[0]
	for _, s := range signals {
		if s > max {
			max = s
		}
	}
	return max
}

func minAdditiveSignal(results map[string]models.ModelResult) float64 {
	signals := additiveSignals(results)
	if len(signals) == 0 {
		return 0
	}
	min := signals[0]
	for _, s := range signals {
		if s < min {
			min = s
		}
	}
	return min
}

func meanAdditiveSignal(results map[string]models.ModelResult) float64 {
	signals := additiveSignals(results)
	if len(signals) == 0 {
		return 0
	}
	var sum float64
	for _, s := range signals {
		sum += s
	}
	return sum / float64(len(signals))
}
