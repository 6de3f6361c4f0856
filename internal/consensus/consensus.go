// Package consensus implements the consensus selector (C4): four
// selectable voting algorithms over the ensemble's model results.
// Grounded on the teacher's internal/classifier/ensemble.go
// computeAgreement (variance-bucketed agreement classification),
// generalized from per-category spread to the spec's single crisis-score
// voting.
package consensus

import (
	"sort"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
	"crisisengine.dev/ensemble/internal/wrapper"
)

// Selector chooses among the four consensus algorithms.
type Selector struct {
	thresholds config.ThresholdConfig
}

func New(thresholds config.ThresholdConfig) *Selector {
	return &Selector{thresholds: thresholds}
}

var votingModels = []string{"bart", "sentiment", "irony", "emotions"}

func signalFor(name string, result models.ModelResult) float64 {
	switch name {
	case "bart":
		return wrapper.CrisisSignal(result)
	case "sentiment":
		return wrapper.NegativeSignal(result)
	case "emotions":
		return wrapper.CrisisCorrelatedSum(result)
	case "irony":
		// A sincere (non-ironic) message is the crisis-leaning one.
		return 1 - wrapper.IronyProbability(result)
	default:
		return 0
	}
}

// Select runs the chosen algorithm. conflicts is only consulted by
// conflict_aware; pass a zero-value ConflictReport for the others. The
// second return value is a force-review flag for the majority-tie,
// unanimous-dissent and conflict_aware critical-conflict safety-first
// cases that this type cannot otherwise express; the caller (the engine)
// passes it to the resolver, which ORs it into the resolution's
// RequiresReview without changing the resolution strategy.
func (sel *Selector) Select(algorithm models.Algorithm, results map[string]models.ModelResult, weights map[string]float64, score models.EnsembleScore, conflicts models.ConflictReport) (models.ConsensusResult, bool) {
	switch algorithm {
	case models.AlgorithmMajority:
		return sel.majority(results)
	case models.AlgorithmUnanimous:
		return sel.unanimous(results)
	case models.AlgorithmConflictAware:
		result, _ := sel.weighted(results, score)
		result.Algorithm = models.AlgorithmConflictAware
		forceReview := conflicts.HasSeverityAtLeast(models.ConflictCritical)
		return result, forceReview
	default:
		return sel.weighted(results, score)
	}
}

// weighted reuses the scorer's output directly (spec §4.4 "uses scorer
// output") and classifies agreement by the variance of successful
// models' signals.
func (sel *Selector) weighted(results map[string]models.ModelResult, score models.EnsembleScore) (models.ConsensusResult, bool) {
	signals, votes := sel.collectVotes(results)

	return models.ConsensusResult{
		Algorithm:      models.AlgorithmWeighted,
		AgreementLevel: sel.agreementLevel(signals, votes),
		FinalScore:     score.CrisisScore,
		Confidence:     score.Confidence,
		Votes:          votes,
	}, false
}

// majority has each successful model cast a binary vote; ties are
// resolved toward requires_review (spec §4.4).
func (sel *Selector) majority(results map[string]models.ModelResult) (models.ConsensusResult, bool) {
	signals, votes := sel.collectVotes(results)

	var yes, no int
	for _, v := range votes {
		if v {
			yes++
		} else {
			no++
		}
	}

	finalScore := meanOf(signals)
	tie := yes == no && yes > 0

	return models.ConsensusResult{
		Algorithm:      models.AlgorithmMajority,
		AgreementLevel: sel.agreementLevel(signals, votes),
		FinalScore:     finalScore,
		Confidence:     agreementFraction(yes, no),
		Votes:          votes,
	}, tie
}

// unanimous reports crisis only if every enabled successful model voted
// crisis; any dissent with at least one crisis vote forces review (spec
// §4.4 "safety-first on ambiguity").
func (sel *Selector) unanimous(results map[string]models.ModelResult) (models.ConsensusResult, bool) {
	signals, votes := sel.collectVotes(results)

	allCrisis := len(votes) > 0
	anyCrisis := false
	for _, v := range votes {
		if v {
			anyCrisis = true
		} else {
			allCrisis = false
		}
	}

	finalScore := meanOf(signals)
	if !allCrisis {
		finalScore = 0 // no-crisis decision under unanimous, regardless of individual signal magnitudes
	}

	forceReview := !allCrisis && anyCrisis

	return models.ConsensusResult{
		Algorithm:      models.AlgorithmUnanimous,
		AgreementLevel: sel.agreementLevel(signals, votes),
		FinalScore:     finalScore,
		Confidence:     agreementFraction(boolCount(votes, true), boolCount(votes, false)),
		Votes:          votes,
	}, forceReview
}

// collectVotes extracts the crisis signal and binary vote for each
// successful model, in deterministic (sorted) model-name order.
func (sel *Selector) collectVotes(results map[string]models.ModelResult) ([]float64, map[string]bool) {
	votes := make(map[string]bool)
	var signals []float64

	names := make([]string, 0, len(votingModels))
	names = append(names, votingModels...)
	sort.Strings(names)

	for _, name := range names {
		result, ok := results[name]
		if !ok || !result.Success {
			continue
		}
		signal := signalFor(name, result)
		signals = append(signals, signal)
		votes[name] = signal >= sel.thresholds.Low
	}
	return signals, votes
}

// agreementLevel classifies variance into the four non-unanimous buckets,
// or unanimous when every vote agrees (spec §4.4).
func (sel *Selector) agreementLevel(signals []float64, votes map[string]bool) models.AgreementLevel {
	if len(votes) == 0 {
		return models.AgreementNone
	}
	allSame := true
	var first bool
	firstSet := false
	for _, v := range votes {
		if !firstSet {
			first = v
			firstSet = true
			continue
		}
		if v != first {
			allSame = false
			break
		}
	}
	if allSame {
		return models.AgreementUnanimous
	}

	variance := populationVariance(signals)
	switch {
	case variance <= 0.02:
		return models.AgreementStrong
	case variance <= 0.08:
		return models.AgreementModerate
	default:
		return models.AgreementWeak
	}
}

func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return variance / float64(len(values))
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func agreementFraction(yes, no int) float64 {
	total := yes + no
	if total == 0 {
		return 0
	}
	majority := yes
	if no > majority {
		majority = no
	}
	return float64(majority) / float64(total)
}

func boolCount(votes map[string]bool, want bool) int {
	n := 0
	for _, v := range votes {
		if v == want {
			n++
		}
	}
	return n
}
