// Package engine implements the decision engine (C11): the orchestrator
// that runs a message through model inference, scoring, consensus,
// conflict handling, optional external-risk amplification, optional
// context analysis, and result aggregation, with an in-process response
// cache in front of the whole pipeline. Grounded on the teacher's
// internal/classifier/ensemble.go Classify method, which plays the same
// orchestrator role over the teacher's own model set.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"crisisengine.dev/ensemble/internal/aggregator"
	"crisisengine.dev/ensemble/internal/asyncutil"
	"crisisengine.dev/ensemble/internal/cache"
	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/conflict"
	"crisisengine.dev/ensemble/internal/consensus"
	crisiscontext "crisisengine.dev/ensemble/internal/context"
	"crisisengine.dev/ensemble/internal/fallback"
	"crisisengine.dev/ensemble/internal/modelloader"
	"crisisengine.dev/ensemble/internal/models"
	"crisisengine.dev/ensemble/internal/observability"
	"crisisengine.dev/ensemble/internal/riskclient"
	"crisisengine.dev/ensemble/internal/scoring"
	"crisisengine.dev/ensemble/internal/textnorm"
	"crisisengine.dev/ensemble/internal/wrapper"
	"go.uber.org/zap"
)

// primaryModel is the model name treated as fatal-on-failure throughout
// the pipeline. It matches wrapper.Bart's Name().
const primaryModel = "bart"

// defaultPrimaryCeiling bounds how much of the redistributed weight the
// primary model can absorb when other models fail (spec §4.7).
const defaultPrimaryCeiling = 0.70

// Engine runs the full crisis-assessment pipeline for one message at a
// time; it is safe for concurrent use.
type Engine struct {
	mu  sync.RWMutex
	cfg config.EngineConfig

	loader   *modelloader.Loader
	fallback *fallback.Strategy

	scorer          *scoring.Scorer
	consensusSel    *consensus.Selector
	detector        *conflict.Detector
	resolver        *conflict.Resolver
	contextAnalyzer *crisiscontext.Analyzer
	aggregatorImpl  *aggregator.Aggregator
	respCache       *cache.ResponseCache

	riskClient *riskclient.Client
	normalizer *textnorm.Normalizer
	metrics    *observability.Metrics
	logger     *zap.Logger

	// alerter is preserved across ReloadConfig, which rebuilds the
	// resolver but has no other way to recover the alerter it was
	// constructed with.
	alerter conflict.Alerter
}

// New constructs an Engine from its dependencies. riskClient and metrics
// may be nil: a nil riskClient disables external-risk amplification
// entirely, a nil metrics disables instrumentation.
func New(cfg config.EngineConfig, loader *modelloader.Loader, fb *fallback.Strategy, alerter conflict.Alerter, riskClient *riskclient.Client, metrics *observability.Metrics, logger *zap.Logger) *Engine {
	e := &Engine{
		loader:     loader,
		fallback:   fb,
		riskClient: riskClient,
		normalizer: textnorm.New(),
		metrics:    metrics,
		logger:     logger,
		alerter:    alerter,
	}
	e.applyConfig(cfg, alerter)
	return e
}

// applyConfig rebuilds every config-derived component. Called from New
// and from ReloadConfig under the write lock.
func (e *Engine) applyConfig(cfg config.EngineConfig, alerter conflict.Alerter) {
	e.cfg = cfg
	e.scorer = scoring.New(cfg.Thresholds, cfg.ScoringIronyAlpha)
	e.consensusSel = consensus.New(cfg.Thresholds)
	e.detector = conflict.NewDetectorFromConfig(cfg)
	e.resolver = conflict.NewResolver(models.ResolutionStrategy(cfg.ResolverDefaultStrategy), alerter, e.logger)
	e.contextAnalyzer = crisiscontext.New(cfg.Context, cfg.Thresholds)
	e.aggregatorImpl = aggregator.New(cfg.Thresholds)
	e.respCache = cache.NewResponseCache(cfg.Cache.MaxSize, time.Duration(cfg.Cache.TTLS*float64(time.Second)))
}

// ReloadConfig validates cfg and, only if valid, atomically swaps it and
// every component derived from it (spec §9). The alerter is preserved
// from construction since it isn't part of EngineConfig.
func (e *Engine) ReloadConfig(cfg config.EngineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.applyConfig(cfg, e.alerter)
	return nil
}

// Config returns the currently active engine configuration.
func (e *Engine) Config() config.EngineConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// CacheLen reports the response cache's current entry count, for GET
// /status.
func (e *Engine) CacheLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.respCache.Len()
}

// Analyze runs one message through the full pipeline (spec §4.11).
// algorithm and verbosity default to the configured values when empty.
func (e *Engine) Analyze(ctx context.Context, msg models.Message, algorithm models.Algorithm, verbosity models.Verbosity) (models.CrisisAssessment, error) {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	start := time.Now()

	if algorithm == "" {
		algorithm = models.Algorithm(cfg.ConsensusDefaultAlgorithm)
	}
	if verbosity == "" {
		verbosity = models.Verbosity(cfg.ConsensusVerbosity)
	}

	normalized := e.normalizer.Normalize(msg.Text)

	var historyFingerprint, cacheKey string
	if cfg.Cache.Enabled {
		historyFingerprint = cache.HistoryFingerprint(msg.History)
		cacheKey = cache.Key(normalized, algorithm, verbosity, historyFingerprint)
		if cached, ok := e.respCache.Get(cacheKey); ok {
			e.observeCacheHit()
			return cached, nil
		}
		e.observeCacheMiss()
	}

	wrappers := e.loader.GetEnabled()
	perModelTimeout := time.Duration(cfg.Timeouts.PerModelS * float64(time.Second))

	tasks := make([]asyncutil.Task[models.ModelResult], 0, len(wrappers))
	for _, w := range wrappers {
		w := w
		tasks = append(tasks, asyncutil.Task[models.ModelResult]{
			Name: w.Name(),
			Run: func(ctx context.Context) (models.ModelResult, error) {
				return e.runModel(ctx, w, normalized, perModelTimeout)
			},
		})
	}

	globalTimeout := time.Duration(cfg.Timeouts.GlobalS * float64(time.Second))
	inferCtx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()

	outcomes := asyncutil.RunParallel(inferCtx, tasks)

	results := make(map[string]models.ModelResult, len(outcomes))
	alive := make(map[string]bool, len(outcomes))
	var modelsUsed []string
	var critical *fallback.CriticalModelFailure

	for _, o := range outcomes {
		results[o.Name] = o.Value
		if o.Value.Success {
			alive[o.Name] = true
			modelsUsed = append(modelsUsed, o.Name)
		}
		e.observeModelOutcome(o.Name, o.Value)

		if o.Err != nil {
			var cmf *fallback.CriticalModelFailure
			if errors.As(o.Err, &cmf) {
				critical = cmf
			}
		}
	}
	sort.Strings(modelsUsed)

	if critical != nil {
		return e.degradedAssessment(cfg, critical, results, modelsUsed, verbosity, time.Since(start)), nil
	}

	weights := make(map[string]float64, len(cfg.Models))
	for name, m := range cfg.Models {
		if m.Enabled {
			weights[name] = m.Weight
		}
	}
	effectiveWeights := fallback.RedistributeWeights(weights, alive, primaryModel, defaultPrimaryCeiling)

	score := e.scorer.Score(results, effectiveWeights)

	amplified := score.CrisisScore
	var externalRisk *models.ExternalRiskResult
	if e.riskClient != nil {
		result, adjusted := e.riskClient.Assess(ctx, normalized, score.Severity, score.CrisisScore)
		externalRisk = result
		if result.Status == models.ExternalRiskOK {
			amplified = adjusted
		}
		e.observeExternalRisk(result.Status)
	}

	// Irony dampening is always the last step of base scoring (spec
	// §4.3 step 5, §4.8): it runs on whatever amplification produced,
	// never on the pre-amplification base.
	finalScore, ironyDelta := e.scorer.Dampen(amplified, score.IronyProbability)
	score.CrisisScore = finalScore
	score.Severity = e.scorer.SeverityFor(finalScore)
	if ironyResult, ok := results["irony"]; ok && ironyResult.Success {
		score.Contributions["irony"] = ironyDelta
	}

	conflicts := e.detector.Detect(results)
	consensusResult, forceReview := e.consensusSel.Select(algorithm, results, effectiveWeights, score, conflicts)
	e.observeConsensus(consensusResult, conflicts)

	resolution := e.resolver.Resolve(ctx, models.ResolutionStrategy(cfg.ResolverDefaultStrategy), consensusResult.FinalScore, results, conflicts, forceReview)

	var contextResult *models.ContextAnalysisResult
	if cfg.Context.Enabled && len(msg.History) > 0 {
		// The temporal detector works in the caller's local time: apply the
		// request's IANA timezone, falling back to UTC when it is absent or
		// unknown.
		now := time.Now().UTC()
		if msg.Timezone != nil {
			if loc, err := time.LoadLocation(*msg.Timezone); err == nil {
				now = now.In(loc)
			}
		}
		contextResult = e.contextAnalyzer.Analyze(msg.History, resolution.ResolvedScore, score.Severity, now)
	}

	assessment := e.aggregatorImpl.Build(aggregator.Input{
		Signals:          signalsOf(results),
		Score:            score,
		Consensus:        consensusResult,
		Conflicts:        &conflicts,
		Resolution:       &resolution,
		Context:          contextResult,
		ExternalRisk:     externalRisk,
		ModelsUsed:       modelsUsed,
		IsDegraded:       false,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		Verbosity:        verbosity,
	})

	if cfg.Cache.Enabled {
		e.respCache.Put(cacheKey, assessment)
	}
	e.observeAnalyze(assessment, false, time.Since(start))

	return assessment, nil
}

// runModel executes one wrapper's Analyze through the fallback breaker
// and a per-model timeout. A primary-model failure is surfaced as a
// CriticalModelFailure; any other model's failure is carried only in the
// returned ModelResult.
func (e *Engine) runModel(ctx context.Context, w wrapper.Wrapper, text string, timeout time.Duration) (models.ModelResult, error) {
	name := w.Name()
	if e.fallback.IsTripped(name) {
		return models.ModelResult{ModelName: name, ModelRole: w.Role(), Success: false, Error: "circuit breaker open"}, nil
	}

	var result models.ModelResult
	_, err := e.fallback.Execute(ctx, name, func() (interface{}, error) {
		return nil, asyncutil.WithTimeout(ctx, timeout, func(ctx context.Context) error {
			result = w.Analyze(ctx, text)
			if !result.Success {
				return errors.New(result.Error)
			}
			return nil
		})
	})

	if result.ModelName == "" {
		result = models.ModelResult{ModelName: name, ModelRole: w.Role()}
	}

	if err != nil {
		result.Success = false
		if result.Error == "" {
			result.Error = err.Error()
		}
		if w.Role() == models.RolePrimary {
			return result, &fallback.CriticalModelFailure{ModelName: name, Cause: err}
		}
	}

	return result, nil
}

// degradedAssessment builds a structured assessment from whatever
// non-primary models succeeded, when the primary model failed (spec
// §4.7/§7). It never errors: a crisis engine that raises exceptions on
// infrastructure failure is worse than one that answers cautiously.
func (e *Engine) degradedAssessment(cfg config.EngineConfig, critical *fallback.CriticalModelFailure, results map[string]models.ModelResult, modelsUsed []string, verbosity models.Verbosity, elapsed time.Duration) models.CrisisAssessment {
	e.logger.Warn("primary model unavailable, returning degraded assessment",
		zap.String("model", critical.ModelName), zap.Error(critical.Cause))

	weights := make(map[string]float64)
	for _, name := range modelsUsed {
		if m, ok := cfg.Models[name]; ok {
			weights[name] = m.Weight
		}
	}
	weights = fallback.RedistributeWeights(weights, alwaysAlive(modelsUsed), "", 1.0)

	score := e.scorer.Score(results, weights)

	// A degraded assessment always reports severity safe (spec §4.7,
	// §7, glossary): surviving secondary/supplementary signals alone
	// never carry enough weight to declare a crisis.
	score.CrisisScore = 0
	score.Severity = models.SeveritySafe

	consensusResult, _ := e.consensusSel.Select(models.AlgorithmWeighted, results, weights, score, models.ConflictReport{})

	assessment := e.aggregatorImpl.Build(aggregator.Input{
		Signals:          signalsOf(results),
		Score:            score,
		Consensus:        consensusResult,
		ModelsUsed:       modelsUsed,
		IsDegraded:       true,
		ProcessingTimeMS: elapsed.Milliseconds(),
		Verbosity:        verbosity,
	})

	e.observeAnalyze(assessment, true, elapsed)
	if e.metrics != nil {
		e.metrics.DegradedTotal.Inc()
	}
	return assessment
}

func alwaysAlive(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func signalsOf(results map[string]models.ModelResult) []models.ModelResult {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.ModelResult, 0, len(names))
	for _, name := range names {
		out = append(out, results[name])
	}
	return out
}

func (e *Engine) observeCacheHit() {
	if e.metrics != nil {
		e.metrics.ResponseCacheHit.Inc()
	}
}

func (e *Engine) observeCacheMiss() {
	if e.metrics != nil {
		e.metrics.ResponseCacheMiss.Inc()
	}
}

func (e *Engine) observeModelOutcome(name string, result models.ModelResult) {
	if e.metrics == nil {
		return
	}
	e.metrics.ModelLatency.WithLabelValues(name).Observe(float64(result.LatencyMS) / 1000)
	if !result.Success {
		e.metrics.ModelFailures.WithLabelValues(name).Inc()
	}
}

func (e *Engine) observeExternalRisk(status models.ExternalRiskStatus) {
	if e.metrics != nil {
		e.metrics.ExternalRiskTotal.WithLabelValues(string(status)).Inc()
	}
}

func (e *Engine) observeConsensus(result models.ConsensusResult, conflicts models.ConflictReport) {
	if e.metrics == nil {
		return
	}
	e.metrics.ConsensusTotal.WithLabelValues(string(result.Algorithm), string(result.AgreementLevel)).Inc()
	for _, c := range conflicts.Conflicts {
		e.metrics.ConflictsTotal.WithLabelValues(string(c.Type), string(c.Severity)).Inc()
	}
}

func (e *Engine) observeAnalyze(assessment models.CrisisAssessment, degraded bool, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	degradedLabel := "false"
	if degraded {
		degradedLabel = "true"
	}
	e.metrics.AnalyzeDuration.WithLabelValues(string(assessment.Severity), degradedLabel).Observe(elapsed.Seconds())
	e.metrics.AnalyzeTotal.WithLabelValues(string(assessment.Severity)).Inc()
}
