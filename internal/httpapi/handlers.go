// Package httpapi implements the minimum-viable HTTP surface (spec §6):
// POST /analyze, POST /analyze/batch, GET /health, GET /status,
// GET /models, and GET/PUT /config/consensus and /config/context.
// Grounded on the teacher's services/moderation/main.go handler shape
// (request binding, content-length validation, concurrent batch
// processing via a semaphore-bounded worker pool), generalized from a
// DB-backed moderation decision to a stateless crisis assessment.
package httpapi

import (
	"net/http"
	"sync"
	"time"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/engine"
	"crisisengine.dev/ensemble/internal/fallback"
	"crisisengine.dev/ensemble/internal/modelloader"
	"crisisengine.dev/ensemble/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxBatchWorkers bounds concurrent in-flight analyses within one batch
// request, mirroring the teacher's batch worker pool sizing.
const maxBatchWorkers = 10

// Server holds every dependency the HTTP handlers need.
type Server struct {
	eng      *engine.Engine
	loader   *modelloader.Loader
	fallback *fallback.Strategy
	logger   *zap.Logger
	version  string
}

// New creates an httpapi.Server.
func New(eng *engine.Engine, loader *modelloader.Loader, fb *fallback.Strategy, logger *zap.Logger, version string) *Server {
	return &Server{eng: eng, loader: loader, fallback: fb, logger: logger, version: version}
}

func toMessage(req analyzeRequest) models.Message {
	history := make([]models.MessageHistoryItem, 0, len(req.History))
	for _, h := range req.History {
		history = append(history, models.MessageHistoryItem{
			Text:        h.Text,
			Timestamp:   h.Timestamp,
			CrisisScore: h.CrisisScore,
		})
	}
	return models.Message{
		Text:      req.Message,
		UserID:    req.UserID,
		ChannelID: req.ChannelID,
		Timezone:  req.Timezone,
		History:   history,
	}
}

// Analyze handles POST /analyze.
func (s *Server) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	assessment, err := s.eng.Analyze(c.Request.Context(), toMessage(req), models.Algorithm(req.Algorithm), models.Verbosity(req.Verbosity))
	if err != nil {
		s.logger.Error("analyze failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// batchItemResult is one entry in the POST /analyze/batch response.
type batchItemResult struct {
	Index      int                     `json:"index"`
	Assessment *models.CrisisAssessment `json:"assessment,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// AnalyzeBatch handles POST /analyze/batch. Items are processed
// concurrently, bounded by maxBatchWorkers; a failing item is reported
// in its own slot without aborting the rest (spec §6).
func (s *Server) AnalyzeBatch(c *gin.Context) {
	var req batchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	results := make([]batchItemResult, len(req.Items))

	sem := make(chan struct{}, maxBatchWorkers)
	var wg sync.WaitGroup
	for i, item := range req.Items {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, item analyzeRequest) {
			defer wg.Done()
			defer func() { <-sem }()

			assessment, err := s.eng.Analyze(ctx, toMessage(item), models.Algorithm(item.Algorithm), models.Verbosity(item.Verbosity))
			if err != nil {
				results[idx] = batchItemResult{Index: idx, Error: "analysis failed"}
				return
			}
			results[idx] = batchItemResult{Index: idx, Assessment: &assessment}
		}(i, item)
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Health handles GET /health: 200 when the primary model is loaded, 503
// otherwise (spec §6).
func (s *Server) Health(c *gin.Context) {
	if !s.loader.IsReady() {
		c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Service: "ensemble-engine", Version: s.version})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "healthy", Service: "ensemble-engine", Version: s.version})
}

// statusResponse is the GET /status body: descriptive operational state.
type statusResponse struct {
	Ready         bool                         `json:"ready"`
	Models        []modelloader.Descriptor     `json:"models"`
	BreakerStates map[string]string            `json:"breaker_states"`
	CacheSize     int                          `json:"cache_size"`
	Config        consensusConfigView          `json:"consensus_config"`
	Timestamp     time.Time                    `json:"timestamp"`
}

// Status handles GET /status.
func (s *Server) Status(c *gin.Context) {
	cfg := s.eng.Config()
	c.JSON(http.StatusOK, statusResponse{
		Ready:         s.loader.IsReady(),
		Models:        s.loader.Descriptors(),
		BreakerStates: s.fallback.BreakerStates(),
		CacheSize:     s.eng.CacheLen(),
		Config: consensusConfigView{
			DefaultAlgorithm: cfg.ConsensusDefaultAlgorithm,
			Verbosity:        cfg.ConsensusVerbosity,
		},
		Timestamp: time.Now().UTC(),
	})
}

// Models handles GET /models.
func (s *Server) Models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.loader.Descriptors()})
}

// GetConsensusConfig handles GET /config/consensus.
func (s *Server) GetConsensusConfig(c *gin.Context) {
	cfg := s.eng.Config()
	c.JSON(http.StatusOK, consensusConfigView{
		DefaultAlgorithm: cfg.ConsensusDefaultAlgorithm,
		Verbosity:        cfg.ConsensusVerbosity,
	})
}

// PutConsensusConfig handles PUT /config/consensus: validates and
// atomically swaps the default algorithm and verbosity via
// Engine.ReloadConfig, leaving every other tunable untouched.
func (s *Server) PutConsensusConfig(c *gin.Context) {
	var view consensusConfigView
	if err := c.ShouldBindJSON(&view); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cfg := s.eng.Config()
	cfg.ConsensusDefaultAlgorithm = view.DefaultAlgorithm
	cfg.ConsensusVerbosity = view.Verbosity

	if err := s.eng.ReloadConfig(cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetContextConfig handles GET /config/context.
func (s *Server) GetContextConfig(c *gin.Context) {
	cfg := s.eng.Config().Context
	c.JSON(http.StatusOK, contextViewFromConfig(cfg))
}

// PutContextConfig handles PUT /config/context.
func (s *Server) PutContextConfig(c *gin.Context) {
	var view contextConfigView
	if err := c.ShouldBindJSON(&view); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if view.LateNightWindowStart < 0 || view.LateNightWindowStart > 23 || view.LateNightWindowEnd < 0 || view.LateNightWindowEnd > 23 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "late night window hours must be in [0,23]"})
		return
	}

	cfg := s.eng.Config()
	cfg.Context = config.ContextConfig{
		Enabled:               view.Enabled,
		MaxHistory:            view.MaxHistory,
		LateNightWindowStart:  view.LateNightWindowStart,
		LateNightWindowEnd:    view.LateNightWindowEnd,
		RapidPostingK:         view.RapidPostingK,
		RapidPostingWindowMin: view.RapidPostingWindowMin,
		TrendWindowN:          view.TrendWindowN,
		TrendEpsilon:          view.TrendEpsilon,
		TrendVolatility:       view.TrendVolatility,
	}

	if err := s.eng.ReloadConfig(cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

func contextViewFromConfig(cfg config.ContextConfig) contextConfigView {
	return contextConfigView{
		Enabled:               cfg.Enabled,
		MaxHistory:            cfg.MaxHistory,
		LateNightWindowStart:  cfg.LateNightWindowStart,
		LateNightWindowEnd:    cfg.LateNightWindowEnd,
		RapidPostingK:         cfg.RapidPostingK,
		RapidPostingWindowMin: cfg.RapidPostingWindowMin,
		TrendWindowN:          cfg.TrendWindowN,
		TrendEpsilon:          cfg.TrendEpsilon,
		TrendVolatility:       cfg.TrendVolatility,
	}
}
