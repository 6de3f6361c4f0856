package httpapi

import (
	"crisisengine.dev/ensemble/internal/cache"
	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/middleware"
	"crisisengine.dev/ensemble/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// NewRouter builds the full Gin engine: ambient middleware chain, then
// the routes the server exposes. Grounded on the teacher's
// services/moderation/main.go setupRouter, generalized to this
// service's auth/rate-limit wiring (static token instead of per-key DB
// lookup).
func NewRouter(cfg *config.Config, srv *Server, redisCache *cache.RedisCache, metrics *observability.Metrics, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("ensemble-engine"))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.SecurityHeadersMiddleware(cfg.Environment))
	router.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig()))
	if metrics != nil {
		router.Use(observability.MetricsMiddleware(metrics))
	}

	router.GET("/health", srv.Health)
	if metrics != nil {
		router.GET("/metrics", observability.PrometheusHandler())
	}

	api := router.Group("/")
	api.Use(middleware.AuthMiddleware(cfg.AuthToken, logger))

	if redisCache != nil {
		limiter := middleware.NewRedisRateLimiter(redisCache, cfg.RateLimitRPM)
		api.Use(limiter.Middleware())
		api.Use(middleware.IdempotencyMiddleware(redisCache, logger))
	} else {
		api.Use(middleware.NewRateLimiter(cfg.RateLimitRPM).Middleware())
	}

	api.POST("/analyze", srv.Analyze)
	api.POST("/analyze/batch", srv.AnalyzeBatch)
	api.GET("/status", srv.Status)
	api.GET("/models", srv.Models)
	api.GET("/config/consensus", srv.GetConsensusConfig)
	api.PUT("/config/consensus", srv.PutConsensusConfig)
	api.GET("/config/context", srv.GetContextConfig)
	api.PUT("/config/context", srv.PutContextConfig)

	return router
}
