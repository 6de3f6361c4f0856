package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crisisengine.dev/ensemble/internal/alerting"
	"crisisengine.dev/ensemble/internal/cache"
	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/engine"
	"crisisengine.dev/ensemble/internal/fallback"
	"crisisengine.dev/ensemble/internal/httpapi"
	"crisisengine.dev/ensemble/internal/modelloader"
	"crisisengine.dev/ensemble/internal/observability"
	"crisisengine.dev/ensemble/internal/riskclient"
	"crisisengine.dev/ensemble/internal/wrapper"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting ensemble engine",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
	)

	ctx := context.Background()

	// Redis is optional: without it, rate limiting falls back to the
	// in-memory limiter and the idempotency middleware is not installed.
	// The response cache is in-process either way.
	var redisCache *cache.RedisCache
	if cfg.RedisURL != "" {
		redisCache, err = cache.NewRedisCache(ctx, cache.Config{
			URL:         cfg.RedisURL,
			MaxRetries:  3,
			DialTimeout: 5 * time.Second,
			ReadTimeout: 3 * time.Second,
		}, logger)
		if err != nil {
			logger.Warn("redis unavailable, falling back to in-memory rate limiting", zap.Error(err))
		} else {
			defer redisCache.Close()
			logger.Info("redis enabled for rate limiting and idempotency")
		}
	}

	tracingShutdown, err := observability.InitTracing(ctx, "ensemble-engine", cfg.Version, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Warn("failed to initialize tracing", zap.Error(err))
	} else {
		defer tracingShutdown(context.Background())
	}

	metrics := observability.NewMetrics("ensemble-engine")

	perModelTimeout := time.Duration(cfg.Engine.Timeouts.PerModelS * float64(time.Second))

	bart := wrapper.NewBart(cfg.HuggingFaceAPIKey, cfg.BartEndpoint, cfg.BartRevision,
		cfg.Engine.Models["bart"].Weight, cfg.Engine.Models["bart"].Enabled, perModelTimeout, logger)
	sentiment := wrapper.NewSentiment(cfg.HuggingFaceAPIKey, cfg.SentimentEndpoint,
		cfg.Engine.Models["sentiment"].Weight, cfg.Engine.Models["sentiment"].Enabled, perModelTimeout, logger)
	irony := wrapper.NewIrony(cfg.HuggingFaceAPIKey, cfg.IronyEndpoint,
		cfg.Engine.Models["irony"].Weight, cfg.Engine.Models["irony"].Enabled, perModelTimeout, logger)
	emotions := wrapper.NewEmotions(cfg.HuggingFaceAPIKey, cfg.EmotionsEndpoint,
		cfg.Engine.Models["emotions"].Weight, cfg.Engine.Models["emotions"].Enabled, perModelTimeout, logger)

	loader := modelloader.New(cfg.Engine.Concurrency.MaxWorkers, logger)
	loader.Register(bart)
	loader.Register(sentiment)
	loader.Register(irony)
	loader.Register(emotions)

	warmupCtx, warmupCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := loader.LoadAll(warmupCtx); err != nil {
		logger.Warn("model warmup encountered errors", zap.Error(err))
	}
	warmupCancel()

	fb := fallback.New(fallback.DefaultConfig(), []string{"bart", "sentiment", "irony", "emotions"}, logger)

	var riskClient *riskclient.Client
	if cfg.Engine.ExternalRisk.Enabled {
		riskClient = riskclient.New(cfg.Engine.ExternalRisk, logger)
		logger.Info("external risk amplification enabled")
	}

	alerter := alerting.New(cfg.Engine.Alerting, logger)

	eng := engine.New(cfg.Engine, loader, fb, alerter, riskClient, metrics, logger)

	srv := httpapi.New(eng, loader, fb, logger, cfg.Version)
	router := httpapi.NewRouter(cfg, srv, redisCache, metrics, logger)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("ensemble engine listening", zap.String("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down ensemble engine")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	loader.UnloadAll()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("ensemble engine stopped")
}
