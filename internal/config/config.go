// Package config is the single configuration facade every component reads
// from. It loads process configuration from the environment (ambient
// concern; file/secret loading is out of scope) and exposes the
// engine-relevant tunables as a typed EngineConfig that the engine can
// atomically reload.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ModelConfig holds the static, configuration-driven properties of one
// model wrapper (C1).
type ModelConfig struct {
	Weight   float64
	Enabled  bool
	Revision string
}

// ThresholdConfig holds the severity mapping thresholds (ordered,
// critical > high > medium > low > 0).
type ThresholdConfig struct {
	Critical float64
	High     float64
	Medium   float64
	Low      float64
}

// ExternalRiskConfig holds the external risk client's gate and
// amplification tunables (C8).
type ExternalRiskConfig struct {
	Enabled          bool
	SkipThreshold    float64
	AmplifyLow       bool
	Beta             float64
	TimeoutS         float64
	BreakerThreshold int
	BreakerOpenS     float64
	Endpoint         string
	APIKey           string
}

// ContextConfig holds the context analyzer's tunables (C9).
type ContextConfig struct {
	Enabled               bool
	MaxHistory            int
	LateNightWindowStart  int // hour, inclusive
	LateNightWindowEnd    int // hour, exclusive
	RapidPostingK         int
	RapidPostingWindowMin float64
	TrendWindowN          int
	TrendEpsilon          float64
	TrendVolatility       float64
}

// AlertingConfig holds the critical-conflict webhook alerter's tunables
// (C6 supplement). Empty Endpoint disables alerting entirely.
type AlertingConfig struct {
	Endpoint string
	Secret   string
	TimeoutS float64
}

// CacheConfig holds the response cache's tunables (C12).
type CacheConfig struct {
	Enabled bool
	MaxSize int
	TTLS    float64
}

// TimeoutConfig holds the engine's inference budgets (C11/C13).
type TimeoutConfig struct {
	PerModelS float64
	GlobalS   float64
}

// ConcurrencyConfig holds the inference pool sizing (C2/C13).
type ConcurrencyConfig struct {
	MaxWorkers int
}

// EngineConfig is every tunable recognized by the engine and its
// components (spec §6 "Configuration surface"). It is validated as a
// whole and swapped atomically by Engine.ReloadConfig — partial reloads
// are rejected.
type EngineConfig struct {
	Models map[string]ModelConfig

	Thresholds ThresholdConfig

	ScoringIronyAlpha float64

	ConsensusDefaultAlgorithm string
	ConsensusVerbosity        string

	ConflictSpreadThreshold    float64
	ConflictCriticalThreshold  float64

	ResolverDefaultStrategy string

	ExternalRisk ExternalRiskConfig

	Alerting AlertingConfig

	Context ContextConfig

	Cache CacheConfig

	Timeouts TimeoutConfig

	Concurrency ConcurrencyConfig
}

// Validate checks that the config satisfies the invariants every component
// assumes (weights sum to 1 ± 0.01, ordered thresholds, bounds in [0,1]).
// ReloadConfig calls this before swapping.
func (c *EngineConfig) Validate() error {
	var sum float64
	for name, m := range c.Models {
		if m.Enabled {
			sum += m.Weight
		}
		if m.Weight < 0 || m.Weight > 1 {
			return fmt.Errorf("model %s: weight %v out of [0,1]", name, m.Weight)
		}
	}
	if sum > 0 && (sum < 0.99 || sum > 1.01) {
		return fmt.Errorf("enabled model weights sum to %v, want 1.0 ± 0.01", sum)
	}
	t := c.Thresholds
	if !(t.Critical > t.High && t.High > t.Medium && t.Medium > t.Low && t.Low > 0) {
		return fmt.Errorf("thresholds must satisfy critical > high > medium > low > 0, got %+v", t)
	}
	if c.ScoringIronyAlpha < 0 || c.ScoringIronyAlpha > 1 {
		return fmt.Errorf("scoring.irony_alpha %v out of [0,1]", c.ScoringIronyAlpha)
	}
	return nil
}

// DefaultEngineConfig returns the spec-documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Models: map[string]ModelConfig{
			"bart":      {Weight: 0.50, Enabled: true},
			"sentiment": {Weight: 0.25, Enabled: true},
			"irony":     {Weight: 0.15, Enabled: true},
			"emotions":  {Weight: 0.10, Enabled: true},
		},
		Thresholds: ThresholdConfig{
			Critical: 0.85,
			High:     0.70,
			Medium:   0.50,
			Low:      0.30,
		},
		ScoringIronyAlpha:        0.6,
		ConsensusDefaultAlgorithm: "weighted",
		ConsensusVerbosity:        "standard",
		ConflictSpreadThreshold:   0.5,
		ConflictCriticalThreshold: 0.75,
		ResolverDefaultStrategy:   "conservative",
		ExternalRisk: ExternalRiskConfig{
			Enabled:          false,
			SkipThreshold:    0.80,
			AmplifyLow:       false,
			Beta:             0.5,
			TimeoutS:         2.0,
			BreakerThreshold: 5,
			BreakerOpenS:     60,
		},
		Alerting: AlertingConfig{
			TimeoutS: 5,
		},
		Context: ContextConfig{
			Enabled:               true,
			MaxHistory:            50,
			LateNightWindowStart:  22,
			LateNightWindowEnd:    4,
			RapidPostingK:         5,
			RapidPostingWindowMin: 10,
			TrendWindowN:          6,
			TrendEpsilon:          0.02,
			TrendVolatility:       0.2,
		},
		Cache: CacheConfig{
			Enabled: true,
			MaxSize: 1000,
			TTLS:    300,
		},
		Timeouts: TimeoutConfig{
			PerModelS: 2,
			GlobalS:   5,
		},
		Concurrency: ConcurrencyConfig{
			MaxWorkers: 8,
		},
	}
}

// Config holds process-level configuration: service wiring, logging, and
// the seed EngineConfig loaded at startup.
type Config struct {
	Port        string
	Environment string
	Version     string

	LogLevel string
	LogJSON  bool

	RedisURL string

	AuthToken string

	// Model inference endpoints (C1). One shared API key, distinct
	// per-model endpoints — each wrapper calls a different HuggingFace
	// Inference API model.
	HuggingFaceAPIKey string
	BartEndpoint      string
	BartRevision      string
	SentimentEndpoint string
	IronyEndpoint     string
	EmotionsEndpoint  string

	OTLPEndpoint string

	RateLimitRPM int

	Engine EngineConfig
}

// Load reads configuration from the environment, applying the spec's
// documented defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Version:     getEnv("VERSION", "0.1.0"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvAsBool("LOG_JSON", true),

		RedisURL: getEnv("REDIS_URL", ""),

		AuthToken: getEnv("AUTH_TOKEN", ""),

		HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
		BartEndpoint:      getEnv("BART_ENDPOINT", "https://api-inference.huggingface.co/models/facebook/bart-large-mnli"),
		BartRevision:      getEnv("BART_REVISION", ""),
		SentimentEndpoint: getEnv("SENTIMENT_ENDPOINT", "https://api-inference.huggingface.co/models/cardiffnlp/twitter-roberta-base-sentiment-latest"),
		IronyEndpoint:     getEnv("IRONY_ENDPOINT", "https://api-inference.huggingface.co/models/cardiffnlp/twitter-roberta-base-irony"),
		EmotionsEndpoint:  getEnv("EMOTIONS_ENDPOINT", "https://api-inference.huggingface.co/models/j-hartmann/emotion-english-distilroberta-base"),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),

		RateLimitRPM: int(getEnvAsInt32("RATE_LIMIT_RPM", 120)),

		Engine: DefaultEngineConfig(),
	}

	cfg.Engine.ExternalRisk.Endpoint = getEnv("EXTERNAL_RISK_ENDPOINT", "")
	cfg.Engine.ExternalRisk.APIKey = getEnv("EXTERNAL_RISK_API_KEY", "")
	cfg.Engine.ExternalRisk.Enabled = getEnvAsBool("EXTERNAL_RISK_ENABLED", cfg.Engine.ExternalRisk.Endpoint != "")

	cfg.Engine.Alerting.Endpoint = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Engine.Alerting.Secret = getEnv("ALERT_WEBHOOK_SECRET", "")

	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default engine config: %w", err)
	}

	return cfg, nil
}

// NewLogger creates a zap logger based on configuration.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", c.LogLevel, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableStacktrace = true
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if !c.LogJSON {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zcfg.InitialFields = map[string]interface{}{
		"environment": c.Environment,
		"version":     c.Version,
		"service":     "ensemble-engine",
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 32)
	if err != nil {
		return defaultValue
	}
	return int32(value)
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
