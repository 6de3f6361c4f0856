package config

import "testing"

func validEngineConfig() EngineConfig {
	return DefaultEngineConfig()
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validEngineConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidateRejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := validEngineConfig()
	cfg.Models = map[string]ModelConfig{
		"bart":      {Weight: 0.50, Enabled: true},
		"sentiment": {Weight: 0.10, Enabled: true},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when enabled weights sum to 0.60, not 1.0")
	}
}

func TestValidateBoundsChecksDisabledModelWeights(t *testing.T) {
	cfg := validEngineConfig()
	cfg.Models = map[string]ModelConfig{
		"bart":      {Weight: 1.0, Enabled: true},
		"sentiment": {Weight: 5.0, Enabled: false},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("a disabled model's out-of-range weight should still fail the [0,1] bound check")
	}
}

func TestValidateRejectsWeightOutOfBounds(t *testing.T) {
	cfg := validEngineConfig()
	cfg.Models = map[string]ModelConfig{
		"bart": {Weight: 1.5, Enabled: true},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a weight above 1.0")
	}
}

func TestValidateRejectsUnorderedThresholds(t *testing.T) {
	cfg := validEngineConfig()
	cfg.Thresholds.High = 0.90 // now greater than Critical
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when high >= critical")
	}
}

func TestValidateRejectsZeroLowThreshold(t *testing.T) {
	cfg := validEngineConfig()
	cfg.Thresholds.Low = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when low threshold is not > 0")
	}
}

func TestValidateRejectsIronyAlphaOutOfBounds(t *testing.T) {
	cfg := validEngineConfig()
	cfg.ScoringIronyAlpha = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for scoring.irony_alpha outside [0,1]")
	}
}

func TestGetEnvAsBoolDefaultsWhenUnset(t *testing.T) {
	if got := getEnvAsBool("ENSEMBLE_TEST_UNSET_BOOL", true); !got {
		t.Error("getEnvAsBool should return the default when the variable is unset")
	}
}

func TestGetEnvDefaultsWhenUnset(t *testing.T) {
	if got := getEnv("ENSEMBLE_TEST_UNSET_STRING", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}
}
