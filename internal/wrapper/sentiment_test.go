package wrapper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSentimentAnalyzeParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(zeroShotResponse{
			Sequence: "test",
			Labels:   []string{"negative", "neutral", "positive"},
			Scores:   []float64{0.7, 0.2, 0.1},
		})
	}))
	defer srv.Close()

	s := NewSentiment("", srv.URL, 0.25, true, 2*time.Second, zap.NewNop())
	result := s.Analyze(context.Background(), "this is bad")
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	if result.Label != "negative" {
		t.Errorf("Label = %q, want negative (top score)", result.Label)
	}
	if got := NegativeSignal(result); got != 0.7 {
		t.Errorf("NegativeSignal = %v, want 0.7", got)
	}
}

func TestSentimentAnalyzeFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSentiment("", srv.URL, 0.25, true, 500*time.Millisecond, zap.NewNop())
	result := s.Analyze(context.Background(), "text")
	if result.Success {
		t.Error("expected failure when the endpoint returns 500")
	}
}

func TestSentimentWarmupSetsLoaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(zeroShotResponse{Labels: []string{"negative"}, Scores: []float64{0.1}})
	}))
	defer srv.Close()

	s := NewSentiment("", srv.URL, 0.25, true, 2*time.Second, zap.NewNop())
	if s.IsLoaded() {
		t.Fatal("should not be loaded before warmup")
	}
	if err := s.Warmup(context.Background()); err != nil {
		t.Fatalf("unexpected warmup error: %v", err)
	}
	if !s.IsLoaded() {
		t.Error("expected IsLoaded() to be true after a successful warmup")
	}
}

func TestSentimentNameAndRole(t *testing.T) {
	s := NewSentiment("", "", 0.25, true, time.Second, zap.NewNop())
	if s.Name() != "sentiment" {
		t.Errorf("Name() = %q, want sentiment", s.Name())
	}
}
