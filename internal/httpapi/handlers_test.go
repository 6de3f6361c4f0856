package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/engine"
	"crisisengine.dev/ensemble/internal/fallback"
	"crisisengine.dev/ensemble/internal/modelloader"
	"crisisengine.dev/ensemble/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// testWrapper is a minimal deterministic stand-in for a model wrapper,
// used to build a real Engine without any network dependency.
type testWrapper struct {
	name      string
	role      models.ModelRole
	loaded    bool
	allScores map[string]float64
}

func (w *testWrapper) Analyze(ctx context.Context, text string) models.ModelResult {
	return models.ModelResult{ModelName: w.name, ModelRole: w.role, Success: true, AllScores: w.allScores}
}
func (w *testWrapper) Warmup(ctx context.Context) error { w.loaded = true; return nil }
func (w *testWrapper) Unload()                          { w.loaded = false }
func (w *testWrapper) IsLoaded() bool                   { return w.loaded }
func (w *testWrapper) IsEnabled() bool                  { return true }
func (w *testWrapper) Name() string                     { return w.name }
func (w *testWrapper) Role() models.ModelRole            { return w.role }
func (w *testWrapper) Weight() float64                  { return 0.25 }

func newTestServer(t *testing.T, primaryLoaded bool) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	loader := modelloader.New(2, logger)
	bart := &testWrapper{name: "bart", role: models.RolePrimary, loaded: primaryLoaded, allScores: map[string]float64{"emotional distress": 0.2}}
	loader.Register(bart)
	loader.Register(&testWrapper{name: "sentiment", role: models.RoleSecondary, loaded: true, allScores: map[string]float64{"negative": 0.2}})
	loader.Register(&testWrapper{name: "irony", role: models.RoleTertiary, loaded: true, allScores: map[string]float64{"ironic": 0.1}})
	loader.Register(&testWrapper{name: "emotions", role: models.RoleSupplementary, loaded: true, allScores: map[string]float64{"sadness": 0.1}})

	fb := fallback.New(fallback.DefaultConfig(), []string{"bart", "sentiment", "irony", "emotions"}, logger)
	eng := engine.New(config.DefaultEngineConfig(), loader, fb, nil, nil, nil, logger)
	return New(eng, loader, fb, logger, "test")
}

func doRequest(s *Server, method, path string, body []byte, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return w
}

func TestAnalyzeHandlerReturns200OnValidRequest(t *testing.T) {
	s := newTestServer(t, true)
	body, _ := json.Marshal(map[string]string{"message": "hello there"})
	w := doRequest(s, http.MethodPost, "/analyze", body, s.Analyze)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	var out models.CrisisAssessment
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestAnalyzeHandlerRejectsEmptyMessage(t *testing.T) {
	s := newTestServer(t, true)
	body, _ := json.Marshal(map[string]string{"message": ""})
	w := doRequest(s, http.MethodPost, "/analyze", body, s.Analyze)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an empty message", w.Code)
	}
}

func TestAnalyzeHandlerRejectsInvalidAlgorithm(t *testing.T) {
	s := newTestServer(t, true)
	body, _ := json.Marshal(map[string]string{"message": "hi", "algorithm": "not_a_real_algorithm"})
	w := doRequest(s, http.MethodPost, "/analyze", body, s.Analyze)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an invalid algorithm", w.Code)
	}
}

func TestAnalyzeBatchHandlerProcessesEveryItem(t *testing.T) {
	s := newTestServer(t, true)
	body, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]string{
			{"message": "first message"},
			{"message": "second message"},
		},
	})
	w := doRequest(s, http.MethodPost, "/analyze/batch", body, s.AnalyzeBatch)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Results []batchItemResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(out.Results))
	}
	for _, r := range out.Results {
		if r.Assessment == nil {
			t.Errorf("item %d: expected an assessment, got error %q", r.Index, r.Error)
		}
	}
}

func TestHealthHandlerReturns200WhenPrimaryLoaded(t *testing.T) {
	s := newTestServer(t, true)
	w := doRequest(s, http.MethodGet, "/health", nil, s.Health)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when the primary model is loaded", w.Code)
	}
}

func TestHealthHandlerReturns503WhenPrimaryNotLoaded(t *testing.T) {
	s := newTestServer(t, false)
	w := doRequest(s, http.MethodGet, "/health", nil, s.Health)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when the primary model is not loaded", w.Code)
	}
}

func TestStatusHandlerReportsCacheSize(t *testing.T) {
	s := newTestServer(t, true)
	body, _ := json.Marshal(map[string]string{"message": "populate the cache"})
	doRequest(s, http.MethodPost, "/analyze", body, s.Analyze)

	w := doRequest(s, http.MethodGet, "/status", nil, s.Status)
	var out statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.CacheSize != 1 {
		t.Errorf("CacheSize = %d, want 1 after one analyze call", out.CacheSize)
	}
}

func TestModelsHandlerListsAllFour(t *testing.T) {
	s := newTestServer(t, true)
	w := doRequest(s, http.MethodGet, "/models", nil, s.Models)
	var out struct {
		Models []modelloader.Descriptor `json:"models"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.Models) != 4 {
		t.Errorf("got %d models, want 4", len(out.Models))
	}
}

func TestPutConsensusConfigRoundTrips(t *testing.T) {
	s := newTestServer(t, true)
	body, _ := json.Marshal(consensusConfigView{DefaultAlgorithm: "majority", Verbosity: "detailed"})
	w := doRequest(s, http.MethodPut, "/config/consensus", body, s.PutConsensusConfig)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	getW := doRequest(s, http.MethodGet, "/config/consensus", nil, s.GetConsensusConfig)
	var out consensusConfigView
	if err := json.Unmarshal(getW.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.DefaultAlgorithm != "majority" || out.Verbosity != "detailed" {
		t.Errorf("got %+v, want the values just written", out)
	}
}

func TestPutContextConfigRejectsOutOfRangeHour(t *testing.T) {
	s := newTestServer(t, true)
	body, _ := json.Marshal(contextConfigView{
		Enabled: true, MaxHistory: 10, LateNightWindowStart: 30, LateNightWindowEnd: 4,
		RapidPostingK: 5, TrendWindowN: 3,
	})
	w := doRequest(s, http.MethodPut, "/config/context", body, s.PutContextConfig)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an out-of-range late night hour", w.Code)
	}
}

func TestPutContextConfigAcceptsValidWindow(t *testing.T) {
	s := newTestServer(t, true)
	body, _ := json.Marshal(contextConfigView{
		Enabled: true, MaxHistory: 10, LateNightWindowStart: 22, LateNightWindowEnd: 4,
		RapidPostingK: 5, TrendWindowN: 3,
	})
	w := doRequest(s, http.MethodPut, "/config/context", body, s.PutContextConfig)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
}
