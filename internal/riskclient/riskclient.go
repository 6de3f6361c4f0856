// Package riskclient implements the external risk client (C8): an
// optional, circuit-broken call to an outside risk-scoring service that
// can amplify (never suppress) the ensemble's own crisis score. Grounded
// on the teacher's internal/classifier external-provider wrapper pattern
// (HTTP client behind a breaker, with a context-bounded timeout and one
// retry), adapted from content-moderation provider lookup to crisis-risk
// corroboration.
package riskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crisisengine.dev/ensemble/internal/asyncutil"
	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Client calls an external risk-scoring service, gated and amplification-
// bounded per spec §4.8.
type Client struct {
	cfg        config.ExternalRiskConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func New(cfg config.ExternalRiskConfig, logger *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "external_risk",
		MaxRequests: 1,
		Timeout:     time.Duration(cfg.BreakerOpenS * float64(time.Second)),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("external risk breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		breaker:    breaker,
		logger:     logger,
	}
}

type riskRequest struct {
	Text string `json:"text"`
}

type riskResponse struct {
	RiskScore float64 `json:"risk_score"`
	RiskLabel string  `json:"risk_label"`
}

// Assess applies the gate (spec §4.8 step 1), calls the external service
// if the gate passes, and amplifies baseScore if the call succeeds. It
// never returns an error: unavailability degrades to a structured
// ExternalRiskResult instead. The second return value is the score the
// engine should use going forward — baseScore unchanged unless Status is
// ExternalRiskOK.
func (c *Client) Assess(ctx context.Context, text string, severity models.Severity, baseScore float64) (*models.ExternalRiskResult, float64) {
	if !c.shouldCall(severity, baseScore) {
		return &models.ExternalRiskResult{Status: models.ExternalRiskSkipped}, baseScore
	}

	if c.breaker.State() == gobreaker.StateOpen {
		return &models.ExternalRiskResult{Status: models.ExternalRiskUnavailable}, baseScore
	}

	timeout := time.Duration(c.cfg.TimeoutS * float64(time.Second))
	retryCfg := asyncutil.RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    1 * time.Second,
		IsTransient: isTransientRiskError,
	}

	var resp riskResponse
	_, err := c.breaker.Execute(func() (interface{}, error) {
		err := asyncutil.Retry(ctx, retryCfg, func(ctx context.Context) error {
			return asyncutil.WithTimeout(ctx, timeout, func(ctx context.Context) error {
				r, callErr := c.call(ctx, text)
				if callErr != nil {
					return callErr
				}
				resp = r
				return nil
			})
		})
		return nil, err
	})
	if err != nil {
		c.logger.Warn("external risk call failed", zap.Error(err))
		return &models.ExternalRiskResult{Status: models.ExternalRiskUnavailable}, baseScore
	}

	amplified := Amplify(baseScore, resp.RiskScore, c.cfg.Beta)
	return &models.ExternalRiskResult{
		Status:    models.ExternalRiskOK,
		RiskScore: resp.RiskScore,
		RiskLabel: resp.RiskLabel,
		Amplified: amplified > baseScore,
	}, amplified
}

// shouldCall implements the cost-control gate: calling the external
// service is skipped unless the score already crosses skip_threshold, the
// severity already warrants corroboration, or the caller has opted into
// amplifying low scores too.
func (c *Client) shouldCall(severity models.Severity, baseScore float64) bool {
	if !c.cfg.Enabled || c.cfg.Endpoint == "" {
		return false
	}
	if baseScore >= c.cfg.SkipThreshold {
		return true
	}
	if severity.AtLeast(models.SeverityMedium) {
		return true
	}
	return c.cfg.AmplifyLow
}

func (c *Client) call(ctx context.Context, text string) (riskResponse, error) {
	body, err := json.Marshal(riskRequest{Text: text})
	if err != nil {
		return riskResponse{}, fmt.Errorf("marshal risk request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return riskResponse{}, fmt.Errorf("build risk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return riskResponse{}, fmt.Errorf("external risk request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return riskResponse{}, fmt.Errorf("read risk response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return riskResponse{}, &httpStatusError{status: resp.StatusCode, body: string(data)}
	}

	var out riskResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return riskResponse{}, fmt.Errorf("unmarshal risk response: %w", err)
	}
	return out, nil
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("external risk service returned %d: %s", e.status, e.body)
}

// isTransientRiskError implements the single-retry policy of spec §4.8:
// 5xx and 429 are retried once, 4xx is not.
func isTransientRiskError(err error) bool {
	var statusErr *httpStatusError
	if se, ok := err.(*httpStatusError); ok {
		statusErr = se
		return statusErr.status >= 500 || statusErr.status == http.StatusTooManyRequests
	}
	return true
}

// Amplify implements spec §4.8's amplification formula: the external
// signal can only push the score up, toward 1.0, never down.
func Amplify(base, risk, beta float64) float64 {
	amplified := base + beta*risk*(1-base)
	if amplified > 1.0 {
		return 1.0
	}
	if amplified < base {
		return base
	}
	return amplified
}
