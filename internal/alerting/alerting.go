// Package alerting implements conflict.Alerter (C6 supplement): a
// generic webhook notifier for critical conflicts. Grounded on the
// teacher's internal/webhook/dispatcher.go signing and delivery
// mechanics, generalized from a DB-backed multi-subscriber Discord
// dispatcher to a single configured endpoint with a generic JSON
// payload — the crisis engine has no subscription model, only one
// operator-configured alert sink.
package alerting

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crisisengine.dev/ensemble/internal/asyncutil"
	"crisisengine.dev/ensemble/internal/config"
	"crisisengine.dev/ensemble/internal/models"
	"go.uber.org/zap"
)

const (
	signatureHeader = "X-Alert-Signature"
	timestampHeader = "X-Alert-Timestamp"
	eventHeader     = "X-Alert-Event"
)

// Payload is the JSON body posted to the alert endpoint.
type Payload struct {
	Event       string                  `json:"event"`
	Timestamp   time.Time               `json:"timestamp"`
	Conflict    models.DetectedConflict `json:"conflict"`
	ResolvedScore float64               `json:"resolved_score"`
}

// WebhookAlerter posts critical-conflict notifications to one configured
// HTTP endpoint, HMAC-signed the way the teacher signs webhook
// deliveries. A zero-value Endpoint makes every Alert call a no-op.
type WebhookAlerter struct {
	endpoint   string
	secret     string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a WebhookAlerter. If cfg.Endpoint is empty, the returned
// alerter's Alert calls are no-ops.
func New(cfg config.AlertingConfig, logger *zap.Logger) *WebhookAlerter {
	return &WebhookAlerter{
		endpoint:   cfg.Endpoint,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutS * float64(time.Second))},
		logger:     logger,
	}
}

// Alert posts one critical-conflict notification, retrying once on a
// transient failure. Satisfies conflict.Alerter.
func (a *WebhookAlerter) Alert(ctx context.Context, conflict models.DetectedConflict, score float64) error {
	if a.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(Payload{
		Event:         "conflict.critical",
		Timestamp:     time.Now().UTC(),
		Conflict:      conflict,
		ResolvedScore: score,
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	return asyncutil.Retry(ctx, asyncutil.DefaultRetryConfig(), func(ctx context.Context) error {
		return a.deliver(ctx, body)
	})
}

func (a *WebhookAlerter) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}

	ts := fmt.Sprintf("%d", time.Now().Unix())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventHeader, "conflict.critical")
	req.Header.Set(timestampHeader, ts)
	if a.secret != "" {
		req.Header.Set(signatureHeader, "sha256="+sign(body, a.secret))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
