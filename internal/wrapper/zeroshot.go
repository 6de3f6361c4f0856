package wrapper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crisisengine.dev/ensemble/internal/asyncutil"
	"go.uber.org/zap"
)

// zeroShotRequest mirrors a HuggingFace Inference API zero-shot
// classification request body.
type zeroShotRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters zeroShotRequestParams `json:"parameters"`
}

type zeroShotRequestParams struct {
	CandidateLabels    []string `json:"candidate_labels"`
	MultiLabel         bool     `json:"multi_label"`
	HypothesisTemplate string   `json:"hypothesis_template,omitempty"`
}

// zeroShotResponse mirrors the API's response shape: parallel label and
// score slices, ranked by descending score.
type zeroShotResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// zeroShotClient is a small HTTP client to a zero-shot classification
// endpoint, shared by every wrapper. Grounded on the teacher's
// HuggingFaceClient.ClassifyText: bearer auth, bounded retry, 5xx/503
// backoff.
type zeroShotClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

func newZeroShotClient(apiKey, endpoint string, timeout time.Duration, logger *zap.Logger) *zeroShotClient {
	return &zeroShotClient{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// classify performs one zero-shot classification call with a bounded
// retry on transient errors (5xx, connection failure); 4xx is not
// retried.
func (c *zeroShotClient) classify(ctx context.Context, text string, labels []string, hypothesisTemplate string) (map[string]float64, string, error) {
	reqBody := zeroShotRequest{
		Inputs: text,
		Parameters: zeroShotRequestParams{
			CandidateLabels:    labels,
			MultiLabel:         true,
			HypothesisTemplate: hypothesisTemplate,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("marshal zero-shot request: %w", err)
	}

	var parsed zeroShotResponse
	retryCfg := asyncutil.DefaultRetryConfig()
	retryCfg.IsTransient = isTransientHTTPError

	err = asyncutil.Retry(ctx, retryCfg, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			return &httpStatusError{status: resp.StatusCode, body: string(body)}
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("zero-shot request rejected (%d): %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	scores := make(map[string]float64, len(parsed.Labels))
	top := ""
	topScore := -1.0
	for i, label := range parsed.Labels {
		if i >= len(parsed.Scores) {
			break
		}
		scores[label] = parsed.Scores[i]
		if parsed.Scores[i] > topScore {
			topScore = parsed.Scores[i]
			top = label
		}
	}
	return scores, top, nil
}

// health performs a minimal classification to verify the endpoint is
// reachable, mirroring the teacher's provider Health checks.
func (c *zeroShotClient) health(ctx context.Context, labels []string) error {
	_, _, err := c.classify(ctx, warmupText, labels, "")
	return err
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("zero-shot endpoint returned status %d: %s", e.status, e.body)
}

func isTransientHTTPError(err error) bool {
	var statusErr *httpStatusError
	if se, ok := err.(*httpStatusError); ok {
		statusErr = se
		return statusErr.status >= 500 || statusErr.status == http.StatusTooManyRequests
	}
	return true
}
