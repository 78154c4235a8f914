package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelstack/recoserve/internal/apperr"
	"github.com/reelstack/recoserve/pkg/metric"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const retryBackoffBase = 100 * time.Millisecond

// Client computes a subject embedding from its interaction sequence by
// calling the model server.
type Client interface {
	Embed(ctx context.Context, subject int64, sequence []int64) ([]float32, error)
}

type embedRequest struct {
	SubjectID    int64   `json:"subject_id"`
	ItemSequence []int64 `json:"item_sequence"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// HTTPClient talks to a TorchServe-style model server. Calls are rate
// limited and retried with backoff; client-side (4xx) failures are permanent
// and never retried.
type HTTPClient struct {
	endpoint   string
	dim        int
	retryMax   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewHTTPClient(serverURL, modelName string, dim int, timeout time.Duration, maxRps, retryMax int) *HTTPClient {
	if maxRps <= 0 {
		maxRps = 1
	}
	if retryMax < 0 {
		retryMax = 0
	}
	return &HTTPClient{
		endpoint:   fmt.Sprintf("%s/predictions/%s", serverURL, modelName),
		dim:        dim,
		retryMax:   retryMax,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(maxRps), maxRps),
	}
}

func (c *HTTPClient) Embed(ctx context.Context, subject int64, sequence []int64) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Transient("rate limiter wait: %v", err)
	}

	payload, err := json.Marshal(embedRequest{SubjectID: subject, ItemSequence: sequence})
	if err != nil {
		return nil, apperr.Permanent("encode embed request: %v", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperr.ModelUnavailable("embed aborted: %v", ctx.Err())
			case <-time.After(retryBackoffBase << (attempt - 1)):
			}
			metric.Incr("model_call_retry", nil)
		}

		vector, err := c.callOnce(ctx, payload)
		if err == nil {
			return vector, nil
		}
		if apperr.IsPermanent(err) {
			return nil, err
		}
		lastErr = err
		log.Warn().Err(err).Int64("subject", subject).Int("attempt", attempt+1).Msg("Model call failed")
	}
	return nil, apperr.ModelUnavailable("model call exhausted retries: %v", lastErr)
}

func (c *HTTPClient) callOnce(ctx context.Context, payload []byte) ([]float32, error) {
	startTime := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Permanent("build embed request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metric.Incr(metric.ExternalApiRequestCount, metric.BuildTag(metric.NewTag(metric.TagBackend, "model_server"), metric.NewTag("status", "error")))
		return nil, fmt.Errorf("model server request: %w", err)
	}
	defer resp.Body.Close()

	metric.Timing(metric.ExternalApiRequestLatency, time.Since(startTime),
		metric.BuildTag(metric.NewTag(metric.TagBackend, "model_server")))
	metric.Incr(metric.ExternalApiRequestCount, metric.BuildTag(
		metric.NewTag(metric.TagBackend, "model_server"),
		metric.NewTag("status", fmt.Sprintf("%d", resp.StatusCode))))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, apperr.Permanent("model server rejected request: status %d body %s", resp.StatusCode, truncate(body, 256))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	if c.dim > 0 && len(out.Embedding) != c.dim {
		return nil, apperr.Permanent("model returned %d dims, expected %d", len(out.Embedding), c.dim)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("model returned empty embedding")
	}
	return out.Embedding, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
