package connector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/metrics"
	"github.com/hashicorp/go-retryablehttp"
)

// HTTPSink delivers agent results by POSTing them to a fixed endpoint.
// Every delivery carries an Idempotency-Key of "<runID>-<messageID>" so the
// receiver can deduplicate retried deliveries.
type HTTPSink struct {
	url    string
	client *retryablehttp.Client
}

// HTTPSinkConfig configures the sink's endpoint and retry behavior.
type HTTPSinkConfig struct {
	URL          string
	MaxRetries   int           // default 4
	RetryWaitMin time.Duration // default 500ms
	RetryWaitMax time.Duration // default 8s
}

// NewHTTPSink creates a sink for cfg.URL.
func NewHTTPSink(cfg HTTPSinkConfig) (*HTTPSink, error) {
	if cfg.URL == "" {
		return nil, errdefs.Validationf("sink url must not be empty")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 500 * time.Millisecond
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = 8 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.Logger = nil
	rc.CheckRetry = sinkRetryPolicy
	rc.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			metrics.SinkRetries.Inc()
		}
	}

	return &HTTPSink{url: cfg.URL, client: rc}, nil
}

// sinkRetryPolicy retries connection errors, timeouts (408), throttling
// (429) and server errors (5xx). Other 4xx responses are final.
func sinkRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch {
	case resp.StatusCode == http.StatusRequestTimeout:
		return true, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, nil
	case resp.StatusCode >= 500:
		return true, nil
	}
	return false, nil
}

// Deliver posts one result. A non-retryable rejection comes back as a
// non-retryable error; exhausted retries come back transient.
func (s *HTTPSink) Deliver(ctx context.Context, runID, messageID string, payload []byte) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", fmt.Sprintf("%s-%s", runID, messageID))

	resp, err := s.client.Do(req)
	if err != nil {
		return errdefs.Transientf("sink delivery failed: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return errdefs.NonRetryablef("sink rejected delivery with status %d", resp.StatusCode)
	default:
		return errdefs.Transientf("sink returned status %d", resp.StatusCode)
	}
}

func (s *HTTPSink) Close() error {
	s.client.HTTPClient.CloseIdleConnections()
	return nil
}
