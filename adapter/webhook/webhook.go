// Package webhook delivers capture completion events over HTTP POST.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seam-io/seam/adapter"
	"github.com/seam-io/seam/iox"
	"github.com/seam-io/seam/log"
)

// Defaults for webhook delivery.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3

	baseBackoff = 250 * time.Millisecond
)

// Config holds webhook delivery settings.
type Config struct {
	// URL is the endpoint that receives the event as a JSON POST body.
	URL string
	// Headers are added to every request, e.g. for authentication.
	Headers map[string]string
	// Timeout bounds each delivery attempt.
	Timeout time.Duration
	// MaxRetries is the number of re-attempts after the first failure.
	// Retries apply to network errors and 5xx responses only; a 4xx
	// response is treated as permanent.
	MaxRetries int
}

// Adapter posts events to a webhook endpoint with exponential backoff.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *log.Logger
}

// New creates a webhook adapter.
func New(cfg Config, logger *log.Logger) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Publish implements adapter.Adapter.
func (a *Adapter) Publish(ctx context.Context, event *adapter.CaptureCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			a.logger.Debug("webhook retry", map[string]any{
				"event_id": event.EventID,
				"attempt":  attempt,
			})
		}

		permanent, err := a.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if permanent {
			return err
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", a.cfg.MaxRetries+1, lastErr)
}

// post makes one delivery attempt. The bool result marks permanent
// failures that must not be retried.
func (a *Adapter) post(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return true, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return false, err
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("webhook returned %d: %s", resp.StatusCode, excerpt)
	permanent := resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests
	return permanent, err
}

// Close implements adapter.Adapter.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// Verify Adapter implements adapter.Adapter.
var _ adapter.Adapter = (*Adapter)(nil)
