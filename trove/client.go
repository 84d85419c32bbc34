package trove

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seam-io/seam/iox"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultMaxRecordChars is the largest content size the service accepts in
// a single record. Finalize re-buckets session parts up to this limit.
const DefaultMaxRecordChars = 50000

// Client abstracts the Trove storage API.
// Real implementations reach the service over HTTPS; stubs are used for
// testing.
type Client interface {
	// CreateRecord persists a new record and returns its storage id.
	CreateRecord(ctx context.Context, req *RecordRequest) (string, error)

	// UpdateRecord applies a partial update to an existing record.
	// Returns the record id, which the service may echo back unchanged.
	UpdateRecord(ctx context.Context, id string, req *RecordRequest) (string, error)

	// LookupRecord finds the current record for a (conversationId, platform)
	// pair. Returns (nil, nil) when no record matches.
	LookupRecord(ctx context.Context, conversationID, platform string) (*Record, error)

	// Close releases client resources.
	Close() error
}

// Config holds HTTP client configuration.
type Config struct {
	// BaseURL is the service root, e.g. https://trove.example.com (required).
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
}

// HTTPClient is the real Trove-backed implementation of Client.
type HTTPClient struct {
	config Config
	client *http.Client
}

// NewHTTPClient creates a Trove client from the given config.
// Returns an error if the base URL is empty or unparsable.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("trove client requires a base URL")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("trove client: invalid base URL: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &HTTPClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// CreateRecord implements Client via POST /v1/records.
func (c *HTTPClient) CreateRecord(ctx context.Context, req *RecordRequest) (string, error) {
	var resp createResponse
	err := c.do(ctx, http.MethodPost, c.config.BaseURL+"/v1/records", req, &resp)
	if err != nil {
		return "", wrapError("create", "", err)
	}
	return resp.ID, nil
}

// UpdateRecord implements Client via PATCH /v1/records/{id}.
func (c *HTTPClient) UpdateRecord(ctx context.Context, id string, req *RecordRequest) (string, error) {
	if id == "" {
		return "", wrapError("update", "", errors.New("record id is required"))
	}
	var resp createResponse
	endpoint := c.config.BaseURL + "/v1/records/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodPatch, endpoint, req, &resp)
	if err != nil {
		return "", wrapError("update", id, err)
	}
	if resp.ID == "" {
		resp.ID = id
	}
	return resp.ID, nil
}

// LookupRecord implements Client via GET /v1/records with query params.
// A 404 from the service is treated the same as an empty result set.
func (c *HTTPClient) LookupRecord(ctx context.Context, conversationID, platform string) (*Record, error) {
	query := url.Values{}
	query.Set("conversationId", conversationID)
	query.Set("platform", platform)
	endpoint := c.config.BaseURL + "/v1/records?" + query.Encode()

	var resp lookupResponse
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, wrapError("lookup", "", err)
	}
	if len(resp.Records) == 0 {
		return nil, nil
	}
	// The service returns at most one "current" record per pair; take the
	// first if it ever returns more.
	rec := resp.Records[0]
	return &rec, nil
}

// Close releases client resources.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// do performs one HTTP round trip with JSON encoding on both sides.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Keep a short excerpt of the body for diagnostics.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	// Drain any remainder to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// Verify HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
