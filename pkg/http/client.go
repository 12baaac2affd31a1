package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/loopmetrics/loopmetrics-go/pkg/errors"
)

// Ensure Client implements Doer at compile time.
var _ Doer = (*Client)(nil)

const (
	// maxResponseSize limits the size of HTTP response bodies to prevent OOM.
	maxResponseSize = 1 * 1024 * 1024 // 1MB

	// maxRequestBodySize limits the size of HTTP request bodies.
	maxRequestBodySize = 1 * 1024 * 1024 // 1MB
)

// Config configures a Client.
type Config struct {
	// BaseURL is prepended to every request path.
	BaseURL string

	// APIKey, when set, is sent in the x-api-key header on every request.
	APIKey string

	// APIKeyHeader overrides the header name carrying APIKey.
	APIKeyHeader string

	// UserAgent is sent in the User-Agent header.
	UserAgent string

	// HTTPClient performs the requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Hooks run around every request.
	Hooks []HTTPHook
}

// Client sends JSON requests to the Loopmetrics backend. It never retries;
// a failed request is returned to the caller as is.
type Client struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	apiKeyHeader string
	userAgent    string
	hook         HTTPHook
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	header := cfg.APIKeyHeader
	if header == "" {
		header = "x-api-key"
	}
	return &Client{
		client:       hc,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		apiKeyHeader: header,
		userAgent:    cfg.UserAgent,
		hook:         CombineHooks(cfg.Hooks),
	}
}

// Get performs an HTTP GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, result any) error {
	return c.do(ctx, &request{method: http.MethodGet, path: path, query: query, result: result})
}

// Post performs an HTTP POST request.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, &request{method: http.MethodPost, path: path, body: body, result: result})
}

// request represents an HTTP request to be made.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	result any
}

func (c *Client) do(ctx context.Context, req *request) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		bodyBytes, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("loopmetrics: failed to marshal request body: %w", err)
		}
		if len(bodyBytes) > maxRequestBodySize {
			return fmt.Errorf("loopmetrics: request body size %d bytes exceeds maximum %d bytes",
				len(bodyBytes), maxRequestBodySize)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("loopmetrics: failed to create request: %w", err)
	}

	requestID := uuid.NewString()

	if c.apiKey != "" {
		httpReq.Header.Set(c.apiKeyHeader, c.apiKey)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	if c.hook != nil {
		if err := c.hook.BeforeRequest(ctx, httpReq); err != nil {
			return fmt.Errorf("loopmetrics: hook BeforeRequest failed: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	duration := time.Since(start)

	// Hooks see transport errors too.
	if c.hook != nil {
		c.hook.AfterResponse(ctx, httpReq, resp, duration, err)
	}

	if err != nil {
		return fmt.Errorf("loopmetrics: request %s %s failed (request_id=%s): %w", req.method, req.path, requestID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return fmt.Errorf("loopmetrics: failed to read response body (request_id=%s): %w", requestID, err)
	}
	if len(respBody) > maxResponseSize {
		return fmt.Errorf("loopmetrics: response body exceeded maximum size of %d bytes (request_id=%s)", maxResponseSize, requestID)
	}

	if resp.StatusCode >= 400 {
		apiErr := &pkgerrors.APIError{
			StatusCode: resp.StatusCode,
			Path:       req.path,
			RequestID:  requestID,
		}
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, apiErr); err != nil {
				apiErr.Message = string(respBody)
			}
			// The body may carry its own statusCode; the transport's wins.
			apiErr.StatusCode = resp.StatusCode
		}
		return apiErr
	}

	if req.result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, req.result); err != nil {
			return fmt.Errorf("loopmetrics: failed to unmarshal response (request_id=%s): %w", requestID, err)
		}
	}

	return nil
}
