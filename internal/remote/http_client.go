// Package remote talks to the request listing and approval API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/petrijr/connect/pkg/api"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultPageSize     = 100
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 500 * time.Millisecond
	DefaultUserAgent    = "connect-go/1.0"
	DefaultMaxPages     = 1000
)

// ErrPaging is returned when a listing does not advance between pages.
var ErrPaging = errors.New("listing does not advance")

// Config configures an HTTPClient.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	PageSize     int
	MaxRetries   int
	RetryBackoff time.Duration
	UserAgent    string

	// MaxPages bounds a single listing. Defaults to DefaultMaxPages.
	MaxPages int

	// HTTPClient overrides the transport. Its Timeout is left untouched.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// APIError is a non-retryable error response of the remote API.
type APIError struct {
	StatusCode int
	Code       string
	Messages   []string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" || len(e.Messages) > 0 {
		return fmt.Sprintf("api error: HTTP %d %s: %s", e.StatusCode, e.Code, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("api error: HTTP %d", e.StatusCode)
}

// HTTPClient lists and approves requests over HTTP.
type HTTPClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pageSize     int
	maxPages     int
	maxRetries   int
	retryBackoff time.Duration
	userAgent    string
	logger       *slog.Logger
}

var _ api.Client = (*HTTPClient)(nil)

// NewHTTPClient validates cfg and creates a client.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: api url", api.ErrConfigMissing)
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	c := &HTTPClient{
		httpClient:   cfg.HTTPClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pageSize:     cfg.PageSize,
		maxPages:     cfg.MaxPages,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		userAgent:    cfg.UserAgent,
		logger:       cfg.Logger,
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.maxPages <= 0 {
		c.maxPages = DefaultMaxPages
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = DefaultRetryBackoff
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// ListRequests fetches every page of resource matching q.
//
// A null element fails the whole listing, as does a server that keeps
// returning the same full page or exceeds the page limit.
func (c *HTTPClient) ListRequests(ctx context.Context, resource string, q *api.Query) ([]*api.Request, error) {
	var all []*api.Request
	var prevFirst string
	filter := q.Encode()

	for offset, pages := 0, 0; ; pages++ {
		if pages >= c.maxPages {
			return nil, fmt.Errorf("%w: %s exceeds %d pages", ErrPaging, resource, c.maxPages)
		}

		params := "limit=" + strconv.Itoa(c.pageSize) + "&offset=" + strconv.Itoa(offset)
		if filter != "" {
			params = filter + "&" + params
		}

		body, header, err := c.do(ctx, http.MethodGet, "/"+strings.Trim(resource, "/")+"?"+params, nil, true)
		if err != nil {
			return nil, err
		}

		var page []*api.Request
		if err := json.Unmarshal(body, &page); err != nil {
			c.logger.Error("Failed to decode request page",
				slog.String("resource", resource),
				slog.Int("offset", offset),
				slog.Any("error", err))
			return nil, fmt.Errorf("decode %s page: %w", resource, err)
		}
		for i, req := range page {
			if req == nil {
				c.logger.Error("Null element in request page",
					slog.String("resource", resource),
					slog.Int("offset", offset+i))
				return nil, fmt.Errorf("decode %s page: null element at offset %d", resource, offset+i)
			}
		}

		if len(page) > 0 && offset > 0 && page[0].ID == prevFirst {
			return nil, fmt.Errorf("%w: %s offset %d repeats the previous page", ErrPaging, resource, offset)
		}
		if len(page) > 0 {
			prevFirst = page[0].ID
		}

		all = append(all, page...)
		offset += len(page)

		if len(page) < c.pageSize {
			return all, nil
		}
		if total, ok := contentRangeTotal(header.Get("Content-Range")); ok && offset >= total {
			return all, nil
		}
	}
}

// ApproveByTemplate approves a pending request with an activation
// template.
func (c *HTTPClient) ApproveByTemplate(ctx context.Context, requestID, templateID string) (*api.Request, error) {
	if templateID == "" {
		return nil, fmt.Errorf("%w: empty template id", api.ErrInvalidApproval)
	}
	return c.approve(ctx, requestID, map[string]string{"template_id": templateID})
}

// ApproveByTile approves a pending request with a markdown activation
// tile.
func (c *HTTPClient) ApproveByTile(ctx context.Context, requestID, tile string) (*api.Request, error) {
	if tile == "" {
		return nil, fmt.Errorf("%w: empty tile", api.ErrInvalidApproval)
	}
	return c.approve(ctx, requestID, map[string]string{"activation_tile": tile})
}

func (c *HTTPClient) approve(ctx context.Context, requestID string, payload map[string]string) (*api.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	respBody, _, err := c.do(ctx, http.MethodPost, "/requests/"+url.PathEscape(requestID)+"/approve", body, false)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}

	var req api.Request
	if err := json.Unmarshal(respBody, &req); err != nil {
		return nil, fmt.Errorf("decode approved request: %w", err)
	}
	return &req, nil
}

// do performs one API call. Idempotent calls are retried on transport
// errors, 429 and 5xx; other calls only on 429, which the API returns
// before applying anything.
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, idempotent bool) ([]byte, http.Header, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.retryBackoff) * math.Pow(2, float64(attempt-1)))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, nil, ctx.Err()
			case <-timer.C:
			}
		}

		respBody, header, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			return respBody, header, nil
		}
		if !retryable(ctx, err, idempotent) {
			return nil, nil, err
		}

		lastErr = err
		c.logger.Warn("API call failed, retrying",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", c.maxRetries),
			slog.Any("error", err))
	}

	return nil, nil, lastErr
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body []byte) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	dur := time.Since(start)
	if err != nil {
		c.logger.Error("HTTP request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Duration("duration", dur),
			slog.Any("error", err))
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	c.logger.Debug("HTTP request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", dur))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, newAPIError(resp.StatusCode, respBody)
	}
	return respBody, resp.Header, nil
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: string(body)}
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		e.Code = doc.Get("error_code").String()
		for _, m := range doc.Get("errors").Array() {
			e.Messages = append(e.Messages, m.String())
		}
	}
	return e
}

func retryable(ctx context.Context, err error, idempotent bool) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return idempotent
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return idempotent && apiErr.StatusCode >= 500
}

// contentRangeTotal parses the total of "items 0-99/250".
func contentRangeTotal(header string) (int, bool) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return 0, false
	}
	total, err := strconv.Atoi(strings.TrimSpace(header[idx+1:]))
	if err != nil {
		return 0, false
	}
	return total, true
}
