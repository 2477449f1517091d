// Package analysisapi provides the HTTP client for the external statistical
// analysis service consumed by analysis, transformation and export executors.
package analysisapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks JSON to the analysis service. GET responses may be served from
// an optional cache; POST requests always hit the service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// Cache is the optional read-through cache for GET responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type Option func(*Client)

// WithCache enables response caching for GET requests.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Post sends a JSON body to the given path and decodes the JSON response.
func (c *Client) Post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// Get sends a GET request with query parameters. Responses are cached when a
// cache is configured.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	endpoint := c.endpoint(path)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, endpoint); ok {
			var result map[string]any
			if err := json.Unmarshal(cached, &result); err == nil {
				return result, nil
			}
			// Corrupt cache entry, fall through to the service.
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	result, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			c.cache.Set(ctx, endpoint, raw, c.cacheTTL)
		}
	}

	return result, nil
}

func (c *Client) do(req *http.Request) (map[string]any, error) {
	c.logger.Debug("analysis API request", "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis API request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("analysis API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis API response: %w", err)
	}

	return result, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}
