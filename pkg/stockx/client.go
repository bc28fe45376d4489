// Package stockx is a minimal HTTP client for the official StockX catalog API.
package stockx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the official StockX gateway base URL.
	DefaultBaseURL = "https://gateway.stockx.com/api/v3"
)

// Client calls the official StockX catalog API. Requests are rate limited
// client-side; the upstream enforces its own limits with 429 responses.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	userAgent  string
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	APIKey    string
	UserAgent string
}

// NewClient constructs a new StockX client with sane defaults.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "RetailRadar/1.0.0"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		// 2 req/s with a small burst keeps us under the gateway's limit.
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		userAgent: userAgent,
	}
}

// SearchCatalog runs one page of a catalog search. An empty cursor requests
// the first page.
func (c *Client) SearchCatalog(ctx context.Context, query, category string, limit int, cursor string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	if category != "" {
		params.Set("productCategory", category)
	}
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp SearchResponse
	if err := c.doGet(ctx, "/catalog/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health probes the catalog health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.doGet(ctx, "/catalog/health", nil)
}

// StatusError is a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stockx api returned status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) doGet(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
