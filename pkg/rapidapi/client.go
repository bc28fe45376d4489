// Package rapidapi is a minimal HTTP client for the RapidAPI StockX proxy.
package rapidapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the RapidAPI proxy base URL.
	DefaultBaseURL = "https://stockx1.p.rapidapi.com"
)

// Client calls the RapidAPI StockX proxy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	host       string
}

// NewClient constructs a new RapidAPI client with sane defaults.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	host := strings.TrimPrefix(baseURL, "https://")
	host = strings.TrimPrefix(host, "http://")
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		host:       host,
	}
}

// Search queries the proxy's search endpoint.
func (c *Client) Search(ctx context.Context, query, category string, limit int) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	if category != "" {
		params.Set("category", category)
	}
	params.Set("limit", strconv.Itoa(limit))

	var resp SearchResponse
	if err := c.doGet(ctx, "/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping probes the proxy's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.doGet(ctx, "/ping", nil)
}

// StatusError is a non-2xx response from the proxy.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rapidapi returned status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) doGet(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

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
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
