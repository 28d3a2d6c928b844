// Package directions wraps the external directions provider. The engine
// treats any transport failure or non-OK status identically: callers get
// a *ProviderError and fall back to degraded routing.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rideline/navigator/internal/lib/geo"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// ProviderError covers timeouts, transport failures and non-OK statuses
// from the directions provider.
type ProviderError struct {
	Status string // provider status field, or "" for transport errors
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("directions provider returned status %q", e.Status)
	}
	return fmt.Sprintf("directions provider request failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Client calls the Directions API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTimeout overrides the default 10s request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a directions client
func NewClient(apiKey string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches driving directions for origin -> waypoints -> destination.
// A non-2xx response, a non-OK status field, or any transport error is
// returned as a *ProviderError.
func (c *Client) Get(ctx context.Context, origin, destination geo.Coordinate, waypoints []geo.Coordinate) (*Response, error) {
	params := url.Values{}
	params.Set("origin", formatCoordinate(origin))
	params.Set("destination", formatCoordinate(destination))
	params.Set("mode", "driving")
	params.Set("key", c.apiKey)

	if len(waypoints) > 0 {
		parts := make([]string, len(waypoints))
		for i, wp := range waypoints {
			parts[i] = formatCoordinate(wp)
		}
		params.Set("waypoints", strings.Join(parts, "|"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/directions/json?"+params.Encode(), nil)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ProviderError{Err: fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))}
	}

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if !response.OK() {
		c.logger.Warn("directions provider returned non-OK status",
			zap.String("status", response.Status),
			zap.String("error_message", response.ErrorMessage))
		return nil, &ProviderError{Status: response.Status}
	}

	return &response, nil
}

func formatCoordinate(c geo.Coordinate) string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}
