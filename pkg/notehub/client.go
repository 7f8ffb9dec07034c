package notehub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// DefaultBaseURL is the public Notehub API endpoint
const DefaultBaseURL = "https://api.notefile.net"

// Cache stores raw GET responses between requests.
// Incr backs the generation counter that retires entries written before a mutation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Incr(ctx context.Context, key string) (int64, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// Client handles Notehub API communication for one project
type Client struct {
	httpClient        *http.Client
	baseURL           string
	projectUID        string
	authToken         string
	historicalMinutes int
	limiter           *rate.Limiter
	cache             Cache
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a new Notehub API client
func NewClient(baseURL, projectUID, authToken string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:           strings.TrimRight(baseURL, "/"),
		projectUID:        projectUID,
		authToken:         authToken,
		historicalMinutes: 4320,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets a custom timeout for the HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHistoricalMinutes bounds how far back event queries reach
func WithHistoricalMinutes(minutes int) ClientOption {
	return func(c *Client) {
		if minutes > 0 {
			c.historicalMinutes = minutes
		}
	}
}

// WithRateLimit caps the request rate sent to Notehub
func WithRateLimit(requestsPerSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		}
	}
}

// WithCache enables caching of GET responses
func WithCache(cache Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// ProjectUID returns the project this client talks to
func (c *Client) ProjectUID() string {
	return c.projectUID
}

// HistoricalMinutes returns the recency window of event queries
func (c *Client) HistoricalMinutes() int {
	return c.historicalMinutes
}

// APIError is an error response returned by Notehub
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "notehub: " + e.Message
	}
	return fmt.Sprintf("notehub: status %d: %s", e.StatusCode, e.Message)
}

// errorResponse is the error body shape Notehub uses
type errorResponse struct {
	Err  string `json:"err"`
	Code int    `json:"code"`
}

// classify maps a Notehub response status to the error taxonomy
func classify(apiErr *APIError) error {
	switch {
	case apiErr.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", models.ErrNotFound, apiErr)
	case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
		return fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, apiErr)
	default:
		return fmt.Errorf("%w: %w", models.ErrRemoteRejected, apiErr)
	}
}

func (c *Client) cachePrefix() string {
	return "notehub:" + c.projectUID + ":"
}

func (c *Client) generationKey() string {
	return "notehub-generation:" + c.projectUID
}

// cacheKey returns the key of a response under the current generation.
// ok is false when the generation cannot be read and the cache must be bypassed.
func (c *Client) cacheKey(ctx context.Context, path string) (string, bool) {
	generation, found, err := c.cache.Get(ctx, c.generationKey())
	if err != nil {
		log.Printf("⚠ Failed to read notehub cache generation: %v", err)
		return "", false
	}
	if !found {
		generation = []byte("0")
	}
	return c.cachePrefix() + string(generation) + ":" + path, true
}

// invalidate retires every cached response of the project.
// Responses fetched before the call land under the old generation and are never read again.
func (c *Client) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if _, err := c.cache.Incr(ctx, c.generationKey()); err != nil {
		log.Printf("⚠ Failed to bump notehub cache generation: %v", err)
	}
	if err := c.cache.DeletePrefix(ctx, c.cachePrefix()); err != nil {
		log.Printf("⚠ Failed to invalidate notehub cache: %v", err)
	}
}

// get performs a GET request, answering from the cache when possible
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	var key string
	if c.cache != nil {
		if k, ok := c.cacheKey(ctx, path); ok {
			key = k
			if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
				if err := json.Unmarshal(data, out); err == nil {
					return nil
				}
			}
		}
	}

	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to parse response of %s: %w", models.ErrUpstreamUnavailable, path, err)
	}

	if key != "" {
		if err := c.cache.Set(ctx, key, data); err != nil {
			log.Printf("⚠ Failed to cache notehub response for %s: %v", path, err)
		}
	}

	return nil
}

// send performs a mutating request and invalidates the cache on success
func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	data, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	c.invalidate(ctx)

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to parse response of %s: %w", models.ErrUpstreamUnavailable, path, err)
	}
	return nil
}

// doRequest performs an HTTP request and handles common errors
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", models.ErrUpstreamUnavailable, err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Session-Token", c.authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observeRequest(method, start, resp, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", models.ErrUpstreamUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response of %s: %w", models.ErrUpstreamUnavailable, path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var errResp errorResponse
		if err := json.Unmarshal(data, &errResp); err == nil && errResp.Err != "" {
			apiErr.Message = errResp.Err
		}
		return nil, classify(apiErr)
	}

	return data, nil
}

// IsNotFound reports whether err means the entity does not exist upstream
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
