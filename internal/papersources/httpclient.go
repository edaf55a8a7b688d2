package papersources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/helixir/metasearch-service/internal/domain"
)

const (
	// maxResponseBytes bounds decoded provider payloads.
	maxResponseBytes = 10 << 20

	// maxErrorBodyBytes bounds the body excerpt kept in ExternalAPIError.
	maxErrorBodyBytes = 4 << 10

	// maxRetryWait caps both Retry-After and the exponential backoff, so a
	// provider cannot park an adapter call beyond its own timeout budget.
	maxRetryWait = 30 * time.Second

	// DefaultUserAgent identifies the service to providers.
	DefaultUserAgent = "Helixir-MetasearchService/1.0"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key").
	APIKeyHeader string

	// APIKeyPrefix is prepended to APIKey, e.g. "Bearer " for CORE.
	APIKeyPrefix string

	// Transport overrides the underlying round tripper. Nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// HTTPClient wraps http.Client with rate limiting and retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
// The client applies rate limiting before each request and automatically
// retries on 429 (Too Many Requests) and 5xx server errors.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// Do sends req through the rate limiter, retrying transport errors and
// retryable statuses (429, 5xx) up to MaxRetries times. A 429 throttles
// the limiter and honours Retry-After; any answer below 400 relaxes it.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKeyPrefix+c.config.APIKey)
	}

	attempts := c.config.MaxRetries + 1
	for attempt := 0; ; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		var (
			delay  time.Duration
			failed error
		)
		resp, err := c.client.Do(req)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			failed = fmt.Errorf("request failed: %w", err)
			delay = c.backoff(attempt)
		case c.shouldRetry(resp.StatusCode):
			delay = c.getRetryDelay(resp, attempt)
			failed = fmt.Errorf("retries exhausted after %d attempts, last status: %d", attempts, resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests {
				c.rateLimiter.Throttle()
				failed = fmt.Errorf("retries exhausted after %d attempts: %w", attempts, domain.ErrRateLimited)
			}
			drain(resp)
		default:
			if resp.StatusCode < http.StatusBadRequest {
				c.rateLimiter.Relax()
			}
			return resp, nil
		}

		if attempt+1 >= attempts {
			return nil, failed
		}
		if err := c.waitForRetry(req.Context(), delay); err != nil {
			return nil, err
		}
		if err := c.resetRequestBody(req); err != nil {
			return nil, fmt.Errorf("cannot retry request: %w", err)
		}
	}
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// GetJSON performs a GET against rawURL and decodes the JSON body into v.
// A 404 is reported as a domain.NotFoundError, any other non-200 status as
// a domain.ExternalAPIError attributed to source.
func (c *HTTPClient) GetJSON(ctx context.Context, source, rawURL string, v any) error {
	body, err := c.get(ctx, source, rawURL, "application/json")
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(io.LimitReader(body, maxResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s response: %w", source, err)
	}
	return nil
}

// GetXML performs a GET against rawURL and decodes the XML body into v.
func (c *HTTPClient) GetXML(ctx context.Context, source, rawURL string, v any) error {
	body, err := c.get(ctx, source, rawURL, "application/xml")
	if err != nil {
		return err
	}
	defer body.Close()

	if err := xml.NewDecoder(io.LimitReader(body, maxResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s response: %w", source, err)
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, source, rawURL, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		return nil, domain.NewNotFoundError(source, rawURL)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		return nil, domain.NewExternalAPIError(source, resp.StatusCode, string(msg), nil)
	}
}

// RateLimiter exposes the client's limiter for inspection.
func (c *HTTPClient) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// shouldRetry returns true if the status code indicates we should retry.
func (c *HTTPClient) shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// getRetryDelay honours a Retry-After header (seconds or HTTP date) and
// otherwise falls back to exponential backoff. The result never exceeds
// maxRetryWait.
func (c *HTTPClient) getRetryDelay(resp *http.Response, attempt int) time.Duration {
	var delay time.Duration
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.ParseInt(v, 10, 64); err == nil && seconds > 0 {
			delay = time.Duration(seconds) * time.Second
		} else if t, err := http.ParseTime(v); err == nil {
			delay = time.Until(t)
		}
	}
	if delay <= 0 {
		return c.backoff(attempt)
	}
	return min(delay, maxRetryWait)
}

// backoff is RetryDelay doubled per attempt, capped at maxRetryWait.
func (c *HTTPClient) backoff(attempt int) time.Duration {
	if attempt > 10 {
		return maxRetryWait
	}
	return min(c.config.RetryDelay<<attempt, maxRetryWait)
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
