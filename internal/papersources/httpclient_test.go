package papersources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/metasearch-service/internal/domain"
)

func newFastClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 100
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	return NewHTTPClient(cfg)
}

func TestNewHTTPClient(t *testing.T) {
	t.Run("applies default values", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{})

		require.NotNil(t, client)
		assert.Equal(t, 30*time.Second, client.client.Timeout)
		assert.Equal(t, DefaultUserAgent, client.config.UserAgent)
		assert.Equal(t, 2, client.config.MaxRetries)
		assert.Equal(t, time.Second, client.config.RetryDelay)
		assert.Equal(t, float64(10), client.config.RateLimit)
		assert.Equal(t, 10, client.config.BurstSize)
	})

	t.Run("keeps custom config", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{
			Timeout:    5 * time.Second,
			MaxRetries: 1,
			UserAgent:  "TestAgent/1.0",
		})
		assert.Equal(t, 5*time.Second, client.client.Timeout)
		assert.Equal(t, 1, client.config.MaxRetries)
		assert.Equal(t, "TestAgent/1.0", client.config.UserAgent)
	})
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("sets User-Agent and prefixed API key", func(t *testing.T) {
		var gotUA, gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newFastClient(HTTPClientConfig{
			UserAgent:    "TestAgent/2.0",
			APIKey:       "secret",
			APIKeyHeader: "Authorization",
			APIKeyPrefix: "Bearer ",
		})

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "TestAgent/2.0", gotUA)
		assert.Equal(t, "Bearer secret", gotAuth)
	})

	t.Run("retries on 5xx then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newFastClient(HTTPClientConfig{MaxRetries: 3})
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("429 exhausts retries and halves the rate", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := newFastClient(HTTPClientConfig{MaxRetries: 1, RateLimit: 100})
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		_, err = client.Do(req)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
		assert.Equal(t, int32(2), calls.Load())
		assert.InDelta(t, 25.0, client.RateLimiter().Rate(), 0.001)
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := newFastClient(HTTPClientConfig{})
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("context canceled during retry wait", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newFastClient(HTTPClientConfig{RetryDelay: time.Hour})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		_, err = client.Do(req)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHTTPClient_GetJSON(t *testing.T) {
	t.Run("decodes body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			w.Write([]byte(`{"name":"ok"}`))
		}))
		defer server.Close()

		var out struct {
			Name string `json:"name"`
		}
		err := newFastClient(HTTPClientConfig{}).GetJSON(context.Background(), "Test", server.URL, &out)
		require.NoError(t, err)
		assert.Equal(t, "ok", out.Name)
	})

	t.Run("404 maps to not found", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		var out map[string]any
		err := newFastClient(HTTPClientConfig{}).GetJSON(context.Background(), "Test", server.URL, &out)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("other status maps to external API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("quota"))
		}))
		defer server.Close()

		var out map[string]any
		err := newFastClient(HTTPClientConfig{}).GetJSON(context.Background(), "Test", server.URL, &out)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Equal(t, "quota", apiErr.Message)
	})

	t.Run("malformed body is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer server.Close()

		var out map[string]any
		err := newFastClient(HTTPClientConfig{}).GetJSON(context.Background(), "Test", server.URL, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding Test response")
	})
}

func TestHTTPClient_GetXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<root><item>a</item><item>b</item></root>`))
	}))
	defer server.Close()

	var out struct {
		Items []string `xml:"item"`
	}
	err := newFastClient(HTTPClientConfig{}).GetXML(context.Background(), "Test", server.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Items)
}

func TestHTTPClient_getRetryDelay(t *testing.T) {
	client := NewHTTPClient(HTTPClientConfig{RetryDelay: 2 * time.Second})

	tests := []struct {
		name       string
		retryAfter string
		attempt    int
		expected   time.Duration
	}{
		{name: "no header", expected: 2 * time.Second},
		{name: "no header, backoff doubles", attempt: 2, expected: 8 * time.Second},
		{name: "backoff capped", attempt: 6, expected: maxRetryWait},
		{name: "seconds", retryAfter: "5", expected: 5 * time.Second},
		{name: "seconds capped", retryAfter: "3600", expected: maxRetryWait},
		{name: "zero seconds", retryAfter: "0", attempt: 1, expected: 4 * time.Second},
		{name: "garbage", retryAfter: "soon", expected: 2 * time.Second},
		{name: "date in the past", retryAfter: "Mon, 02 Jan 2006 15:04:05 GMT", expected: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.retryAfter != "" {
				resp.Header.Set("Retry-After", tt.retryAfter)
			}
			assert.Equal(t, tt.expected, client.getRetryDelay(resp, tt.attempt))
		})
	}
}

func TestHTTPClient_RelaxesAfterSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newFastClient(HTTPClientConfig{MaxRetries: 1, RateLimit: 100})
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	// Halved to 50 by the 429, then one step of 10 back up.
	assert.InDelta(t, 60.0, client.RateLimiter().Rate(), 0.001)
}

func TestHTTPClient_shouldRetry(t *testing.T) {
	client := NewHTTPClient(HTTPClientConfig{})
	assert.True(t, client.shouldRetry(http.StatusTooManyRequests))
	assert.True(t, client.shouldRetry(http.StatusInternalServerError))
	assert.True(t, client.shouldRetry(http.StatusGatewayTimeout))
	assert.False(t, client.shouldRetry(http.StatusOK))
	assert.False(t, client.shouldRetry(http.StatusNotFound))
}
