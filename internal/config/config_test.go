package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/metasearch-service/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "metasearch", cfg.Metrics.Namespace)

	// Tracing defaults
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "metasearch-service", cfg.Tracing.ServiceName)
	assert.Equal(t, 0.1, cfg.Tracing.SampleRate)

	// Cache defaults
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Cache.SearchTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.LookupTTL)
	assert.Equal(t, 60*time.Second, cfg.Cache.InFlightMaxAge)

	// Fetcher defaults
	assert.Equal(t, 5, cfg.Fetcher.MaxParallelRequests)
	assert.Equal(t, 20*time.Second, cfg.Fetcher.AdapterTimeout)
	assert.Equal(t, domain.DefaultLimit, cfg.Fetcher.DefaultLimit)
	assert.Equal(t, domain.MaxLimit, cfg.Fetcher.MaxLimit)

	// Breaker defaults
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(5), cfg.Breaker.ConsecutiveThreshold)

	// Paper sources defaults
	assert.True(t, cfg.PaperSources.CrossRef.Enabled)
	assert.True(t, cfg.PaperSources.PubMed.Enabled)
	assert.True(t, cfg.PaperSources.ArXiv.Enabled)
	assert.True(t, cfg.PaperSources.SemanticScholar.Enabled)
	assert.True(t, cfg.PaperSources.OpenAlex.Enabled)
	assert.False(t, cfg.PaperSources.CORE.Enabled) // Requires API key
	assert.True(t, cfg.PaperSources.EuropePMC.Enabled)
	assert.True(t, cfg.PaperSources.DOAJ.Enabled)
	assert.True(t, cfg.PaperSources.BioRxiv.Enabled)
	assert.True(t, cfg.PaperSources.DataCite.Enabled)
	assert.Equal(t, "https://api.crossref.org", cfg.PaperSources.CrossRef.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.PaperSources.CrossRef.Timeout)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables with METASEARCH prefix
	t.Setenv("METASEARCH_SERVER_HTTP_PORT", "8888")
	t.Setenv("METASEARCH_LOGGING_LEVEL", "debug")
	t.Setenv("METASEARCH_FETCHER_MAX_PARALLEL_REQUESTS", "3")
	t.Setenv("METASEARCH_CACHE_SEARCH_TTL", "5m")
	t.Setenv("METASEARCH_PAPER_SOURCES_ARXIV_ENABLED", "false")
	t.Setenv("METASEARCH_PAPER_SOURCES_EMAIL", "ops@example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Fetcher.MaxParallelRequests)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SearchTTL)
	assert.False(t, cfg.PaperSources.ArXiv.Enabled)
	assert.Equal(t, "ops@example.org", cfg.PaperSources.Email)
}

func TestLoadFile(t *testing.T) {
	clearEnvVars(t)

	path := filepath.Join(t.TempDir(), "metasearch.yaml")
	content := `
server:
  http_port: 7070
fetcher:
  max_parallel_requests: 2
paper_sources:
  order: [openalex, crossref]
  doaj:
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, 2, cfg.Fetcher.MaxParallelRequests)
	assert.False(t, cfg.PaperSources.DOAJ.Enabled)

	order, err := cfg.PaperSources.FanOutOrder()
	require.NoError(t, err)
	require.Len(t, order, len(domain.AllProviders()))
	assert.Equal(t, domain.ProviderOpenAlex, order[0])
	assert.Equal(t, domain.ProviderCrossRef, order[1])
	assert.Equal(t, domain.ProviderPubMed, order[2])
}

func TestLoadFile_Missing(t *testing.T) {
	clearEnvVars(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name: "HTTP port zero",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 0
			},
			expectedErr: "invalid HTTP port: 0",
		},
		{
			name: "HTTP port too high",
			modifyFunc: func(c *Config) {
				c.Server.HTTPPort = 70000
			},
			expectedErr: "invalid HTTP port: 70000",
		},
		{
			name: "metrics port negative",
			modifyFunc: func(c *Config) {
				c.Server.MetricsPort = -1
			},
			expectedErr: "invalid metrics port: -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error", "INFO"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), level)
	}

	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidate_Tracing(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = ""
	require.ErrorContains(t, cfg.Validate(), "tracing endpoint is required")

	cfg = validConfig()
	cfg.Tracing.SampleRate = 1.5
	require.ErrorContains(t, cfg.Validate(), "sample rate")
}

func TestValidate_Fetcher(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name:        "no parallelism",
			modifyFunc:  func(c *Config) { c.Fetcher.MaxParallelRequests = 0 },
			expectedErr: "max_parallel_requests",
		},
		{
			name:        "no adapter timeout",
			modifyFunc:  func(c *Config) { c.Fetcher.AdapterTimeout = 0 },
			expectedErr: "adapter_timeout",
		},
		{
			name:        "default above max",
			modifyFunc:  func(c *Config) { c.Fetcher.DefaultLimit = 500 },
			expectedErr: "default_limit",
		},
		{
			name:        "unknown provider in order",
			modifyFunc:  func(c *Config) { c.PaperSources.Order = []string{"scopus"} },
			expectedErr: "paper_sources.order",
		},
		{
			name:        "breaker ratio",
			modifyFunc:  func(c *Config) { c.Breaker.FailureRatio = 2 },
			expectedErr: "failure_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)
			require.ErrorContains(t, cfg.Validate(), tt.expectedErr)
		})
	}
}

func TestLoad_APIKeysFromEnvOnly(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("METASEARCH_PAPER_SOURCES_CORE_API_KEY", "core-key")
	t.Setenv("METASEARCH_PAPER_SOURCES_CORE_ENABLED", "true")
	t.Setenv("METASEARCH_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY", "s2-key")
	t.Setenv("METASEARCH_PAPER_SOURCES_PUBMED_API_KEY", "ncbi-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.PaperSources.CORE.Enabled)
	assert.Equal(t, "core-key", cfg.PaperSources.CORE.APIKey)
	assert.Equal(t, "s2-key", cfg.PaperSources.SemanticScholar.APIKey)
	assert.Equal(t, "ncbi-key", cfg.PaperSources.PubMed.APIKey)
}

func TestValidate_COREWithoutKey(t *testing.T) {
	cfg := validConfig()
	cfg.PaperSources.CORE.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METASEARCH_PAPER_SOURCES_CORE_API_KEY")
}

func TestPaperSourcesConfig_Source(t *testing.T) {
	cfg := validConfig()
	cfg.PaperSources.DataCite.BaseURL = "https://datacite.test"

	for _, p := range domain.AllProviders() {
		assert.NotPanics(t, func() { cfg.PaperSources.Source(p) }, p)
	}
	assert.Equal(t, "https://datacite.test", cfg.PaperSources.Source(domain.ProviderDataCite).BaseURL)
	assert.Equal(t, PaperSourceConfig{}, cfg.PaperSources.Source("unknown"))
}

func TestServerConfig_Addresses(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 8080, MetricsPort: 9091}
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}

// clearEnvVars removes all METASEARCH_ prefixed environment variables
// for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    8080,
			MetricsPort: 9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 0.1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			SearchTTL: 30 * time.Minute,
			LookupTTL: 24 * time.Hour,
		},
		Fetcher: FetcherConfig{
			MaxParallelRequests: 5,
			AdapterTimeout:      20 * time.Second,
			DefaultLimit:        20,
			MaxLimit:            100,
		},
		Breaker: BreakerConfig{
			FailureRatio: 0.8,
		},
	}
}
