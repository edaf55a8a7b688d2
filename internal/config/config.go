// Package config provides configuration management for the metasearch service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/helixir/metasearch-service/internal/domain"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "METASEARCH"

// Config holds all configuration for the metasearch service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Tracing contains OpenTelemetry distributed tracing settings.
	Tracing TracingConfig `mapstructure:"tracing"`
	// CORS contains cross-origin settings for browser clients.
	CORS CORSConfig `mapstructure:"cors"`
	// Cache contains result cache and in-flight collapsing settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Fetcher contains orchestrator settings.
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	// Breaker contains per-provider circuit breaker settings.
	Breaker BreakerConfig `mapstructure:"breaker"`
	// PaperSources contains paper source API configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing a non-streaming response.
	// Streaming responses clear their write deadline.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, discard).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	// Enabled enables distributed tracing.
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP gRPC collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint"`
	// Insecure disables TLS to the collector.
	Insecure bool `mapstructure:"insecure"`
	// ServiceName is the service name for traces.
	ServiceName string `mapstructure:"service_name"`
	// Environment is reported as deployment.environment.
	Environment string `mapstructure:"environment"`
	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API. "*" allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int `mapstructure:"max_age"`
}

// CacheConfig holds cache configuration.
type CacheConfig struct {
	// Enabled toggles the search result cache.
	Enabled bool `mapstructure:"enabled"`
	// SearchTTL is the lifetime of cached search results.
	SearchTTL time.Duration `mapstructure:"search_ttl"`
	// LookupTTL is the lifetime of cached DOI resolutions.
	LookupTTL time.Duration `mapstructure:"lookup_ttl"`
	// SweepInterval is how often expired entries are removed.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// InFlightMaxAge is how long an in-flight handle may live before it is forgotten.
	InFlightMaxAge time.Duration `mapstructure:"inflight_max_age"`
}

// FetcherConfig holds orchestrator configuration.
type FetcherConfig struct {
	// MaxParallelRequests bounds concurrent adapter calls in batch mode.
	MaxParallelRequests int `mapstructure:"max_parallel_requests"`
	// AdapterTimeout bounds a single adapter call.
	AdapterTimeout time.Duration `mapstructure:"adapter_timeout"`
	// DefaultLimit is used when a query carries no limit.
	DefaultLimit int `mapstructure:"default_limit"`
	// MaxLimit caps the limit of any query.
	MaxLimit int `mapstructure:"max_limit"`
}

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	// Enabled turns the breakers on.
	Enabled bool `mapstructure:"enabled"`
	// ConsecutiveThreshold is consecutive failures before the circuit opens.
	ConsecutiveThreshold uint32 `mapstructure:"consecutive_threshold"`
	// FailureRatio is the failure rate (0.0-1.0) before the circuit opens.
	FailureRatio float64 `mapstructure:"failure_ratio"`
	// MinRequests is the minimum number of calls before FailureRatio applies.
	MinRequests uint32 `mapstructure:"min_requests"`
	// Interval resets the closed-state counters.
	Interval time.Duration `mapstructure:"interval"`
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration `mapstructure:"cooldown"`
	// HalfOpenRequests is the number of probe requests in half-open state.
	HalfOpenRequests uint32 `mapstructure:"half_open_requests"`
}

// PaperSourcesConfig holds configuration for all paper source APIs.
type PaperSourcesConfig struct {
	// Email is the contact address sent to providers with a polite pool.
	Email string `mapstructure:"email"`
	// Order is the fan-out order. Providers not listed are appended in
	// their default order.
	Order []string `mapstructure:"order"`

	CrossRef        PaperSourceConfig `mapstructure:"crossref"`
	PubMed          PaperSourceConfig `mapstructure:"pubmed"`
	ArXiv           PaperSourceConfig `mapstructure:"arxiv"`
	SemanticScholar PaperSourceConfig `mapstructure:"semantic_scholar"`
	OpenAlex        PaperSourceConfig `mapstructure:"openalex"`
	CORE            PaperSourceConfig `mapstructure:"core"`
	EuropePMC       PaperSourceConfig `mapstructure:"europepmc"`
	DOAJ            PaperSourceConfig `mapstructure:"doaj"`
	BioRxiv         PaperSourceConfig `mapstructure:"biorxiv"`
	DataCite        PaperSourceConfig `mapstructure:"datacite"`
}

// PaperSourceConfig holds configuration for a single paper source API.
type PaperSourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. METASEARCH_PAPER_SOURCES_CORE_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the default number of results per query.
	MaxResults int `mapstructure:"max_results"`
}

// Source returns the settings of provider p.
func (c *PaperSourcesConfig) Source(p domain.Provider) PaperSourceConfig {
	switch p {
	case domain.ProviderCrossRef:
		return c.CrossRef
	case domain.ProviderPubMed:
		return c.PubMed
	case domain.ProviderArXiv:
		return c.ArXiv
	case domain.ProviderSemanticScholar:
		return c.SemanticScholar
	case domain.ProviderOpenAlex:
		return c.OpenAlex
	case domain.ProviderCORE:
		return c.CORE
	case domain.ProviderEuropePMC:
		return c.EuropePMC
	case domain.ProviderDOAJ:
		return c.DOAJ
	case domain.ProviderBioRxiv:
		return c.BioRxiv
	case domain.ProviderDataCite:
		return c.DataCite
	default:
		return PaperSourceConfig{}
	}
}

// FanOutOrder returns every provider, with the configured Order first.
func (c *PaperSourcesConfig) FanOutOrder() ([]domain.Provider, error) {
	seen := make(map[domain.Provider]bool)
	order := make([]domain.Provider, 0, len(domain.AllProviders()))
	for _, name := range c.Order {
		p, err := domain.ParseProvider(name)
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			order = append(order, p)
		}
	}
	for _, p := range domain.AllProviders() {
		if !seen[p] {
			order = append(order, p)
		}
	}
	return order, nil
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/metasearch-service")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found is OK, we'll use env vars and defaults
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.PaperSources.PubMed.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_PUBMED_API_KEY")
	cfg.PaperSources.SemanticScholar.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.PaperSources.CORE.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_CORE_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "metasearch")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "metasearch-service")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sample_rate", 0.1)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.max_age", 300)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.search_ttl", "30m")
	v.SetDefault("cache.lookup_ttl", "24h")
	v.SetDefault("cache.sweep_interval", "5m")
	v.SetDefault("cache.inflight_max_age", "60s")

	// Fetcher defaults
	v.SetDefault("fetcher.max_parallel_requests", 5)
	v.SetDefault("fetcher.adapter_timeout", "20s")
	v.SetDefault("fetcher.default_limit", domain.DefaultLimit)
	v.SetDefault("fetcher.max_limit", domain.MaxLimit)

	// Circuit breaker defaults
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.consecutive_threshold", 5)
	v.SetDefault("breaker.failure_ratio", 0.8)
	v.SetDefault("breaker.min_requests", 10)
	v.SetDefault("breaker.interval", "2m")
	v.SetDefault("breaker.cooldown", "60s")
	v.SetDefault("breaker.half_open_requests", 1)

	// Paper sources defaults
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("paper_sources.email", "")
	v.SetDefault("paper_sources.order", []string{})
	sourceDefaults := []struct {
		key       string
		baseURL   string
		rateLimit float64
		enabled   bool
	}{
		{"crossref", "https://api.crossref.org", 10.0, true},
		{"pubmed", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils", 3.0, true}, // NCBI allows 3 req/sec without API key
		{"arxiv", "https://export.arxiv.org/api", 1.0, true},                   // arXiv asks for one request every few seconds
		{"semantic_scholar", "https://api.semanticscholar.org/graph/v1", 1.0, true},
		{"openalex", "https://api.openalex.org", 10.0, true},
		{"core", "https://api.core.ac.uk/v3", 1.0, false}, // requires API key
		{"europepmc", "https://www.ebi.ac.uk/europepmc/webservices/rest", 10.0, true},
		{"doaj", "https://doaj.org/api", 2.0, true},
		{"biorxiv", "https://api.biorxiv.org", 5.0, true},
		{"datacite", "https://api.datacite.org", 5.0, true},
	}
	for _, s := range sourceDefaults {
		prefix := "paper_sources." + s.key
		v.SetDefault(prefix+".enabled", s.enabled)
		v.SetDefault(prefix+".base_url", s.baseURL)
		v.SetDefault(prefix+".timeout", "15s")
		v.SetDefault(prefix+".rate_limit", s.rateLimit)
		v.SetDefault(prefix+".max_results", 0)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate tracing config
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1")
	}

	// Validate cache config
	if c.Cache.SearchTTL < 0 || c.Cache.LookupTTL < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}

	// Validate fetcher config
	if c.Fetcher.MaxParallelRequests <= 0 {
		return fmt.Errorf("fetcher max_parallel_requests must be positive")
	}
	if c.Fetcher.AdapterTimeout <= 0 {
		return fmt.Errorf("fetcher adapter_timeout must be positive")
	}
	if c.Fetcher.MaxLimit <= 0 {
		return fmt.Errorf("fetcher max_limit must be positive")
	}
	if c.Fetcher.DefaultLimit <= 0 || c.Fetcher.DefaultLimit > c.Fetcher.MaxLimit {
		return fmt.Errorf("fetcher default_limit (%d) must be between 1 and max_limit (%d)", c.Fetcher.DefaultLimit, c.Fetcher.MaxLimit)
	}

	// Validate breaker config
	if c.Breaker.FailureRatio < 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker failure_ratio must be between 0 and 1")
	}

	if _, err := c.PaperSources.FanOutOrder(); err != nil {
		return fmt.Errorf("paper_sources.order: %w", err)
	}

	// CORE rejects anonymous requests.
	if c.PaperSources.CORE.Enabled && c.PaperSources.CORE.APIKey == "" {
		return fmt.Errorf("paper source %q requires %s_PAPER_SOURCES_CORE_API_KEY to be set", domain.ProviderCORE, EnvPrefix)
	}

	return nil
}
