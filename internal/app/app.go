// Package app assembles the search pipeline from configuration. It is
// shared by the HTTP server and the command-line client.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/helixir/metasearch-service/internal/cache"
	"github.com/helixir/metasearch-service/internal/config"
	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/fetcher"
	"github.com/helixir/metasearch-service/internal/observability"
	"github.com/helixir/metasearch-service/internal/papersources"
	"github.com/helixir/metasearch-service/internal/providers"
	"github.com/helixir/metasearch-service/internal/resilience"
)

// App holds the wired pipeline.
type App struct {
	Registry    *papersources.Registry
	Breakers    *resilience.BreakerRegistry
	Metrics     *observability.Metrics
	SearchCache *cache.TTLCache[*fetcher.Result]
	LookupCache *cache.TTLCache[*domain.Source]
	InFlight    *cache.InFlight[*fetcher.Result]
	Fetcher     *fetcher.SourceFetcher

	cfg    *config.Config
	logger zerolog.Logger
}

// New builds the pipeline. Metrics register on reg.
func New(cfg *config.Config, reg prometheus.Registerer, logger zerolog.Logger) (*App, error) {
	registry, err := providers.NewRegistry(cfg.PaperSources, logger)
	if err != nil {
		return nil, fmt.Errorf("build paper source registry: %w", err)
	}

	namespace := cfg.Metrics.Namespace
	if namespace == "" {
		namespace = "metasearch"
	}
	metrics := observability.NewMetricsWithRegistry(namespace, reg)

	breakers := resilience.NewBreakerRegistry(resilience.BreakerConfig{
		Enabled:              cfg.Breaker.Enabled,
		ConsecutiveThreshold: cfg.Breaker.ConsecutiveThreshold,
		FailureRatio:         cfg.Breaker.FailureRatio,
		MinRequests:          cfg.Breaker.MinRequests,
		Interval:             cfg.Breaker.Interval,
		Cooldown:             cfg.Breaker.Cooldown,
		HalfOpenRequests:     cfg.Breaker.HalfOpenRequests,
	}, logger)
	breakers.OnStateChange(func(p domain.Provider, to gobreaker.State) {
		metrics.SetCircuitState(string(p), circuitValue(to))
	})

	a := &App{
		Registry:    registry,
		Breakers:    breakers,
		Metrics:     metrics,
		SearchCache: cache.NewTTLCache[*fetcher.Result](cfg.Cache.SearchTTL),
		LookupCache: cache.NewTTLCache[*domain.Source](cfg.Cache.LookupTTL),
		InFlight:    cache.NewInFlight[*fetcher.Result](),
		cfg:         cfg,
		logger:      logger,
	}

	a.Fetcher = fetcher.New(fetcher.Deps{
		Registry:    registry,
		SearchCache: a.SearchCache,
		LookupCache: a.LookupCache,
		InFlight:    a.InFlight,
		Breakers:    breakers,
		Metrics:     metrics,
		Logger:      logger,
		Tracer:      observability.Tracer(),
	}, fetcher.Options{
		MaxParallelRequests: cfg.Fetcher.MaxParallelRequests,
		UseCache:            cfg.Cache.Enabled,
		AdapterTimeout:      cfg.Fetcher.AdapterTimeout,
		DefaultLimit:        cfg.Fetcher.DefaultLimit,
		MaxLimit:            cfg.Fetcher.MaxLimit,
		SearchTTL:           cfg.Cache.SearchTTL,
		LookupTTL:           cfg.Cache.LookupTTL,
	})

	logger.Info().
		Int("registered", registry.Len()).
		Int("enabled", len(registry.Enabled())).
		Bool("cache", cfg.Cache.Enabled).
		Int("max_parallel", cfg.Fetcher.MaxParallelRequests).
		Msg("search pipeline ready")

	return a, nil
}

// StartMaintenance runs the cache janitors and the in-flight sweeper until
// ctx is done.
func (a *App) StartMaintenance(ctx context.Context) {
	if !a.cfg.Cache.Enabled {
		return
	}
	interval := a.cfg.Cache.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	maxAge := a.cfg.Cache.InFlightMaxAge
	if maxAge <= 0 {
		maxAge = cache.DefaultInFlightMaxAge
	}

	a.SearchCache.StartJanitor(ctx, interval)
	a.LookupCache.StartJanitor(ctx, interval)
	a.InFlight.StartSweeper(ctx, maxAge, maxAge)

	a.logger.Debug().
		Dur("sweep_interval", interval).
		Dur("inflight_max_age", maxAge).
		Msg("cache maintenance started")
}

// circuitValue maps a breaker state to the gauge value: 0 closed,
// 1 half-open, 2 open.
func circuitValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
