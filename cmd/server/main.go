// Command server runs the metasearch HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/metasearch-service/internal/app"
	"github.com/helixir/metasearch-service/internal/config"
	"github.com/helixir/metasearch-service/internal/observability"
	httpserver "github.com/helixir/metasearch-service/internal/server/http"
)

const idleTimeout = 2 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	}).With().Str("component", "server").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	pipeline, err := app.New(cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}
	pipeline.StartMaintenance(ctx)

	api := httpserver.NewServer(httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORS: httpserver.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			MaxAge:         cfg.CORS.MaxAge,
		},
	}, pipeline.Fetcher, pipeline.Registry, pipeline.Breakers, logger)

	metrics := metricsServer(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreClosed(api.Start())
	})
	if metrics != nil {
		g.Go(func() error {
			return ignoreClosed(metrics.ListenAndServe())
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		return shutdown(cfg.Server.ShutdownTimeout, logger, api.Shutdown, metrics, shutdownTracing)
	})

	ready := logger.Info().Str("http_address", cfg.Server.HTTPAddress())
	if metrics != nil {
		ready = ready.Str("metrics_address", metrics.Addr)
	}
	ready.Msg("metasearch-service ready")

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// metricsServer exposes the Prometheus registry on its own port, or
// returns nil when metrics are off.
func metricsServer(cfg *config.Config) *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	return &http.Server{
		Addr:         cfg.Server.MetricsAddress(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func shutdown(
	timeout time.Duration,
	logger zerolog.Logger,
	stopAPI func(context.Context) error,
	metrics *http.Server,
	stopTracing func(context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errs := []error{stopAPI(ctx), stopTracing(ctx)}
	if metrics != nil {
		errs = append(errs, metrics.Shutdown(ctx))
	}
	err := errors.Join(errs...)
	if err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
	}
	return nil
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
