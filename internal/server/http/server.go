// Package httpserver provides the HTTP REST API server for the metasearch service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/fetcher"
	"github.com/helixir/metasearch-service/internal/observability"
	"github.com/helixir/metasearch-service/internal/papersources"
	"github.com/helixir/metasearch-service/internal/resilience"
)

// Searcher runs queries. It is implemented by *fetcher.SourceFetcher.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) (*fetcher.Result, error)
	Stream(ctx context.Context, q domain.SearchQuery, emit fetcher.EmitFunc) error
	Resolve(ctx context.Context, identifier string) (*domain.Source, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   Searcher
	registry   *papersources.Registry
	breakers   *resilience.BreakerRegistry
	validate   *validator.Validate
	cors       CORSConfig
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORS            CORSConfig
}

// CORSConfig controls cross-origin access for browser clients.
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// NewServer creates a new HTTP server. breakers may be nil.
func NewServer(
	cfg Config,
	searcher Searcher,
	registry *papersources.Registry,
	breakers *resilience.BreakerRegistry,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		searcher: searcher,
		registry: registry,
		breakers: breakers,
		validate: newValidator(),
		cors:     cfg.CORS,
		logger:   logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	origins := s.cors.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	maxAge := s.cors.MaxAge
	if maxAge <= 0 {
		maxAge = 300
	}

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Correlation-ID"},
		MaxAge:         maxAge,
	}))
	r.Use(correlationIDMiddleware)
	r.Use(requestLogMiddleware(s.logger))

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.search)
		r.Get("/search/stream", s.streamSearch)
		r.Post("/resolve", s.resolve)
		r.Get("/providers", s.listProviders)
	})

	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports ready while at least one paper source is enabled.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	enabled := len(s.registry.Enabled())
	if enabled == 0 {
		s.writeJSON(w, r, http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"sources": 0,
			"error":   "no paper sources enabled",
		})
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ready",
		"sources": enabled,
	})
}

// writeJSON writes v as the JSON response body. Once the status line is
// out an encode failure can only be logged.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Warn().
			Err(err).
			Int("status", statusCode).
			Msg("write response body")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	s.writeJSON(w, r, statusCode, map[string]string{"error": message})
}
