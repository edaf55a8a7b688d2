// Package observability provides logging, metrics, and tracing support for
// the metasearch service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for queries, providers, cache and streaming
//   - OpenTelemetry tracing with an optional OTLP exporter
//   - Context helpers for propagating request and trace IDs
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithQueryContext(logger, "title", query, 20)
//
// # Metrics
//
//	metrics := observability.NewMetrics("metasearch")
//	metrics.RecordProviderSuccess("crossref", "search_by_title", 20, 0.41)
//
// # Standard Fields
//
//   - request_id: correlation ID of the HTTP request
//   - query_type: keyword, title, author or doi
//   - provider: upstream provider (crossref, pubmed, ...)
//   - operation: adapter operation (search_by_title, ...)
//   - trace_id, span_id: distributed trace identifiers
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
