package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query modes used as the "mode" label.
const (
	ModeBatch   = "batch"
	ModeStream  = "stream"
	ModeResolve = "resolve"
)

// Metrics contains all Prometheus metrics for the metasearch service.
// Metrics are organized by subsystem: queries, providers, records, cache,
// streaming and circuit breakers.
type Metrics struct {
	// QueriesStarted counts queries accepted for execution, labeled by mode.
	QueriesStarted *prometheus.CounterVec

	// QueriesCompleted counts queries that produced a result, labeled by mode.
	QueriesCompleted *prometheus.CounterVec

	// QueriesFailed counts queries that ended in an error, labeled by mode and reason.
	QueriesFailed *prometheus.CounterVec

	// QueryDuration observes end-to-end query duration in seconds, labeled by mode.
	QueryDuration *prometheus.HistogramVec

	// SourcesPerQuery observes the number of deduplicated sources returned per query.
	SourcesPerQuery prometheus.Histogram

	// ProviderRequests counts adapter calls, labeled by provider and operation.
	ProviderRequests *prometheus.CounterVec

	// ProviderFailures counts failed adapter calls, labeled by provider and error type.
	ProviderFailures *prometheus.CounterVec

	// ProviderDuration observes adapter call duration in seconds, labeled by provider.
	ProviderDuration *prometheus.HistogramVec

	// RecordsPerProvider observes raw records returned per adapter call, labeled by provider.
	RecordsPerProvider *prometheus.HistogramVec

	// NormalizationSkipped counts raw records dropped by the normalizer, labeled by provider.
	NormalizationSkipped *prometheus.CounterVec

	// DuplicatesRemoved counts sources rejected by deduplication, labeled by reason (doi, title).
	DuplicatesRemoved *prometheus.CounterVec

	// CacheHits counts cache hits, labeled by cache name.
	CacheHits *prometheus.CounterVec

	// CacheMisses counts cache misses, labeled by cache name.
	CacheMisses *prometheus.CounterVec

	// InFlightShared counts queries answered by joining an identical in-flight query.
	InFlightShared prometheus.Counter

	// StreamSessionsActive tracks currently open streaming sessions.
	StreamSessionsActive prometheus.Gauge

	// StreamEvents counts emitted stream events, labeled by event kind.
	StreamEvents *prometheus.CounterVec

	// CircuitState reports breaker state per provider (0 closed, 1 half-open, 2 open).
	CircuitState *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance registered with the default
// Prometheus registry. The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a Metrics instance registered with reg.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Queries
		QueriesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_started_total",
			Help:      "Total number of queries started by mode",
		}, []string{"mode"}),
		QueriesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_completed_total",
			Help:      "Total number of queries completed by mode",
		}, []string{"mode"}),
		QueriesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_failed_total",
			Help:      "Total number of queries that failed by mode and reason",
		}, []string{"mode", "reason"}),
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of queries in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"mode"}),
		SourcesPerQuery: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sources_per_query",
			Help:      "Number of deduplicated sources returned per query",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),

		// Providers
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of adapter calls by provider and operation",
		}, []string{"provider", "operation"}),
		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Total number of failed adapter calls by provider and error type",
		}, []string{"provider", "error_type"}),
		ProviderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of adapter calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"provider"}),
		RecordsPerProvider: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_per_provider_call",
			Help:      "Number of raw records returned per adapter call",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{"provider"}),

		// Records
		NormalizationSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalization_skipped_total",
			Help:      "Total number of raw records that could not be normalized",
		}, []string{"provider"}),
		DuplicatesRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Total number of sources removed as duplicates by reason",
		}, []string{"reason"}),

		// Cache
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits by cache",
		}, []string{"cache"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses by cache",
		}, []string{"cache"}),
		InFlightShared: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inflight_shared_total",
			Help:      "Total number of queries served by an identical in-flight query",
		}),

		// Streaming
		StreamSessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_sessions_active",
			Help:      "Number of open streaming sessions",
		}),
		StreamEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Total number of stream events emitted by kind",
		}, []string{"event"}),

		// Circuit breakers
		CircuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		}, []string{"provider"}),
	}
}

// RecordQueryStarted records that a query has started.
func (m *Metrics) RecordQueryStarted(mode string) {
	m.QueriesStarted.WithLabelValues(mode).Inc()
}

// RecordQueryCompleted records that a query has completed.
func (m *Metrics) RecordQueryCompleted(mode string, sourceCount int, durationSeconds float64) {
	m.QueriesCompleted.WithLabelValues(mode).Inc()
	m.QueryDuration.WithLabelValues(mode).Observe(durationSeconds)
	m.SourcesPerQuery.Observe(float64(sourceCount))
}

// RecordQueryFailed records that a query has failed.
func (m *Metrics) RecordQueryFailed(mode, reason string, durationSeconds float64) {
	m.QueriesFailed.WithLabelValues(mode, reason).Inc()
	m.QueryDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordProviderSuccess records a successful adapter call.
func (m *Metrics) RecordProviderSuccess(provider, operation string, recordCount int, durationSeconds float64) {
	m.ProviderRequests.WithLabelValues(provider, operation).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(durationSeconds)
	m.RecordsPerProvider.WithLabelValues(provider).Observe(float64(recordCount))
}

// RecordProviderFailure records a failed adapter call.
func (m *Metrics) RecordProviderFailure(provider, operation, errorType string, durationSeconds float64) {
	m.ProviderRequests.WithLabelValues(provider, operation).Inc()
	m.ProviderFailures.WithLabelValues(provider, errorType).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordNormalizationSkipped records records dropped by the normalizer.
func (m *Metrics) RecordNormalizationSkipped(provider string, count int) {
	if count > 0 {
		m.NormalizationSkipped.WithLabelValues(provider).Add(float64(count))
	}
}

// RecordDuplicates records sources removed as duplicates.
func (m *Metrics) RecordDuplicates(byDOI, byTitle int) {
	if byDOI > 0 {
		m.DuplicatesRemoved.WithLabelValues("doi").Add(float64(byDOI))
	}
	if byTitle > 0 {
		m.DuplicatesRemoved.WithLabelValues("title").Add(float64(byTitle))
	}
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}

// RecordInFlightShared records a query that joined an in-flight query.
func (m *Metrics) RecordInFlightShared() {
	m.InFlightShared.Inc()
}

// RecordStreamOpened records a new streaming session.
func (m *Metrics) RecordStreamOpened() {
	m.StreamSessionsActive.Inc()
}

// RecordStreamClosed records the end of a streaming session.
func (m *Metrics) RecordStreamClosed() {
	m.StreamSessionsActive.Dec()
}

// RecordStreamEvent records an emitted stream event.
func (m *Metrics) RecordStreamEvent(kind string) {
	m.StreamEvents.WithLabelValues(kind).Inc()
}

// SetCircuitState records a breaker state value for a provider.
func (m *Metrics) SetCircuitState(provider string, state float64) {
	m.CircuitState.WithLabelValues(provider).Set(state)
}
