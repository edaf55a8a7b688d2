package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: NewMetrics registers with the global registry, so tests use a
// private registry or a unique namespace to avoid registration conflicts.

func newTestMetrics() *Metrics {
	return NewMetricsWithRegistry("test_metasearch", prometheus.NewRegistry())
}

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_metasearch_global")

	assert.NotNil(t, m.QueriesStarted)
	assert.NotNil(t, m.QueriesCompleted)
	assert.NotNil(t, m.QueriesFailed)
	assert.NotNil(t, m.QueryDuration)
	assert.NotNil(t, m.ProviderRequests)
	assert.NotNil(t, m.ProviderFailures)
	assert.NotNil(t, m.CacheHits)
	assert.NotNil(t, m.StreamEvents)
	assert.NotNil(t, m.CircuitState)
}

func TestNewMetricsWithRegistry_Isolated(t *testing.T) {
	// Same namespace twice must not panic with separate registries.
	a := NewMetricsWithRegistry("dup", prometheus.NewRegistry())
	b := NewMetricsWithRegistry("dup", prometheus.NewRegistry())

	a.RecordQueryStarted(ModeBatch)
	assert.Equal(t, float64(1), testutil.ToFloat64(a.QueriesStarted.WithLabelValues(ModeBatch)))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.QueriesStarted.WithLabelValues(ModeBatch)))
}

func TestRecordQueryLifecycle(t *testing.T) {
	m := newTestMetrics()

	m.RecordQueryStarted(ModeStream)
	m.RecordQueryCompleted(ModeStream, 12, 1.5)
	m.RecordQueryFailed(ModeBatch, "invalid_query", 0.01)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesStarted.WithLabelValues(ModeStream)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesCompleted.WithLabelValues(ModeStream)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueriesFailed.WithLabelValues(ModeBatch, "invalid_query")))

	count, err := getHistogramSampleCount(m.SourcesPerQuery)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestRecordProvider(t *testing.T) {
	m := newTestMetrics()

	m.RecordProviderSuccess("crossref", "search_by_title", 10, 0.3)
	m.RecordProviderFailure("crossref", "search_by_title", "timeout", 20)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ProviderRequests.WithLabelValues("crossref", "search_by_title")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderFailures.WithLabelValues("crossref", "timeout")))
}

func TestRecordRecords(t *testing.T) {
	m := newTestMetrics()

	m.RecordNormalizationSkipped("doaj", 0)
	m.RecordNormalizationSkipped("doaj", 3)
	m.RecordDuplicates(2, 1)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.NormalizationSkipped.WithLabelValues("doaj")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DuplicatesRemoved.WithLabelValues("doi")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DuplicatesRemoved.WithLabelValues("title")))
}

func TestRecordCacheAndStream(t *testing.T) {
	m := newTestMetrics()

	m.RecordCacheLookup("search", true)
	m.RecordCacheLookup("search", false)
	m.RecordCacheLookup("search", false)
	m.RecordInFlightShared()
	m.RecordStreamOpened()
	m.RecordStreamOpened()
	m.RecordStreamClosed()
	m.RecordStreamEvent("progress")
	m.SetCircuitState("arxiv", 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits.WithLabelValues("search")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMisses.WithLabelValues("search")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InFlightShared))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StreamSessionsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StreamEvents.WithLabelValues("progress")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CircuitState.WithLabelValues("arxiv")))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
