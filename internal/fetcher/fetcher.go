// Package fetcher orchestrates a query across the registered paper sources.
//
// SourceFetcher runs the adapters, feeds their raw records through the
// normalizer and the deduplicator, and delivers the result either as one
// batch (Search), incrementally per provider (Stream), or as a single
// record looked up by DOI (Resolve).
//
// A failing provider never fails the query: its error is logged and
// counted, and the remaining providers still contribute. Only an invalid
// query is fatal, and it is rejected before any adapter is contacted.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixir/metasearch-service/internal/cache"
	"github.com/helixir/metasearch-service/internal/dedup"
	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/normalize"
	"github.com/helixir/metasearch-service/internal/observability"
	"github.com/helixir/metasearch-service/internal/papersources"
	"github.com/helixir/metasearch-service/internal/resilience"
)

// Cache names used in metrics.
const (
	searchCacheName = "search"
	lookupCacheName = "lookup"
)

// resolveCandidates is how many sources Resolve inspects for an exact DOI
// match.
const resolveCandidates = 10

// Options tunes the orchestrator.
type Options struct {
	// MaxParallelRequests is the batch size of a batch search: at most this
	// many adapters run at the same time.
	MaxParallelRequests int

	// UseCache enables the search and lookup caches and the in-flight group.
	UseCache bool

	// AdapterTimeout bounds each adapter call.
	AdapterTimeout time.Duration

	// DefaultLimit replaces a zero limit; MaxLimit caps any limit.
	DefaultLimit int
	MaxLimit     int

	// SearchTTL and LookupTTL are the cache lifetimes of batch results and
	// resolved DOIs.
	SearchTTL time.Duration
	LookupTTL time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxParallelRequests: 5,
		UseCache:            true,
		AdapterTimeout:      20 * time.Second,
		DefaultLimit:        domain.DefaultLimit,
		MaxLimit:            domain.MaxLimit,
		SearchTTL:           cache.SearchTTL,
		LookupTTL:           cache.LookupTTL,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.MaxParallelRequests <= 0 {
		o.MaxParallelRequests = d.MaxParallelRequests
	}
	if o.AdapterTimeout <= 0 {
		o.AdapterTimeout = d.AdapterTimeout
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = d.DefaultLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = d.MaxLimit
	}
	if o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = o.MaxLimit
	}
	if o.SearchTTL <= 0 {
		o.SearchTTL = d.SearchTTL
	}
	if o.LookupTTL <= 0 {
		o.LookupTTL = d.LookupTTL
	}
}

// Result is the outcome of a batch search.
type Result struct {
	// Sources are the deduplicated sources in arrival order, at most limit.
	Sources []*domain.Source `json:"sources"`

	// TotalFound counts the distinct sources seen before truncation.
	TotalFound int `json:"totalFound"`

	ProvidersSucceeded int `json:"providersSucceeded"`
	ProvidersFailed    int `json:"providersFailed"`
}

// Deps are the collaborators of a SourceFetcher. Only Registry is
// required; nil caches are created from Options, a nil Breakers calls
// adapters directly, and nil Metrics registers on a private registry.
type Deps struct {
	Registry    *papersources.Registry
	SearchCache *cache.TTLCache[*Result]
	LookupCache *cache.TTLCache[*domain.Source]
	InFlight    *cache.InFlight[*Result]
	Breakers    *resilience.BreakerRegistry
	Metrics     *observability.Metrics
	Logger      zerolog.Logger
	Tracer      trace.Tracer
}

// SourceFetcher runs queries across the registered adapters.
// It is safe for concurrent use.
type SourceFetcher struct {
	registry    *papersources.Registry
	searchCache *cache.TTLCache[*Result]
	lookupCache *cache.TTLCache[*domain.Source]
	inflight    *cache.InFlight[*Result]
	breakers    *resilience.BreakerRegistry
	metrics     *observability.Metrics
	logger      zerolog.Logger
	tracer      trace.Tracer
	opts        Options
}

// New creates a SourceFetcher.
func New(deps Deps, opts Options) *SourceFetcher {
	opts.applyDefaults()

	f := &SourceFetcher{
		registry:    deps.Registry,
		searchCache: deps.SearchCache,
		lookupCache: deps.LookupCache,
		inflight:    deps.InFlight,
		breakers:    deps.Breakers,
		metrics:     deps.Metrics,
		logger:      deps.Logger.With().Str("component", "fetcher").Logger(),
		tracer:      deps.Tracer,
		opts:        opts,
	}
	if f.registry == nil {
		f.registry = papersources.NewRegistry()
	}
	if f.searchCache == nil {
		f.searchCache = cache.NewTTLCache[*Result](opts.SearchTTL)
	}
	if f.lookupCache == nil {
		f.lookupCache = cache.NewTTLCache[*domain.Source](opts.LookupTTL)
	}
	if f.inflight == nil {
		f.inflight = cache.NewInFlight[*Result]()
	}
	if f.metrics == nil {
		f.metrics = observability.NewMetricsWithRegistry("metasearch", prometheus.NewRegistry())
	}
	if f.tracer == nil {
		f.tracer = observability.Tracer()
	}
	return f
}

// Registry returns the adapter registry.
func (f *SourceFetcher) Registry() *papersources.Registry {
	return f.registry
}

// Options returns the effective options.
func (f *SourceFetcher) Options() Options {
	return f.opts
}

// Prepare applies defaults to q and validates it: the query is trimmed,
// an empty type becomes keyword, and the limit is clamped to
// [1, MaxLimit] with zero meaning DefaultLimit. A DOI query is reduced to
// its normalized form, so resolver URLs reach adapters as bare DOIs and
// share a cache key with them.
func (f *SourceFetcher) Prepare(q domain.SearchQuery) (domain.SearchQuery, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = f.opts.DefaultLimit
	}
	prepared, err := domain.NewSearchQuery(q.Query, q.Type, limit, q.Filters, f.opts.MaxLimit)
	if err != nil {
		return domain.SearchQuery{}, err
	}
	if prepared.Type == domain.QueryTypeDOI {
		doi := normalize.NormalizeDOI(prepared.Query)
		if doi == "" {
			return domain.SearchQuery{}, domain.NewInvalidQueryError("query", "must be a DOI")
		}
		prepared.Query = doi
	}
	return prepared, nil
}

// Search runs a batch search. Adapters are called in registry order, in
// batches of MaxParallelRequests; each batch settles before the next one
// starts, and no further batch starts once the limit is reached.
// Identical concurrent searches share one execution, and results are
// cached for SearchTTL.
func (f *SourceFetcher) Search(ctx context.Context, query domain.SearchQuery) (*Result, error) {
	start := time.Now()

	q, err := f.Prepare(query)
	if err != nil {
		f.metrics.RecordQueryFailed(observability.ModeBatch, "invalid_query", time.Since(start).Seconds())
		return nil, err
	}
	f.metrics.RecordQueryStarted(observability.ModeBatch)

	if !f.opts.UseCache {
		res := f.search(ctx, q)
		f.metrics.RecordQueryCompleted(observability.ModeBatch, len(res.Sources), time.Since(start).Seconds())
		return res, nil
	}

	key := q.CacheKey()
	if res, ok := f.searchCache.Get(key); ok {
		f.metrics.RecordCacheLookup(searchCacheName, true)
		f.metrics.RecordQueryCompleted(observability.ModeBatch, len(res.Sources), time.Since(start).Seconds())
		return res, nil
	}
	f.metrics.RecordCacheLookup(searchCacheName, false)

	res, shared, err := f.inflight.Do(ctx, key, func(ctx context.Context) (*Result, error) {
		res := f.search(ctx, q)
		// Results where every provider failed are not cached.
		if res.ProvidersSucceeded > 0 {
			f.searchCache.Set(key, res, f.opts.SearchTTL)
		}
		return res, nil
	})
	if err != nil {
		f.metrics.RecordQueryFailed(observability.ModeBatch, "cancelled", time.Since(start).Seconds())
		return nil, fmt.Errorf("search %q: %w", q.Query, err)
	}
	if shared {
		f.metrics.RecordInFlightShared()
	}

	f.metrics.RecordQueryCompleted(observability.ModeBatch, len(res.Sources), time.Since(start).Seconds())
	return res, nil
}

// search fans q out and assembles the result. It never fails: provider
// errors are counted in the result.
func (f *SourceFetcher) search(ctx context.Context, q domain.SearchQuery) *Result {
	ctx, span := f.tracer.Start(ctx, "fetcher.Search", trace.WithAttributes(
		attribute.String("query.type", string(q.Type)),
		attribute.Int("query.limit", q.Limit),
	))
	defer span.End()

	logger := observability.WithQueryContext(observability.LoggerFromContext(ctx, f.logger), string(q.Type), q.Query, q.Limit)
	adapters := f.registry.Select(q.Filters.Providers)

	res := &Result{Sources: make([]*domain.Source, 0, q.Limit)}
	d := dedup.New()
	skipped := 0

	size := f.opts.MaxParallelRequests
	for from := 0; from < len(adapters) && len(res.Sources) < q.Limit; from += size {
		if ctx.Err() != nil {
			break
		}
		to := min(from+size, len(adapters))

		for _, out := range f.runBatch(ctx, adapters[from:to], q) {
			if out.err != nil {
				res.ProvidersFailed++
				continue
			}
			res.ProvidersSucceeded++

			fresh, n := f.accept(out, q.Filters, d, logger)
			skipped += n
			for _, src := range fresh {
				if len(res.Sources) >= q.Limit {
					break
				}
				res.Sources = append(res.Sources, src)
			}
		}
	}

	stats := d.Stats()
	res.TotalFound = stats.Accepted
	f.metrics.RecordDuplicates(stats.RejectedDOI, stats.RejectedTitle)

	logger.Info().
		Int("providers", len(adapters)).
		Int("succeeded", res.ProvidersSucceeded).
		Int("failed", res.ProvidersFailed).
		Int("sources", len(res.Sources)).
		Int("total_found", res.TotalFound).
		Int("duplicates", stats.Rejected()).
		Int("normalization_skipped", skipped).
		Msg("search completed")

	span.SetAttributes(
		attribute.Int("providers.succeeded", res.ProvidersSucceeded),
		attribute.Int("providers.failed", res.ProvidersFailed),
		attribute.Int("sources", len(res.Sources)),
	)
	return res
}

// runBatch calls every adapter concurrently and returns the outcomes in
// the order of adapters, once all of them have settled.
func (f *SourceFetcher) runBatch(ctx context.Context, adapters []papersources.Adapter, q domain.SearchQuery) []outcome {
	outcomes := make([]outcome, len(adapters))

	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a papersources.Adapter) {
			defer wg.Done()
			outcomes[i] = f.call(ctx, a, q)
		}(i, a)
	}
	wg.Wait()

	return outcomes
}

// Stream runs a streaming search. Adapters are called one at a time in
// registry order; emit receives start, then progress before each call and
// results after each successful one, then done.
//
// Records already delivered in the session are never delivered again.
// When ctx is cancelled or emit fails, the adapter call in progress is left
// to finish on a detached context, no further adapter is started, and done
// is not emitted. The returned error wraps domain.ErrCancelled only when
// ctx ended; an emit failure on a live context is returned as is. An
// invalid query is returned before anything is emitted.
func (f *SourceFetcher) Stream(ctx context.Context, query domain.SearchQuery, emit EmitFunc) error {
	start := time.Now()

	q, err := f.Prepare(query)
	if err != nil {
		f.metrics.RecordQueryFailed(observability.ModeStream, "invalid_query", time.Since(start).Seconds())
		return err
	}

	f.metrics.RecordQueryStarted(observability.ModeStream)
	f.metrics.RecordStreamOpened()
	defer f.metrics.RecordStreamClosed()

	ctx, span := f.tracer.Start(ctx, "fetcher.Stream", trace.WithAttributes(
		attribute.String("query.type", string(q.Type)),
		attribute.Int("query.limit", q.Limit),
	))
	defer span.End()

	logger := observability.WithQueryContext(observability.LoggerFromContext(ctx, f.logger), string(q.Type), q.Query, q.Limit)
	adapters := f.registry.Select(q.Filters.Providers)

	send := func(ev Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(ev); err != nil {
			return err
		}
		f.metrics.RecordStreamEvent(string(ev.Kind))
		return nil
	}
	abort := func(cause error) error {
		if ctx.Err() == nil {
			f.metrics.RecordQueryFailed(observability.ModeStream, "emit_failed", time.Since(start).Seconds())
			logger.Warn().Err(cause).Msg("stream event could not be delivered")
			span.SetStatus(codes.Error, "emit failed")
			return fmt.Errorf("stream %q: %w", q.Query, cause)
		}
		f.metrics.RecordQueryFailed(observability.ModeStream, "cancelled", time.Since(start).Seconds())
		logger.Info().Err(cause).Msg("stream aborted by caller")
		span.SetStatus(codes.Error, "cancelled")
		return fmt.Errorf("stream %q: %w: %w", q.Query, domain.ErrCancelled, cause)
	}

	if err := send(startEvent(len(adapters))); err != nil {
		return abort(err)
	}

	d := dedup.New()
	succeeded, failed, skipped := 0, 0, 0

	for i, a := range adapters {
		if err := send(progressEvent(a.Provider(), i+1, len(adapters))); err != nil {
			return abort(err)
		}

		out, err := f.callDetached(ctx, a, q)
		if err != nil {
			return abort(err)
		}
		if out.err != nil {
			failed++
			continue
		}
		succeeded++

		fresh, n := f.accept(out, q.Filters, d, logger)
		skipped += n
		if err := send(resultsEvent(a.Provider(), fresh)); err != nil {
			return abort(err)
		}
	}

	stats := d.Stats()
	f.metrics.RecordDuplicates(stats.RejectedDOI, stats.RejectedTitle)

	if err := send(doneEvent(succeeded, failed, stats.Accepted)); err != nil {
		return abort(err)
	}

	logger.Info().
		Int("providers", len(adapters)).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("total_found", stats.Accepted).
		Int("duplicates", stats.Rejected()).
		Int("normalization_skipped", skipped).
		Msg("stream completed")

	f.metrics.RecordQueryCompleted(observability.ModeStream, stats.Accepted, time.Since(start).Seconds())
	return nil
}

// callDetached runs one adapter call on a context that survives ctx
// cancellation. If ctx ends first, it returns ctx's error while the call
// finishes in the background.
func (f *SourceFetcher) callDetached(ctx context.Context, a papersources.Adapter, q domain.SearchQuery) (outcome, error) {
	done := make(chan outcome, 1)
	go func() {
		done <- f.call(context.WithoutCancel(ctx), a, q)
	}()

	select {
	case out := <-done:
		return out, nil
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}

// Resolve looks up a single source by DOI. The identifier may carry a
// resolver prefix such as https://doi.org/. Resolved sources are cached
// for LookupTTL. Only a source whose DOI equals the requested one counts;
// it returns an error wrapping domain.ErrNotFound when no provider has it.
func (f *SourceFetcher) Resolve(ctx context.Context, identifier string) (*domain.Source, error) {
	start := time.Now()

	doi := normalize.NormalizeDOI(identifier)
	if doi == "" {
		f.metrics.RecordQueryFailed(observability.ModeResolve, "invalid_query", time.Since(start).Seconds())
		return nil, domain.NewInvalidQueryError("identifier", "must be a DOI")
	}
	f.metrics.RecordQueryStarted(observability.ModeResolve)

	key := "doi:" + doi
	if f.opts.UseCache {
		if src, ok := f.lookupCache.Get(key); ok {
			f.metrics.RecordCacheLookup(lookupCacheName, true)
			f.metrics.RecordQueryCompleted(observability.ModeResolve, 1, time.Since(start).Seconds())
			return src, nil
		}
		f.metrics.RecordCacheLookup(lookupCacheName, false)
	}

	res, err := f.Search(ctx, domain.SearchQuery{Query: doi, Type: domain.QueryTypeDOI, Limit: resolveCandidates})
	if err != nil {
		f.metrics.RecordQueryFailed(observability.ModeResolve, "search_failed", time.Since(start).Seconds())
		return nil, err
	}

	// Field searches (CORE doi:, PubMed [DOI]) can return near misses.
	var src *domain.Source
	for _, candidate := range res.Sources {
		if candidate.DOI == doi {
			src = candidate
			break
		}
	}
	if src == nil {
		f.metrics.RecordQueryFailed(observability.ModeResolve, "not_found", time.Since(start).Seconds())
		return nil, domain.NewNotFoundError("source", doi)
	}

	if f.opts.UseCache {
		f.lookupCache.Set(key, src, f.opts.LookupTTL)
	}
	f.metrics.RecordQueryCompleted(observability.ModeResolve, 1, time.Since(start).Seconds())
	return src, nil
}

// accept normalizes, year-filters and deduplicates one provider's records
// and returns the newly accepted sources with the number of records the
// normalizer skipped.
func (f *SourceFetcher) accept(out outcome, filters domain.Filters, d *dedup.Deduplicator, logger zerolog.Logger) ([]*domain.Source, int) {
	fresh := make([]*domain.Source, 0, len(out.records))
	skipped := 0

	for _, raw := range out.records {
		src, err := normalize.Normalize(raw, out.provider)
		if err != nil {
			skipped++
			logger.Debug().
				Err(err).
				Str("provider", string(out.provider)).
				Msg("skipping record")
			continue
		}
		if !filters.YearInRange(src.Year) {
			continue
		}
		if d.Accept(src) {
			fresh = append(fresh, src)
		}
	}

	f.metrics.RecordNormalizationSkipped(string(out.provider), skipped)
	return fresh, skipped
}

// errorType classifies an adapter error for the failure metric.
func errorType(err error) string {
	var panicErr *panicError
	switch {
	case errors.As(err, &panicErr):
		return "panic"
	case errors.Is(err, domain.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, papersources.ErrDisabled):
		return "disabled"
	default:
		var apiErr *domain.ExternalAPIError
		if errors.As(err, &apiErr) {
			return "upstream"
		}
		return "other"
	}
}
