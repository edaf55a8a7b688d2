// Package papersources provides the adapter contract shared by every
// scholarly-metadata provider and the plumbing the adapters use to reach
// their APIs.
//
// Each provider (CrossRef, PubMed, arXiv, ...) implements Adapter in its
// own sub-package. Adapters copy provider payload fields verbatim into
// RawRecord values; cleanup happens later in the normalizer, so the
// adapters stay thin and provider-specific.
//
// Example usage:
//
//	adapter := crossref.New(crossref.Config{Enabled: true, Email: "ops@example.org"})
//	resp := adapter.SearchByTitle(ctx, "attention is all you need", papersources.SearchParams{Limit: 10})
//	if resp.Success {
//		records := papersources.ExtractRecords(adapter, resp.Data)
//	}
package papersources

import (
	"context"
	"errors"

	"github.com/helixir/metasearch-service/internal/domain"
)

// Operation names used in logs, metrics and AdapterError.Op.
const (
	OpSearchByDOI     = "search_by_doi"
	OpSearchByTitle   = "search_by_title"
	OpSearchByAuthor  = "search_by_author"
	OpSearchByKeyword = "search_by_keyword"
)

// ErrDisabled is reported by an adapter invoked while disabled.
var ErrDisabled = errors.New("adapter disabled")

// SearchParams carries the optional knobs forwarded to a provider.
// Providers ignore the ones they cannot express.
type SearchParams struct {
	// Limit is the maximum number of records to request. A value of 0 uses
	// the adapter's configured default.
	Limit int

	// YearFrom and YearTo push the year filter down when the provider
	// supports it. The orchestrator re-applies the filter after
	// normalization, so pushing down is an optimisation only.
	YearFrom int
	YearTo   int

	// OpenAccessOnly restricts results to open access works where supported.
	OpenAccessOnly bool
}

// LimitOr returns the requested limit, def when unset, capped at max.
func (p SearchParams) LimitOr(def, max int) int {
	n := p.Limit
	if n <= 0 {
		n = def
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

// ParamsFromQuery derives adapter parameters from a search query.
func ParamsFromQuery(q domain.SearchQuery) SearchParams {
	return SearchParams{
		Limit:          q.Limit,
		YearFrom:       q.Filters.YearFrom,
		YearTo:         q.Filters.YearTo,
		OpenAccessOnly: q.Filters.OpenAccessOnly,
	}
}

// Response is the uniform outcome of an adapter call.
//
// Data is one of: []RawRecord, RawRecord, a provider-specific envelope
// understood by the adapter's Transformer, or nil. When Success is false,
// Err describes the failure and Data is ignored.
type Response struct {
	Success bool
	Data    any
	Err     error
}

// OK returns a successful response.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Fail returns a failed response wrapping err as an AdapterError.
func Fail(provider domain.Provider, op string, err error) Response {
	return Response{Success: false, Err: domain.NewAdapterError(provider, op, err)}
}

// Adapter is implemented by every provider client.
//
// Implementations must not panic or return ordinary failures out of band:
// HTTP errors, empty results and malformed payloads are all reported
// through Response. An empty successful response means "nothing found".
type Adapter interface {
	// SearchByDOI looks up a single work by DOI.
	SearchByDOI(ctx context.Context, doi string) Response

	// SearchByTitle searches for works whose title matches title.
	SearchByTitle(ctx context.Context, title string, params SearchParams) Response

	// SearchByAuthor searches for works by an author name.
	SearchByAuthor(ctx context.Context, author string, params SearchParams) Response

	// SearchByKeyword runs a free-text search.
	SearchByKeyword(ctx context.Context, keyword string, params SearchParams) Response

	// Provider returns the provider this adapter serves.
	Provider() domain.Provider

	// Name returns a human-readable name for logs and display.
	Name() string

	// IsEnabled reports whether the adapter takes part in fan-out.
	IsEnabled() bool
}

// Transformer is implemented by adapters whose Response.Data is a
// provider-specific envelope rather than a list of RawRecord.
type Transformer interface {
	TransformResponse(data any) []RawRecord
}

// ExtractRecords turns the Data of a successful response into raw records,
// using the adapter's Transformer when it has one.
func ExtractRecords(a Adapter, data any) []RawRecord {
	if t, ok := a.(Transformer); ok {
		return t.TransformResponse(data)
	}

	switch v := data.(type) {
	case nil:
		return nil
	case []RawRecord:
		return v
	case RawRecord:
		return []RawRecord{v}
	case *RawRecord:
		if v == nil {
			return nil
		}
		return []RawRecord{*v}
	default:
		return nil
	}
}

// Run dispatches q to the adapter operation matching q.Type.
func Run(ctx context.Context, a Adapter, q domain.SearchQuery) Response {
	params := ParamsFromQuery(q)
	switch q.Type {
	case domain.QueryTypeDOI:
		return a.SearchByDOI(ctx, q.Query)
	case domain.QueryTypeTitle:
		return a.SearchByTitle(ctx, q.Query, params)
	case domain.QueryTypeAuthor:
		return a.SearchByAuthor(ctx, q.Query, params)
	default:
		return a.SearchByKeyword(ctx, q.Query, params)
	}
}

// OpFor returns the operation name used for q.Type.
func OpFor(qt domain.QueryType) string {
	switch qt {
	case domain.QueryTypeDOI:
		return OpSearchByDOI
	case domain.QueryTypeTitle:
		return OpSearchByTitle
	case domain.QueryTypeAuthor:
		return OpSearchByAuthor
	default:
		return OpSearchByKeyword
	}
}
