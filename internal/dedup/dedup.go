// Package dedup removes cross-provider duplicates from the sources of one query.
package dedup

import (
	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/normalize"
)

// Reason explains why a source was rejected.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonDOI      Reason = "doi"
	ReasonTitleKey Reason = "title"
)

// Stats summarises a deduplicator's decisions.
type Stats struct {
	Accepted      int
	RejectedDOI   int
	RejectedTitle int
}

// Rejected returns the total number of rejected sources.
func (s Stats) Rejected() int {
	return s.RejectedDOI + s.RejectedTitle
}

// Deduplicator accepts each distinct source once. A source is a duplicate
// when its DOI or its title key has been seen before. DOI is checked first.
//
// State only grows. A Deduplicator belongs to one query and is not safe
// for concurrent use.
type Deduplicator struct {
	seenDOIs      map[string]struct{}
	seenTitleKeys map[string]struct{}
	stats         Stats
}

// New creates an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{
		seenDOIs:      make(map[string]struct{}),
		seenTitleKeys: make(map[string]struct{}),
	}
}

// Accept reports whether src is new, recording its keys if so.
func (d *Deduplicator) Accept(src *domain.Source) bool {
	ok, _ := d.Check(src)
	return ok
}

// Check is Accept with the rejection reason.
func (d *Deduplicator) Check(src *domain.Source) (bool, Reason) {
	if src.DOI != "" {
		if _, seen := d.seenDOIs[src.DOI]; seen {
			d.stats.RejectedDOI++
			return false, ReasonDOI
		}
	}

	// A punctuation-only title has the empty key, which is recorded like
	// any other so such records are still emitted at most once.
	key := normalize.TitleKey(src.Title)
	if _, seen := d.seenTitleKeys[key]; seen {
		d.stats.RejectedTitle++
		return false, ReasonTitleKey
	}

	if src.DOI != "" {
		d.seenDOIs[src.DOI] = struct{}{}
	}
	d.seenTitleKeys[key] = struct{}{}
	d.stats.Accepted++
	return true, ReasonNone
}

// Filter returns the sources in srcs that Accept admits, preserving order.
func (d *Deduplicator) Filter(srcs []*domain.Source) []*domain.Source {
	out := make([]*domain.Source, 0, len(srcs))
	for _, s := range srcs {
		if d.Accept(s) {
			out = append(out, s)
		}
	}
	return out
}

// Stats returns the decisions made so far.
func (d *Deduplicator) Stats() Stats {
	return d.stats
}
