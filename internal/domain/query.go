package domain

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters (spaces, tabs, newlines).
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Limits applied to SearchQuery.Limit.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filters narrows a search. Zero values mean "unbounded".
type Filters struct {
	// YearFrom drops records published before this year. Records with an
	// unknown year are kept.
	YearFrom int `json:"yearFrom,omitempty"`

	// YearTo drops records published after this year.
	YearTo int `json:"yearTo,omitempty"`

	// OpenAccessOnly is forwarded to providers that support it.
	OpenAccessOnly bool `json:"openAccessOnly,omitempty"`

	// Providers restricts the fan-out to a subset, preserving registry order.
	Providers []Provider `json:"providers,omitempty"`
}

// SearchQuery is a validated user query. It is built once per request and
// not mutated afterwards.
type SearchQuery struct {
	Query   string    `json:"query"`
	Type    QueryType `json:"type"`
	Limit   int       `json:"limit"`
	Filters Filters   `json:"filters"`
}

// NormalizeQuery trims the query and collapses internal whitespace.
// Case is preserved; the cache key lowercases separately.
func NormalizeQuery(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// NewSearchQuery builds a SearchQuery, applying defaults and validating it.
// maxLimit bounds Limit; pass 0 to use MaxLimit.
func NewSearchQuery(query string, qt QueryType, limit int, filters Filters, maxLimit int) (SearchQuery, error) {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	q := SearchQuery{
		Query:   NormalizeQuery(query),
		Type:    QueryType(strings.ToLower(string(qt))),
		Limit:   limit,
		Filters: filters,
	}
	if q.Type == "" {
		q.Type = QueryTypeKeyword
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	if err := q.Validate(); err != nil {
		return SearchQuery{}, err
	}
	return q, nil
}

// Validate checks the query for conditions that make it unanswerable.
func (q SearchQuery) Validate() error {
	if q.Query == "" {
		return NewInvalidQueryError("query", "must not be empty")
	}
	if !q.Type.IsValid() {
		return NewInvalidQueryError("type", fmt.Sprintf("unsupported query type %q", q.Type))
	}
	if q.Limit <= 0 {
		return NewInvalidQueryError("limit", "must be positive")
	}
	if q.Filters.YearFrom != 0 && q.Filters.YearTo != 0 && q.Filters.YearFrom > q.Filters.YearTo {
		return NewInvalidQueryError("filters.yearTo", "must not be before yearFrom")
	}
	for _, p := range q.Filters.Providers {
		if !p.IsValid() {
			return NewInvalidQueryError("filters.providers", fmt.Sprintf("unknown provider %q", p))
		}
	}
	return nil
}

// YearInRange reports whether year passes the year filters. Unknown years
// (zero) always pass.
func (f Filters) YearInRange(year int) bool {
	if year == 0 {
		return true
	}
	if f.YearFrom != 0 && year < f.YearFrom {
		return false
	}
	if f.YearTo != 0 && year > f.YearTo {
		return false
	}
	return true
}

// CacheKey computes a deterministic SHA-256 key over every field that can
// change the result of the query.
func (q SearchQuery) CacheKey() string {
	providers := make([]string, 0, len(q.Filters.Providers))
	for _, p := range q.Filters.Providers {
		providers = append(providers, string(p))
	}
	sort.Strings(providers)

	input := fmt.Sprintf("%s|%s|%d|%d|%d|%t|%s",
		q.Type,
		strings.ToLower(q.Query),
		q.Limit,
		q.Filters.YearFrom,
		q.Filters.YearTo,
		q.Filters.OpenAccessOnly,
		strings.Join(providers, ","),
	)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("search:%x", hash)
}
