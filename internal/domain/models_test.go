package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "trim both ends", input: "  protein folding  ", expected: "protein folding"},
		{name: "collapse multiple spaces", input: "gene   expression", expected: "gene expression"},
		{name: "collapse tabs and newlines", input: "drug\t\n discovery", expected: "drug discovery"},
		{name: "case preserved", input: "CRISPR Cas9", expected: "CRISPR Cas9"},
		{name: "whitespace only", input: " \t\n ", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeQuery(tt.input))
		})
	}
}

func TestNewSearchQuery(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		q, err := NewSearchQuery(" machine learning ", "", 0, Filters{}, 0)
		require.NoError(t, err)
		assert.Equal(t, "machine learning", q.Query)
		assert.Equal(t, QueryTypeKeyword, q.Type)
		assert.Equal(t, DefaultLimit, q.Limit)
	})

	t.Run("clamps limit to max", func(t *testing.T) {
		q, err := NewSearchQuery("x", QueryTypeTitle, 500, Filters{}, 50)
		require.NoError(t, err)
		assert.Equal(t, 50, q.Limit)
	})

	t.Run("type is case insensitive", func(t *testing.T) {
		q, err := NewSearchQuery("10.1000/xyz", "DOI", 1, Filters{}, 0)
		require.NoError(t, err)
		assert.Equal(t, QueryTypeDOI, q.Type)
	})

	t.Run("empty query is invalid", func(t *testing.T) {
		_, err := NewSearchQuery("   ", QueryTypeKeyword, 10, Filters{}, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidQuery)

		var iqErr *InvalidQueryError
		require.True(t, errors.As(err, &iqErr))
		assert.Equal(t, "query", iqErr.Field)
	})

	t.Run("unknown type is invalid", func(t *testing.T) {
		_, err := NewSearchQuery("x", "isbn", 10, Filters{}, 0)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("inverted year range is invalid", func(t *testing.T) {
		_, err := NewSearchQuery("x", QueryTypeKeyword, 10, Filters{YearFrom: 2020, YearTo: 2010}, 0)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("unknown provider filter is invalid", func(t *testing.T) {
		_, err := NewSearchQuery("x", QueryTypeKeyword, 10, Filters{Providers: []Provider{"scopus"}}, 0)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}

func TestSearchQuery_CacheKey(t *testing.T) {
	base := SearchQuery{Query: "Deep Learning", Type: QueryTypeKeyword, Limit: 10}

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, base.CacheKey(), base.CacheKey())
	})

	t.Run("case insensitive on query text", func(t *testing.T) {
		other := base
		other.Query = "deep learning"
		assert.Equal(t, base.CacheKey(), other.CacheKey())
	})

	t.Run("provider order does not matter", func(t *testing.T) {
		a := base
		a.Filters.Providers = []Provider{ProviderArXiv, ProviderCrossRef}
		b := base
		b.Filters.Providers = []Provider{ProviderCrossRef, ProviderArXiv}
		assert.Equal(t, a.CacheKey(), b.CacheKey())
	})

	t.Run("differs by type limit and filters", func(t *testing.T) {
		byType := base
		byType.Type = QueryTypeTitle
		byLimit := base
		byLimit.Limit = 11
		byYear := base
		byYear.Filters.YearFrom = 2000

		keys := map[string]bool{
			base.CacheKey():    true,
			byType.CacheKey():  true,
			byLimit.CacheKey(): true,
			byYear.CacheKey():  true,
		}
		assert.Len(t, keys, 4)
	})
}

func TestFilters_YearInRange(t *testing.T) {
	f := Filters{YearFrom: 2000, YearTo: 2010}
	assert.True(t, f.YearInRange(0), "unknown year passes")
	assert.True(t, f.YearInRange(2000))
	assert.True(t, f.YearInRange(2010))
	assert.False(t, f.YearInRange(1999))
	assert.False(t, f.YearInRange(2011))
	assert.True(t, Filters{}.YearInRange(1850))
}

func TestProvider(t *testing.T) {
	t.Run("closed set of ten", func(t *testing.T) {
		all := AllProviders()
		assert.Len(t, all, 10)
		seen := make(map[Provider]bool)
		for _, p := range all {
			assert.True(t, p.IsValid())
			assert.False(t, seen[p], "duplicate provider %s", p)
			seen[p] = true
		}
	})

	t.Run("parse", func(t *testing.T) {
		p, err := ParseProvider(" CrossRef ")
		require.NoError(t, err)
		assert.Equal(t, ProviderCrossRef, p)

		_, err = ParseProvider("scopus")
		require.Error(t, err)
	})
}

func TestQueryType_IsValid(t *testing.T) {
	for _, qt := range []QueryType{QueryTypeKeyword, QueryTypeTitle, QueryTypeAuthor, QueryTypeDOI} {
		assert.True(t, qt.IsValid(), qt)
	}
	assert.False(t, QueryType("").IsValid())
	assert.False(t, QueryType("isbn").IsValid())
}

func TestAuthor_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Author{FullName: "Ada Lovelace"}.DisplayName())
	assert.Equal(t, "Ada Lovelace", Author{FirstName: "Ada", LastName: "Lovelace"}.DisplayName())
	assert.Equal(t, "Lovelace", Author{LastName: "Lovelace"}.DisplayName())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("limit", "must be positive")
	assert.Equal(t, "validation error: limit: must be positive", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("error message", func(t *testing.T) {
		err := NewNotFoundError("source", "10.0000/doesnotexist")
		assert.Equal(t, "source not found: 10.0000/doesnotexist", err.Error())
	})

	t.Run("unwrap returns ErrNotFound", func(t *testing.T) {
		err := fmt.Errorf("resolve: %w", NewNotFoundError("source", "x"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAdapterError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAdapterError(ProviderCrossRef, "search_by_title", cause)

	assert.Equal(t, "crossref search_by_title failed: connection refused", err.Error())
	assert.ErrorIs(t, err, ErrAdapterFailure)
	assert.ErrorIs(t, err, cause)

	bare := NewAdapterError(ProviderDOAJ, "search_by_doi", nil)
	assert.Equal(t, "doaj search_by_doi failed", bare.Error())
	assert.ErrorIs(t, bare, ErrAdapterFailure)
}

func TestNormalizationError(t *testing.T) {
	err := NewNormalizationError(ProviderOpenAlex, "missing title")
	assert.Equal(t, "normalize openalex record: missing title", err.Error())
	assert.ErrorIs(t, err, ErrNormalization)
}

func TestExternalAPIError(t *testing.T) {
	cause := errors.New("bad gateway")
	err := NewExternalAPIError("CrossRef", 502, "upstream", cause)
	assert.Equal(t, "CrossRef API error (status 502): upstream", err.Error())
	assert.ErrorIs(t, err, cause)
}
