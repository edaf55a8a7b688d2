package openalex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
)

const workJSON = `{
  "id": "https://openalex.org/W2741809807",
  "doi": "https://doi.org/10.7717/peerj.4375",
  "title": "The state of OA: a large-scale analysis",
  "display_name": "The state of OA: a large-scale analysis",
  "publication_year": 2018,
  "publication_date": "2018-02-13",
  "type": "article",
  "open_access": {"is_oa": true, "oa_url": "https://peerj.com/articles/4375.pdf", "oa_status": "gold"},
  "authorships": [
    {"author_position": "first", "author": {"id": "A1", "display_name": "Heather Piwowar"}},
    {"author_position": "last", "author": {"id": "A2", "display_name": ""}, "raw_author_name": "Stefanie Haustein"}
  ],
  "primary_location": {
    "landing_page_url": "https://doi.org/10.7717/peerj.4375",
    "pdf_url": "https://peerj.com/articles/4375.pdf",
    "source": {"display_name": "PeerJ", "issn_l": "2167-8359", "issn": ["2167-8359"], "host_organization_name": "PeerJ, Inc."}
  },
  "biblio": {"volume": "6", "issue": null, "first_page": "e4375", "last_page": "e4375"},
  "ids": {"openalex": "https://openalex.org/W2741809807", "doi": "https://doi.org/10.7717/peerj.4375", "pmid": "https://pubmed.ncbi.nlm.nih.gov/29456894"},
  "abstract_inverted_index": {"Despite": [0], "growing": [1], "interest": [2]}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    5 * time.Second,
		RateLimit:  1000,
		BurstSize:  100,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	return NewWithHTTPClient(Config{BaseURL: server.URL, Email: "ops@example.org", Enabled: true}, httpClient)
}

func writeJSON(body string, got *url.URL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			*got = *r.URL
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestNew(t *testing.T) {
	client := New(Config{Enabled: true})

	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultMaxResults, client.config.MaxResults)
	assert.Equal(t, domain.ProviderOpenAlex, client.Provider())
	assert.Equal(t, "OpenAlex", client.Name())
	assert.True(t, client.IsEnabled())
}

func TestClient_SearchByKeyword(t *testing.T) {
	var got url.URL
	client := newTestClient(t, writeJSON(`{"meta":{"count":1},"results":[`+workJSON+`]}`, &got))

	resp := client.SearchByKeyword(context.Background(), "open access", papersources.SearchParams{
		Limit:          10,
		YearFrom:       2015,
		OpenAccessOnly: true,
	})
	require.True(t, resp.Success, "unexpected error: %v", resp.Err)

	q := got.Query()
	assert.Equal(t, "/works", got.Path)
	assert.Equal(t, "open access", q.Get("search"))
	assert.Equal(t, "from_publication_date:2015-01-01,is_oa:true", q.Get("filter"))
	assert.Equal(t, "10", q.Get("per_page"))
	assert.Equal(t, "ops@example.org", q.Get("mailto"))

	records := papersources.ExtractRecords(client, resp.Data)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "The state of OA: a large-scale analysis", rec.Title)
	assert.Equal(t, "https://doi.org/10.7717/peerj.4375", rec.DOI)
	assert.Equal(t, 2018, rec.Year)
	assert.Equal(t, "article", rec.Type)
	assert.Equal(t, "PeerJ", rec.Container)
	assert.Equal(t, "PeerJ, Inc.", rec.Publisher)
	assert.Equal(t, "6", rec.Volume)
	assert.Equal(t, "e4375", rec.FirstPage)
	assert.Equal(t, []string{"2167-8359", "2167-8359"}, rec.ISSN)
	assert.Equal(t, "https://doi.org/10.7717/peerj.4375", rec.URL)
	assert.Equal(t, []papersources.RawAuthor{{Name: "Heather Piwowar"}, {Name: "Stefanie Haustein"}}, rec.Authors)
	assert.Equal(t, []int{0}, rec.AbstractInvertedIndex["Despite"])
}

func TestClient_SearchByTitleAndAuthor(t *testing.T) {
	var got url.URL
	client := newTestClient(t, writeJSON(`{"meta":{"count":0},"results":[]}`, &got))

	resp := client.SearchByTitle(context.Background(), "state of OA: analysis, 2018", papersources.SearchParams{YearTo: 2020})
	require.True(t, resp.Success)
	assert.Empty(t, got.Query().Get("search"))
	assert.Equal(t, "title.search:state of OA analysis 2018,to_publication_date:2020-12-31", got.Query().Get("filter"))
	assert.Equal(t, "25", got.Query().Get("per_page"))

	resp = client.SearchByAuthor(context.Background(), "Piwowar", papersources.SearchParams{Limit: 1000})
	require.True(t, resp.Success)
	assert.Equal(t, "raw_author_name.search:Piwowar", got.Query().Get("filter"))
	assert.Equal(t, "200", got.Query().Get("per_page"))
	assert.Empty(t, papersources.ExtractRecords(client, resp.Data))
}

func TestClient_SearchByDOI(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		var got url.URL
		client := newTestClient(t, writeJSON(workJSON, &got))

		resp := client.SearchByDOI(context.Background(), "10.7717/peerj.4375")
		require.True(t, resp.Success)
		assert.Equal(t, "/works/doi:10.7717/peerj.4375", got.Path)

		records := papersources.ExtractRecords(client, resp.Data)
		require.Len(t, records, 1)
		assert.Equal(t, "PeerJ", records[0].Container)
	})

	t.Run("404 is an empty success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		resp := client.SearchByDOI(context.Background(), "10.9999/missing")
		require.True(t, resp.Success)
		assert.Nil(t, resp.Data)
	})
}

func TestClient_Failures(t *testing.T) {
	t.Run("server error after retries", func(t *testing.T) {
		calls := 0
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		resp := client.SearchByKeyword(context.Background(), "x", papersources.SearchParams{})
		require.False(t, resp.Success)
		assert.ErrorIs(t, resp.Err, domain.ErrAdapterFailure)
		assert.Equal(t, 2, calls, "one attempt plus one retry")
	})

	t.Run("malformed JSON", func(t *testing.T) {
		client := newTestClient(t, writeJSON(`{"results": [`, nil))

		resp := client.SearchByKeyword(context.Background(), "x", papersources.SearchParams{})
		require.False(t, resp.Success)
		assert.Contains(t, resp.Err.Error(), "decoding OpenAlex response")
	})

	t.Run("disabled", func(t *testing.T) {
		client := NewWithHTTPClient(Config{}, nil)
		resp := client.SearchByDOI(context.Background(), "10.1/x")
		assert.ErrorIs(t, resp.Err, papersources.ErrDisabled)
	})
}

func TestFilterValue(t *testing.T) {
	assert.Equal(t, "a b c", filterValue("a, b|c"))
	assert.Equal(t, "x y", filterValue("  x:  y "))
}
