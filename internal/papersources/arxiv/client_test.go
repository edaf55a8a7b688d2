package arxiv

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

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <opensearch:totalResults>2</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All
      You Need</title>
    <summary>  The dominant sequence transduction models are based on complex recurrent networks.  </summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
    <arxiv:journal_ref>NeurIPS 2017</arxiv:journal_ref>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/hep-th/9901001v1</id>
    <published>1999-01-01T00:00:00Z</published>
    <title>An Old Identifier</title>
    <summary>Legacy.</summary>
    <author><name>A. Physicist</name></author>
    <arxiv:doi>10.1000/legacy.1</arxiv:doi>
  </entry>
</feed>`

const errorFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format_for_bogus</id>
    <title>Error</title>
    <summary>incorrect id format for bogus</summary>
  </entry>
</feed>`

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
	return NewWithHTTPClient(Config{BaseURL: server.URL, Enabled: true}, httpClient)
}

func serveFeed(feed string, got *url.Values) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			*got = r.URL.Query()
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(feed))
	}
}

func TestNew(t *testing.T) {
	client := New(Config{})

	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultMaxResults, client.config.MaxResults)
	assert.Equal(t, domain.ProviderArXiv, client.Provider())
	assert.Equal(t, "arXiv", client.Name())
	assert.False(t, client.IsEnabled())
}

func TestClient_SearchByTitle(t *testing.T) {
	var got url.Values
	client := newTestClient(t, serveFeed(atomFeed, &got))

	resp := client.SearchByTitle(context.Background(), "attention is all you need", papersources.SearchParams{Limit: 5})
	require.True(t, resp.Success, "unexpected error: %v", resp.Err)

	assert.Equal(t, `ti:"attention is all you need"`, got.Get("search_query"))
	assert.Equal(t, "5", got.Get("max_results"))

	records := papersources.ExtractRecords(client, resp.Data)
	require.Len(t, records, 2)

	first := records[0]
	assert.Contains(t, first.Title, "Attention Is All")
	assert.Equal(t, "2017-06-12T17:57:34Z", first.Date)
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", first.URL)
	assert.Equal(t, "NeurIPS 2017", first.Container)
	assert.Equal(t, "preprint", first.Type)
	require.Len(t, first.Authors, 2)
	assert.Equal(t, "Ashish Vaswani", first.Authors[0].Name)
	assert.Contains(t, first.Identifiers, papersources.Identifier{Type: "doi", Value: "10.48550/arXiv.1706.03762"})
	require.Len(t, first.Links, 1)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v7", first.Links[0].URL)

	second := records[1]
	assert.Equal(t, "10.1000/legacy.1", second.DOI)
	assert.Equal(t, "https://arxiv.org/abs/hep-th/9901001", second.URL)
}

func TestClient_SearchByAuthorAndKeyword(t *testing.T) {
	var got url.Values
	client := newTestClient(t, serveFeed(atomFeed, &got))

	resp := client.SearchByAuthor(context.Background(), "Vaswani", papersources.SearchParams{YearFrom: 2017, YearTo: 2018})
	require.True(t, resp.Success)
	assert.Equal(t, "au:Vaswani AND submittedDate:[201701010000 TO 201812312359]", got.Get("search_query"))
	assert.Equal(t, "20", got.Get("max_results"))

	resp = client.SearchByKeyword(context.Background(), "transformer  attention", papersources.SearchParams{})
	require.True(t, resp.Success)
	assert.Equal(t, "all:transformer AND all:attention", got.Get("search_query"))
}

func TestClient_SearchByDOI(t *testing.T) {
	t.Run("arXiv DOI resolves through id_list", func(t *testing.T) {
		var got url.Values
		client := newTestClient(t, serveFeed(atomFeed, &got))

		resp := client.SearchByDOI(context.Background(), "https://doi.org/10.48550/arXiv.1706.03762")
		require.True(t, resp.Success)
		assert.Equal(t, "1706.03762", got.Get("id_list"))

		records := papersources.ExtractRecords(client, resp.Data)
		require.Len(t, records, 1)
		assert.Contains(t, records[0].Title, "Attention")
	})

	t.Run("foreign DOI is an empty success without a request", func(t *testing.T) {
		called := false
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

		resp := client.SearchByDOI(context.Background(), "10.1038/nature14539")
		require.True(t, resp.Success)
		assert.Nil(t, resp.Data)
		assert.False(t, called)
	})

	t.Run("error entries are dropped", func(t *testing.T) {
		client := newTestClient(t, serveFeed(errorFeed, nil))

		resp := client.SearchByDOI(context.Background(), "10.48550/arXiv.bogus")
		require.True(t, resp.Success)
		assert.Nil(t, resp.Data)
	})
}

func TestClient_Failures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	resp := client.SearchByKeyword(context.Background(), "x", papersources.SearchParams{})
	require.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, domain.ErrAdapterFailure)

	disabled := NewWithHTTPClient(Config{}, nil)
	resp = disabled.SearchByTitle(context.Background(), "x", papersources.SearchParams{})
	assert.ErrorIs(t, resp.Err, papersources.ErrDisabled)
}

func TestExtractArXivID(t *testing.T) {
	tests := map[string]string{
		"http://arxiv.org/abs/2301.12345v1":    "2301.12345",
		"http://arxiv.org/abs/2301.12345":      "2301.12345",
		"http://arxiv.org/abs/hep-th/9901001v2": "hep-th/9901001",
		"http://arxiv.org/api/errors#bad":      "",
		"":                                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractArXivID(in), in)
	}
}

func TestBuildDateFilter(t *testing.T) {
	assert.Empty(t, buildDateFilter(0, 0))
	assert.Equal(t, "submittedDate:[202001010000 TO *]", buildDateFilter(2020, 0))
	assert.Equal(t, "submittedDate:[* TO 201912312359]", buildDateFilter(0, 2019))
}
