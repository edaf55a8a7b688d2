package doaj

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
)

const searchJSON = `{
  "total": 1, "page": 1, "pageSize": 10,
  "results": [{
    "id": "3f2a9c",
    "bibjson": {
      "title": "Malaria transmission in highland Kenya",
      "author": [{"name": "Wanjiru Kamau", "affiliation": "KEMRI"}, {"name": "Otieno Ouma"}],
      "year": "2019", "month": "4",
      "journal": {"title": "Malaria Journal", "volume": "18", "number": "1",
        "publisher": "BMC", "issns": ["1475-2875"]},
      "start_page": "101", "end_page": "112",
      "identifier": [{"type": "doi", "id": "10.1186/s12936-019-2730-1"}, {"type": "eissn", "id": "1475-2875"}],
      "link": [{"type": "fulltext", "url": "https://malariajournal.biomedcentral.com/articles/10.1186/s12936-019-2730-1", "content_type": "HTML"}],
      "abstract": "Highland transmission is rising."
    }
  }]
}`

type capture struct {
	path     string
	rawPath  string
	pageSize string
}

func newTestClient(t *testing.T, status int, body string) (*Client, *capture) {
	t.Helper()
	seen := &capture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.path = r.URL.Path
		seen.rawPath = r.URL.EscapedPath()
		seen.pageSize = r.URL.Query().Get("pageSize")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    5 * time.Second,
		RateLimit:  1000,
		BurstSize:  100,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	return NewWithHTTPClient(Config{BaseURL: server.URL + "/api", Enabled: true}, httpClient), seen
}

func TestNew(t *testing.T) {
	client := New(Config{})

	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, domain.ProviderDOAJ, client.Provider())
	assert.Equal(t, "DOAJ", client.Name())
	assert.False(t, client.IsEnabled())
}

func TestClient_Queries(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *Client) papersources.Response
		wantPath string
		wantSize string
	}{
		{
			name: "title",
			call: func(c *Client) papersources.Response {
				return c.SearchByTitle(context.Background(), "malaria transmission", papersources.SearchParams{Limit: 5})
			},
			wantPath: `/api/search/articles/bibjson.title:"malaria transmission"`,
			wantSize: "5",
		},
		{
			name: "author with year range",
			call: func(c *Client) papersources.Response {
				return c.SearchByAuthor(context.Background(), "Kamau", papersources.SearchParams{YearFrom: 2015})
			},
			wantPath: `/api/search/articles/bibjson.author.name:"Kamau" AND bibjson.year:[2015 TO *]`,
			wantSize: "20",
		},
		{
			name: "keyword",
			call: func(c *Client) papersources.Response {
				return c.SearchByKeyword(context.Background(), "malaria", papersources.SearchParams{Limit: 1000})
			},
			wantPath: `/api/search/articles/(malaria)`,
			wantSize: "100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, seen := newTestClient(t, http.StatusOK, searchJSON)

			resp := tt.call(client)
			require.True(t, resp.Success, "unexpected error: %v", resp.Err)
			assert.Equal(t, tt.wantPath, seen.path)
			assert.Equal(t, tt.wantSize, seen.pageSize)
		})
	}
}

func TestClient_ArticleMapping(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, searchJSON)

	resp := client.SearchByKeyword(context.Background(), "malaria", papersources.SearchParams{})
	require.True(t, resp.Success)

	records := papersources.ExtractRecords(client, resp.Data)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Malaria transmission in highland Kenya", rec.Title)
	assert.Equal(t, "10.1186/s12936-019-2730-1", rec.DOI)
	assert.Equal(t, "2019", rec.Date)
	assert.Equal(t, "Malaria Journal", rec.Container)
	assert.Equal(t, "BMC", rec.Publisher)
	assert.Equal(t, "101", rec.FirstPage)
	assert.Equal(t, "112", rec.LastPage)
	assert.Equal(t, []string{"1475-2875"}, rec.ISSN)
	assert.Equal(t, "https://doaj.org/article/3f2a9c", rec.URL)
	require.Len(t, rec.Authors, 2)
	assert.Equal(t, "Otieno Ouma", rec.Authors[1].Name)
	require.Len(t, rec.Links, 1)
}

func TestClient_SearchByDOI(t *testing.T) {
	t.Run("slash stays in one segment", func(t *testing.T) {
		client, seen := newTestClient(t, http.StatusOK, searchJSON)

		resp := client.SearchByDOI(context.Background(), "10.1186/s12936-019-2730-1")
		require.True(t, resp.Success)
		assert.Equal(t, `/api/search/articles/doi:"10.1186/s12936-019-2730-1"`, seen.path)
		assert.Contains(t, seen.rawPath, "%2F")
		assert.Equal(t, "1", seen.pageSize)
		assert.NotNil(t, resp.Data)
	})

	t.Run("no hits", func(t *testing.T) {
		client, _ := newTestClient(t, http.StatusOK, `{"total":0,"results":[]}`)

		resp := client.SearchByDOI(context.Background(), "10.1/none")
		require.True(t, resp.Success)
		assert.Nil(t, resp.Data)
	})
}

func TestClient_Failures(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadRequest, `{"error":"query parse failure"}`)

	resp := client.SearchByTitle(context.Background(), "x", papersources.SearchParams{})
	require.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, domain.ErrAdapterFailure)

	disabled := NewWithHTTPClient(Config{}, nil)
	assert.ErrorIs(t, disabled.SearchByKeyword(context.Background(), "x", papersources.SearchParams{}).Err, papersources.ErrDisabled)
}
