package biorxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
)

const detailsJSON = `{
  "messages": [{"status": "ok"}],
  "collection": [
    {"doi": "10.1101/2020.03.01.972133", "title": "Old version", "authors": "Smith, J.; Doe, A.",
     "date": "2020-03-02", "version": "1", "type": "new results", "category": "microbiology",
     "abstract": "v1", "published": "NA", "server": "biorxiv"},
    {"doi": "10.1101/2020.03.01.972133", "title": "SARS-CoV-2 entry factors", "authors": "Smith, J.; Doe, A.",
     "date": "2020-03-20", "version": "2", "type": "new results", "category": "microbiology",
     "abstract": "We identify entry factors.", "published": "10.1016/j.cell.2020.04.001", "server": "biorxiv"}
  ]
}`

const europePMCJSON = `{"hitCount":1,"resultList":{"result":[
  {"id":"PPR1","source":"PPR","doi":"10.1101/2021.01.01.1","title":"Preprint hit","authorString":"Smith J","pubYear":"2021"}
]}}`

type routes struct {
	europePMCQuery string
	detailsPath    string
}

func newTestClient(t *testing.T, cfg Config, details string, status int) (*Client, *routes) {
	t.Helper()
	seen := &routes{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/epmc/search"):
			seen.europePMCQuery = r.URL.Query().Get("query")
			_, _ = w.Write([]byte(europePMCJSON))
		case strings.HasPrefix(r.URL.Path, "/details/"):
			seen.detailsPath = r.URL.Path
			w.WriteHeader(status)
			_, _ = w.Write([]byte(details))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	cfg.SearchBaseURL = server.URL + "/epmc"
	cfg.DetailsBaseURL = server.URL
	cfg.Enabled = true
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    5 * time.Second,
		RateLimit:  1000,
		BurstSize:  100,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	return NewWithHTTPClient(cfg, httpClient), seen
}

func TestNew(t *testing.T) {
	client := New(Config{})

	assert.Equal(t, DefaultDetailsURL, client.config.DetailsBaseURL)
	assert.Equal(t, DefaultServer, client.config.Server)
	assert.Equal(t, domain.ProviderBioRxiv, client.Provider())
	assert.Equal(t, domain.ProviderBioRxiv, client.search.Provider())
	assert.Equal(t, "bioRxiv", client.Name())
}

func TestClient_SearchByTitle_UsesEuropePMC(t *testing.T) {
	client, seen := newTestClient(t, Config{}, "", http.StatusOK)

	resp := client.SearchByTitle(context.Background(), "entry factors", papersources.SearchParams{})
	require.True(t, resp.Success, "unexpected error: %v", resp.Err)
	assert.Equal(t, `TITLE:"entry factors" AND (SRC:PPR) AND (PUBLISHER:"bioRxiv")`, seen.europePMCQuery)

	records := papersources.ExtractRecords(client, resp.Data)
	require.Len(t, records, 1)
	assert.Equal(t, "Preprint hit", records[0].Title)
	assert.Equal(t, "preprint", records[0].Type)
}

func TestClient_MedRxivFilter(t *testing.T) {
	client, seen := newTestClient(t, Config{Server: "medrxiv"}, "", http.StatusOK)

	resp := client.SearchByKeyword(context.Background(), "covid", papersources.SearchParams{})
	require.True(t, resp.Success)
	assert.Equal(t, `(covid) AND (SRC:PPR) AND (PUBLISHER:"medRxiv")`, seen.europePMCQuery)
}

func TestClient_SearchByDOI(t *testing.T) {
	t.Run("latest version wins", func(t *testing.T) {
		client, seen := newTestClient(t, Config{}, detailsJSON, http.StatusOK)

		resp := client.SearchByDOI(context.Background(), "10.1101/2020.03.01.972133")
		require.True(t, resp.Success, "unexpected error: %v", resp.Err)
		assert.Equal(t, "/details/biorxiv/10.1101/2020.03.01.972133", seen.detailsPath)

		records := papersources.ExtractRecords(client, resp.Data)
		require.Len(t, records, 1)

		rec := records[0]
		assert.Equal(t, "SARS-CoV-2 entry factors", rec.Title)
		assert.Equal(t, "Smith, J.; Doe, A.", rec.AuthorString)
		assert.Equal(t, "2020-03-20", rec.Date)
		assert.Equal(t, "https://www.biorxiv.org/content/10.1101/2020.03.01.972133v2", rec.URL)
		assert.Equal(t, "bioRxiv", rec.Container)
		assert.Equal(t, []papersources.Identifier{{Type: "published_doi", Value: "10.1016/j.cell.2020.04.001"}}, rec.Identifiers)
	})

	t.Run("empty collection", func(t *testing.T) {
		client, _ := newTestClient(t, Config{}, `{"messages":[{"status":"no posts found"}],"collection":[]}`, http.StatusOK)

		resp := client.SearchByDOI(context.Background(), "10.1101/none")
		require.True(t, resp.Success)
		assert.Nil(t, resp.Data)
	})

	t.Run("404", func(t *testing.T) {
		client, _ := newTestClient(t, Config{}, "", http.StatusNotFound)

		resp := client.SearchByDOI(context.Background(), "10.1101/none")
		require.True(t, resp.Success)
		assert.Nil(t, resp.Data)
	})

	t.Run("server error", func(t *testing.T) {
		client, _ := newTestClient(t, Config{}, "boom", http.StatusBadGateway)

		resp := client.SearchByDOI(context.Background(), "10.1101/x")
		require.False(t, resp.Success)
		assert.ErrorIs(t, resp.Err, domain.ErrAdapterFailure)
	})
}

func TestClient_Disabled(t *testing.T) {
	client := NewWithHTTPClient(Config{}, nil)

	assert.ErrorIs(t, client.SearchByDOI(context.Background(), "10.1/x").Err, papersources.ErrDisabled)
	assert.ErrorIs(t, client.SearchByAuthor(context.Background(), "x", papersources.SearchParams{}).Err, papersources.ErrDisabled)
}
