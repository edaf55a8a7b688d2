package europepmc

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Europe PMC API base URL.
	DefaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

	// DefaultRateLimit is the default rate limit (5 requests per second).
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 25

	// MaxResultsLimit is the Europe PMC pageSize ceiling.
	MaxResultsLimit = 1000

	// sourceName is the human-readable name for this source.
	sourceName = "Europe PMC"
)

// Config holds configuration for the Europe PMC client.
type Config struct {
	// BaseURL is the Europe PMC API base URL.
	BaseURL string

	// Filter is ANDed onto every query, e.g. `(SRC:PPR)`.
	Filter string

	// Provider overrides the provider attributed in errors. Defaults to
	// domain.ProviderEuropePMC.
	Provider domain.Provider

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default number of results per search request.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Provider == "" {
		c.Provider = domain.ProviderEuropePMC
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements papersources.Adapter for Europe PMC.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.Adapter = (*Client)(nil)

// New creates a new Europe PMC client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Europe PMC client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Provider returns the provider this client reports as.
func (c *Client) Provider() domain.Provider {
	return c.config.Provider
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI searches the DOI: field and returns the first hit.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	records, err := c.Query(ctx, "DOI:"+quote(doi), papersources.SearchParams{Limit: 1})
	if err != nil {
		return papersources.Fail(c.config.Provider, papersources.OpSearchByDOI, err)
	}
	if len(records) == 0 {
		return papersources.OK(nil)
	}
	return papersources.OK(records[0])
}

// SearchByTitle searches the TITLE: field.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	return c.respond(ctx, papersources.OpSearchByTitle, "TITLE:"+quote(title), params)
}

// SearchByAuthor searches the AUTH: field.
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	return c.respond(ctx, papersources.OpSearchByAuthor, "AUTH:"+quote(author), params)
}

// SearchByKeyword passes the keywords through as a free-text query.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	return c.respond(ctx, papersources.OpSearchByKeyword, "("+keyword+")", params)
}

func (c *Client) respond(ctx context.Context, op, query string, params papersources.SearchParams) papersources.Response {
	records, err := c.Query(ctx, query, params)
	if err != nil {
		return papersources.Fail(c.config.Provider, op, err)
	}
	return papersources.OK(records)
}

// Query runs a raw Europe PMC query, with the configured filter and the
// params pushed down, and returns the hits as raw records.
func (c *Client) Query(ctx context.Context, query string, params papersources.SearchParams) ([]papersources.RawRecord, error) {
	if !c.config.Enabled {
		return nil, papersources.ErrDisabled
	}

	searchURL, err := c.buildSearchURL(query, params)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, searchURL, &resp); err != nil {
		return nil, err
	}

	records := make([]papersources.RawRecord, 0, len(resp.ResultList.Result))
	for i := range resp.ResultList.Result {
		records = append(records, ArticleToRecord(&resp.ResultList.Result[i]))
	}
	return records, nil
}

// buildSearchURL constructs the Europe PMC search API URL.
func (c *Client) buildSearchURL(query string, params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/search"

	parts := []string{query}
	if c.config.Filter != "" {
		parts = append(parts, c.config.Filter)
	}
	if f := buildYearFilter(params.YearFrom, params.YearTo); f != "" {
		parts = append(parts, f)
	}
	if params.OpenAccessOnly {
		parts = append(parts, "(OPEN_ACCESS:Y)")
	}

	urlQuery := url.Values{}
	urlQuery.Set("query", strings.Join(parts, " AND "))
	urlQuery.Set("format", "json")
	urlQuery.Set("resultType", "core")
	urlQuery.Set("pageSize", strconv.Itoa(params.LimitOr(c.config.MaxResults, MaxResultsLimit)))

	baseURL.RawQuery = urlQuery.Encode()
	return baseURL.String(), nil
}

// buildYearFilter constructs the Europe PMC publication year range.
func buildYearFilter(from, to int) string {
	if from == 0 && to == 0 {
		return ""
	}
	fromStr, toStr := "1000", "3000"
	if from > 0 {
		fromStr = strconv.Itoa(from)
	}
	if to > 0 {
		toStr = strconv.Itoa(to)
	}
	return fmt.Sprintf("(PUB_YEAR:[%s TO %s])", fromStr, toStr)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(s), `"`, "") + `"`
}

// ArticleToRecord copies a Europe PMC article into a RawRecord.
func ArticleToRecord(a *Article) papersources.RawRecord {
	rec := papersources.RawRecord{
		Title:        a.Title,
		DOI:          a.DOI,
		AuthorString: a.AuthorString,
		Date:         a.FirstPublicationDate,
		Pages:        a.PageInfo,
		Abstract:     a.AbstractText,
	}
	if y, err := strconv.Atoi(a.PubYear); err == nil {
		rec.Year = y
	}

	if a.AuthorList != nil {
		for _, au := range a.AuthorList.Author {
			rec.Authors = append(rec.Authors, papersources.RawAuthor{
				Name:   au.FullName,
				Given:  au.FirstName,
				Family: au.LastName,
			})
		}
	}

	if ji := a.JournalInfo; ji != nil {
		rec.Container = ji.Journal.Title
		rec.Volume = ji.Volume
		rec.Issue = ji.Issue
		for _, issn := range []string{ji.Journal.ISSN, ji.Journal.ESSN} {
			if issn != "" {
				rec.ISSN = append(rec.ISSN, issn)
			}
		}
		if rec.Year == 0 {
			rec.Year = ji.YearOfPublication
		}
	}

	if b := a.BookOrReportDetails; b != nil {
		rec.Publisher = b.Publisher
		for _, isbn := range []string{b.ISBN13, b.ISBN10} {
			if isbn != "" {
				rec.ISBN = append(rec.ISBN, isbn)
			}
		}
	}

	if a.PubTypeList != nil && len(a.PubTypeList.PubType) > 0 {
		rec.Type = a.PubTypeList.PubType[0]
	}
	if a.Source == "PPR" {
		rec.Type = "preprint"
	}

	if a.PMID != "" {
		rec.Identifiers = append(rec.Identifiers, papersources.Identifier{Type: "pmid", Value: a.PMID})
	}
	if a.Source != "" && a.ID != "" {
		rec.URL = fmt.Sprintf("https://europepmc.org/article/%s/%s", a.Source, a.ID)
	}
	if a.FullTextURLList != nil {
		for _, ft := range a.FullTextURLList.FullTextURL {
			rec.Links = append(rec.Links, papersources.Link{URL: ft.URL, Type: ft.DocumentStyle})
		}
	}

	return rec
}
