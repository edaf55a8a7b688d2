package doaj

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default DOAJ API base URL.
	DefaultBaseURL = "https://doaj.org/api"

	// DefaultRateLimit is the default rate limit (2 requests per second).
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 20

	// MaxResultsLimit is the DOAJ pageSize ceiling.
	MaxResultsLimit = 100

	// sourceName is the human-readable name for this source.
	sourceName = "DOAJ"
)

// Config holds configuration for the DOAJ client.
type Config struct {
	// BaseURL is the DOAJ API base URL.
	BaseURL string

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

// Client implements papersources.Adapter for DOAJ.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.Adapter = (*Client)(nil)

// New creates a new DOAJ client with the given configuration.
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

// NewWithHTTPClient creates a new DOAJ client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Provider returns domain.ProviderDOAJ.
func (c *Client) Provider() domain.Provider {
	return domain.ProviderDOAJ
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI runs a doi:"..." query and returns the first hit.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	records, err := c.search(ctx, fieldQuery("doi", doi), papersources.SearchParams{Limit: 1})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return papersources.OK(nil)
		}
		return papersources.Fail(domain.ProviderDOAJ, papersources.OpSearchByDOI, err)
	}
	if len(records) == 0 {
		return papersources.OK(nil)
	}
	return papersources.OK(records[0])
}

// SearchByTitle queries bibjson.title.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	records, err := c.search(ctx, fieldQuery("bibjson.title", title), params)
	if err != nil {
		return papersources.Fail(domain.ProviderDOAJ, papersources.OpSearchByTitle, err)
	}
	return papersources.OK(records)
}

// SearchByAuthor queries bibjson.author.name.
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	records, err := c.search(ctx, fieldQuery("bibjson.author.name", author), params)
	if err != nil {
		return papersources.Fail(domain.ProviderDOAJ, papersources.OpSearchByAuthor, err)
	}
	return papersources.OK(records)
}

// SearchByKeyword runs an unfielded query.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	records, err := c.search(ctx, "("+strings.TrimSpace(keyword)+")", params)
	if err != nil {
		return papersources.Fail(domain.ProviderDOAJ, papersources.OpSearchByKeyword, err)
	}
	return papersources.OK(records)
}

func (c *Client) search(ctx context.Context, q string, params papersources.SearchParams) ([]papersources.RawRecord, error) {
	if !c.config.Enabled {
		return nil, papersources.ErrDisabled
	}

	u, err := c.buildSearchURL(buildQuery(q, params), params)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, u, &resp); err != nil {
		return nil, err
	}

	records := make([]papersources.RawRecord, 0, len(resp.Results))
	for i := range resp.Results {
		records = append(records, articleToRecord(&resp.Results[i]))
	}
	return records, nil
}

// buildSearchURL places the escaped query in the path. A DOI's slash must
// stay inside one path segment, so the URL is assembled by hand.
func (c *Client) buildSearchURL(q string, params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	query := url.Values{}
	query.Set("page", "1")
	query.Set("pageSize", strconv.Itoa(params.LimitOr(c.config.MaxResults, MaxResultsLimit)))

	base := strings.TrimRight(baseURL.String(), "/")
	return base + "/search/articles/" + url.PathEscape(q) + "?" + query.Encode(), nil
}

// buildQuery adds the year window as a range clause. DOAJ only lists open
// access journals, so OpenAccessOnly needs no clause.
func buildQuery(q string, params papersources.SearchParams) string {
	if params.YearFrom == 0 && params.YearTo == 0 {
		return q
	}
	from, to := "*", "*"
	if params.YearFrom > 0 {
		from = strconv.Itoa(params.YearFrom)
	}
	if params.YearTo > 0 {
		to = strconv.Itoa(params.YearTo)
	}
	return fmt.Sprintf("%s AND bibjson.year:[%s TO %s]", q, from, to)
}

// fieldQuery renders field:"value" with embedded quotes removed.
func fieldQuery(field, value string) string {
	value = strings.Join(strings.Fields(strings.ReplaceAll(value, `"`, " ")), " ")
	return field + `:"` + value + `"`
}

// articleToRecord copies a DOAJ article into a RawRecord.
func articleToRecord(a *Article) papersources.RawRecord {
	b := a.BibJSON
	rec := papersources.RawRecord{
		Title:     b.Title,
		Date:      b.Year,
		Container: b.Journal.Title,
		Publisher: b.Journal.Publisher,
		Volume:    b.Journal.Volume,
		Issue:     b.Journal.Number,
		FirstPage: b.StartPage,
		LastPage:  b.EndPage,
		Abstract:  b.Abstract,
		ISSN:      b.Journal.ISSNs,
		Type:      "journal-article",
	}
	if a.ID != "" {
		rec.URL = "https://doaj.org/article/" + a.ID
	}

	for _, id := range b.Identifier {
		switch strings.ToLower(id.Type) {
		case "doi":
			rec.DOI = id.ID
		case "pissn", "eissn":
			if len(b.Journal.ISSNs) == 0 {
				rec.ISSN = append(rec.ISSN, id.ID)
			}
		}
	}

	for _, au := range b.Author {
		if au.Name != "" {
			rec.Authors = append(rec.Authors, papersources.RawAuthor{Name: au.Name})
		}
	}
	for _, l := range b.Link {
		if l.URL != "" {
			rec.Links = append(rec.Links, papersources.Link{URL: l.URL, Type: l.ContentType})
		}
	}
	return rec
}
