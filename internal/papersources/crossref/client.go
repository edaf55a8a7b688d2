package crossref

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
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default number of rows per search.
	DefaultMaxResults = 20

	// MaxResultsLimit is the Crossref rows ceiling.
	MaxResultsLimit = 1000

	// selectFields trims the payload to what the normalizer reads.
	selectFields = "DOI,title,subtitle,author,issued,published-print,published-online,URL,type,container-title,publisher,volume,issue,page,ISSN,ISBN,abstract,link"

	// sourceName is the human-readable name for this source.
	sourceName = "Crossref"
)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref API base URL.
	BaseURL string

	// Email is sent as mailto for the polite pool.
	Email string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default number of rows per search.
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

// Client implements papersources.Adapter for Crossref.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.Adapter = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := papersources.DefaultUserAgent
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Provider returns domain.ProviderCrossRef.
func (c *Client) Provider() domain.Provider {
	return domain.ProviderCrossRef
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI fetches /works/{doi}. A 404 is an empty success.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	const op = papersources.OpSearchByDOI
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderCrossRef, op, papersources.ErrDisabled)
	}

	u, err := c.buildURL("works/"+strings.TrimSpace(doi), url.Values{})
	if err != nil {
		return papersources.Fail(domain.ProviderCrossRef, op, err)
	}

	var resp WorkResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, u, &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return papersources.OK(nil)
		}
		return papersources.Fail(domain.ProviderCrossRef, op, err)
	}
	return papersources.OK(workToRecord(&resp.Message))
}

// SearchByTitle queries query.bibliographic.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	return c.search(ctx, papersources.OpSearchByTitle, "query.bibliographic", title, params)
}

// SearchByAuthor queries query.author.
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	return c.search(ctx, papersources.OpSearchByAuthor, "query.author", author, params)
}

// SearchByKeyword queries the free-text query parameter.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	return c.search(ctx, papersources.OpSearchByKeyword, "query", keyword, params)
}

func (c *Client) search(ctx context.Context, op, field, value string, params papersources.SearchParams) papersources.Response {
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderCrossRef, op, papersources.ErrDisabled)
	}

	query := url.Values{}
	query.Set(field, value)
	query.Set("rows", strconv.Itoa(params.LimitOr(c.config.MaxResults, MaxResultsLimit)))
	query.Set("select", selectFields)
	if filters := buildFilters(params); len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	u, err := c.buildURL("works", query)
	if err != nil {
		return papersources.Fail(domain.ProviderCrossRef, op, err)
	}

	var resp ListResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, u, &resp); err != nil {
		return papersources.Fail(domain.ProviderCrossRef, op, err)
	}

	records := make([]papersources.RawRecord, 0, len(resp.Message.Items))
	for i := range resp.Message.Items {
		records = append(records, workToRecord(&resp.Message.Items[i]))
	}
	return papersources.OK(records)
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/" + path
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildFilters pushes the year window down as publication date filters.
// Crossref has no reliable open access flag, so OpenAccessOnly is left to
// other providers.
func buildFilters(params papersources.SearchParams) []string {
	var filters []string
	if params.YearFrom > 0 {
		filters = append(filters, fmt.Sprintf("from-pub-date:%04d-01-01", params.YearFrom))
	}
	if params.YearTo > 0 {
		filters = append(filters, fmt.Sprintf("until-pub-date:%04d-12-31", params.YearTo))
	}
	return filters
}

// workToRecord copies a Crossref work into a RawRecord.
func workToRecord(w *Work) papersources.RawRecord {
	rec := papersources.RawRecord{
		Titles:          w.Title,
		DOI:             w.DOI,
		URL:             w.URL,
		Type:            w.Type,
		ContainerTitles: w.ContainerTitle,
		Publisher:       w.Publisher,
		Volume:          w.Volume,
		Issue:           w.Issue,
		Pages:           w.Page,
		ISSN:            w.ISSN,
		ISBN:            w.ISBN,
		Abstract:        w.Abstract,
		DateParts:       firstDateParts(w.Issued, w.PublishedPrint, w.PublishedOnline),
	}

	for _, a := range w.Author {
		rec.Authors = append(rec.Authors, papersources.RawAuthor{
			Name:   a.Name,
			Given:  a.Given,
			Family: a.Family,
		})
	}
	for _, l := range w.Link {
		rec.Links = append(rec.Links, papersources.Link{URL: l.URL, Type: l.ContentType})
	}
	return rec
}

// firstDateParts returns the first non-empty date-parts triple.
func firstDateParts(dates ...DateInfo) []int {
	for _, d := range dates {
		if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 && d.DateParts[0][0] > 0 {
			return d.DateParts[0]
		}
	}
	return nil
}
