package openalex

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
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// OpenAlex polite pool (with email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 25

	// MaxResultsLimit is the OpenAlex per_page ceiling.
	MaxResultsLimit = 200

	// sourceName is the human-readable name for this source.
	sourceName = "OpenAlex"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Email is the contact email for the polite pool.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default number of results per search request.
	// Defaults to 25, maximum is 200 per OpenAlex API.
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

// Client implements papersources.Adapter for OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.Adapter = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
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

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Provider returns domain.ProviderOpenAlex.
func (c *Client) Provider() domain.Provider {
	return domain.ProviderOpenAlex
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI fetches /works/doi:{doi}. A 404 is an empty success.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	const op = papersources.OpSearchByDOI
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderOpenAlex, op, papersources.ErrDisabled)
	}

	u, err := c.buildURL("/works/doi:"+strings.TrimSpace(doi), url.Values{})
	if err != nil {
		return papersources.Fail(domain.ProviderOpenAlex, op, err)
	}

	var work Work
	if err := c.httpClient.GetJSON(ctx, sourceName, u, &work); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return papersources.OK(nil)
		}
		return papersources.Fail(domain.ProviderOpenAlex, op, err)
	}
	return papersources.OK(workToRecord(&work))
}

// SearchByTitle filters on title.search.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	return c.search(ctx, papersources.OpSearchByTitle, "", "title.search:"+filterValue(title), params)
}

// SearchByAuthor filters on raw_author_name.search.
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	return c.search(ctx, papersources.OpSearchByAuthor, "", "raw_author_name.search:"+filterValue(author), params)
}

// SearchByKeyword uses the full-text search parameter.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	return c.search(ctx, papersources.OpSearchByKeyword, keyword, "", params)
}

func (c *Client) search(ctx context.Context, op, text, fieldFilter string, params papersources.SearchParams) papersources.Response {
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderOpenAlex, op, papersources.ErrDisabled)
	}

	u, err := c.buildSearchURL(text, fieldFilter, params)
	if err != nil {
		return papersources.Fail(domain.ProviderOpenAlex, op, err)
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, u, &resp); err != nil {
		return papersources.Fail(domain.ProviderOpenAlex, op, err)
	}

	records := make([]papersources.RawRecord, 0, len(resp.Results))
	for i := range resp.Results {
		records = append(records, workToRecord(&resp.Results[i]))
	}
	return papersources.OK(records)
}

// buildSearchURL constructs the /works URL with search, filter and paging.
func (c *Client) buildSearchURL(text, fieldFilter string, params papersources.SearchParams) (string, error) {
	query := url.Values{}
	if text != "" {
		query.Set("search", text)
	}

	filters := buildFilters(params)
	if fieldFilter != "" {
		filters = append([]string{fieldFilter}, filters...)
	}
	if len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	query.Set("per_page", strconv.Itoa(params.LimitOr(c.config.MaxResults, MaxResultsLimit)))
	return c.buildURL("/works", query)
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + path

	// Add mailto for polite pool
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildFilters constructs the filter components pushed down from params.
func buildFilters(params papersources.SearchParams) []string {
	var filters []string

	if params.YearFrom > 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%04d-01-01", params.YearFrom))
	}
	if params.YearTo > 0 {
		filters = append(filters, fmt.Sprintf("to_publication_date:%04d-12-31", params.YearTo))
	}
	if params.OpenAccessOnly {
		filters = append(filters, "is_oa:true")
	}

	return filters
}

// filterValue strips characters that split OpenAlex filter expressions.
func filterValue(s string) string {
	s = strings.NewReplacer(",", " ", "|", " ", ":", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// workToRecord copies an OpenAlex work into a RawRecord.
func workToRecord(work *Work) papersources.RawRecord {
	rec := papersources.RawRecord{
		Title:                 work.Title,
		Titles:                []string{work.DisplayName},
		DOI:                   work.DOI,
		Year:                  work.PublicationYear,
		Date:                  work.PublicationDate,
		Type:                  work.Type,
		Volume:                work.Biblio.Volume,
		Issue:                 work.Biblio.Issue,
		FirstPage:             work.Biblio.FirstPage,
		LastPage:              work.Biblio.LastPage,
		AbstractInvertedIndex: work.AbstractInvertedIndex,
	}
	if rec.DOI == "" {
		rec.DOI = work.IDs.DOI
	}
	if work.IDs.PMID != "" {
		rec.Identifiers = append(rec.Identifiers, papersources.Identifier{Type: "pmid", Value: work.IDs.PMID})
	}

	if loc := work.PrimaryLocation; loc != nil {
		rec.URL = loc.LandingPageURL
		if loc.PDFURL != "" {
			rec.Links = append(rec.Links, papersources.Link{URL: loc.PDFURL, Type: "application/pdf"})
		}
		if src := loc.Source; src != nil {
			rec.Container = src.DisplayName
			rec.Publisher = src.HostOrganizationName
			if src.ISSNL != "" {
				rec.ISSN = append(rec.ISSN, src.ISSNL)
			}
			rec.ISSN = append(rec.ISSN, src.ISSN...)
		}
	}
	if rec.URL == "" && work.OpenAccess != nil {
		rec.URL = work.OpenAccess.OAURL
	}

	for _, a := range work.Authorships {
		name := a.Author.DisplayName
		if name == "" {
			name = a.RawAuthorName
		}
		if name != "" {
			rec.Authors = append(rec.Authors, papersources.RawAuthor{Name: name})
		}
	}
	return rec
}
