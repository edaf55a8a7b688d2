package pubmed

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
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	// With an API key, the limit increases to 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 20

	// MaxResultsLimit caps retmax for a single esearch.
	MaxResultsLimit = 200

	sourceName = "PubMed"

	// earliestYear opens a date window that only has an upper bound.
	earliestYear = 1000
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit (3 req/sec) if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default maximum results per search.
	MaxResults int

	// Enabled indicates whether this source takes part in fan-out.
	Enabled bool
}

// applyDefaults applies default values to the config.
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

// Client implements papersources.Adapter for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements Adapter.
var _ papersources.Adapter = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	}

	return &Client{
		config:     cfg,
		httpClient: papersources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Provider returns domain.ProviderPubMed.
func (c *Client) Provider() domain.Provider {
	return domain.ProviderPubMed
}

// Name returns the human-readable name of this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI searches the [DOI] field and returns the first match.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	records, err := c.search(ctx, quoteTerm(doi)+"[DOI]", papersources.SearchParams{Limit: 1})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return papersources.OK(nil)
		}
		return papersources.Fail(domain.ProviderPubMed, papersources.OpSearchByDOI, err)
	}
	if len(records) == 0 {
		return papersources.OK(nil)
	}
	return papersources.OK(records[0])
}

// SearchByTitle searches the [Title] field.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	records, err := c.search(ctx, quoteTerm(title)+"[Title]", params)
	if err != nil {
		return papersources.Fail(domain.ProviderPubMed, papersources.OpSearchByTitle, err)
	}
	return papersources.OK(records)
}

// SearchByAuthor searches the [Author] field.
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	records, err := c.search(ctx, quoteTerm(author)+"[Author]", params)
	if err != nil {
		return papersources.Fail(domain.ProviderPubMed, papersources.OpSearchByAuthor, err)
	}
	return papersources.OK(records)
}

// SearchByKeyword runs an unqualified term search.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	records, err := c.search(ctx, keyword, params)
	if err != nil {
		return papersources.Fail(domain.ProviderPubMed, papersources.OpSearchByKeyword, err)
	}
	return papersources.OK(records)
}

// search performs the two-step E-utilities lookup:
// esearch.fcgi resolves PMIDs, efetch.fcgi retrieves article metadata.
func (c *Client) search(ctx context.Context, term string, params papersources.SearchParams) ([]papersources.RawRecord, error) {
	if !c.config.Enabled {
		return nil, papersources.ErrDisabled
	}

	ids, err := c.esearch(ctx, term, params)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	if len(ids.IDs) == 0 {
		return []papersources.RawRecord{}, nil
	}

	set, err := c.efetch(ctx, ids.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	records := make([]papersources.RawRecord, 0, len(set.Articles))
	for _, article := range set.Articles {
		records = append(records, article.record())
	}
	return records, nil
}

// esearch resolves term to PMIDs. retmax follows the request limit and a
// year window becomes a pdat mindate/maxdate pair.
func (c *Client) esearch(ctx context.Context, term string, params papersources.SearchParams) (*ESearchResult, error) {
	q := url.Values{
		"db":     {"pubmed"},
		"term":   {term},
		"retmax": {strconv.Itoa(params.LimitOr(c.config.MaxResults, MaxResultsLimit))},
	}
	if params.YearFrom > 0 || params.YearTo > 0 {
		from, to := params.YearFrom, params.YearTo
		if from == 0 {
			from = earliestYear
		}
		if to == 0 {
			to = time.Now().Year() + 1
		}
		q.Set("datetype", "pdat")
		q.Set("mindate", strconv.Itoa(from))
		q.Set("maxdate", strconv.Itoa(to))
	}

	var result ESearchResult
	if err := c.eutil(ctx, "esearch", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// efetch loads MEDLINE records for pmids in one request.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	q := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"rettype": {"abstract"},
	}
	var result PubmedArticleSet
	if err := c.eutil(ctx, "efetch", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// eutil calls <BaseURL>/<name>.fcgi with XML output, adding the API key
// when one is configured.
func (c *Client) eutil(ctx context.Context, name string, q url.Values, out any) error {
	q.Set("retmode", "xml")
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/" + name + ".fcgi?" + q.Encode()
	return c.httpClient.GetXML(ctx, sourceName, endpoint, out)
}

// quoteTerm wraps a multi-word term in quotes so field tags apply to the phrase.
func quoteTerm(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), `"`, "")
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
