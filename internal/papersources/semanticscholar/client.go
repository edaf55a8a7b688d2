package semanticscholar

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
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	// With an API key, this can be increased.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum number of results per request.
	DefaultMaxResults = 20

	// MaxResultsLimit is the API's page size ceiling for /paper/search.
	MaxResultsLimit = 100

	// DefaultAuthorLimit bounds how many matching authors an author search expands.
	DefaultAuthorLimit = 3

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,url,title,abstract,year,publicationDate,venue,journal,authors,publicationTypes,openAccessPdf"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// authorFields requests each author's papers with the same paper fields.
var authorFields = "name,papers." + strings.ReplaceAll(paperFields, ",", ",papers.")

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default number of results per search.
	MaxResults int

	// AuthorLimit is how many authors an author search expands.
	AuthorLimit int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

// Client implements papersources.Adapter and papersources.Transformer for
// Semantic Scholar.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

var (
	_ papersources.Adapter     = (*Client)(nil)
	_ papersources.Transformer = (*Client)(nil)
)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.AuthorLimit == 0 {
		cfg.AuthorLimit = DefaultAuthorLimit
	}

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Provider returns domain.ProviderSemanticScholar.
func (c *Client) Provider() domain.Provider {
	return domain.ProviderSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI fetches /paper/DOI:{doi}. A 404 is an empty success.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	const op = papersources.OpSearchByDOI
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderSemanticScholar, op, papersources.ErrDisabled)
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return papersources.Fail(domain.ProviderSemanticScholar, op, fmt.Errorf("parsing base URL: %w", err))
	}
	paperURL := baseURL.JoinPath("paper", "DOI:"+strings.TrimSpace(doi))
	paperURL.RawQuery = url.Values{"fields": {paperFields}}.Encode()

	var paper PaperResult
	if err := c.httpClient.GetJSON(ctx, sourceName, paperURL.String(), &paper); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return papersources.OK(nil)
		}
		return papersources.Fail(domain.ProviderSemanticScholar, op, err)
	}
	return papersources.OK(&paper)
}

// SearchByTitle runs a relevance search with the title as query.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	return c.searchPapers(ctx, papersources.OpSearchByTitle, title, params)
}

// SearchByKeyword runs a relevance search.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	return c.searchPapers(ctx, papersources.OpSearchByKeyword, keyword, params)
}

// SearchByAuthor finds matching authors and returns their papers nested
// in an *AuthorSearchResponse.
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	const op = papersources.OpSearchByAuthor
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderSemanticScholar, op, papersources.ErrDisabled)
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return papersources.Fail(domain.ProviderSemanticScholar, op, fmt.Errorf("parsing base URL: %w", err))
	}
	searchURL := baseURL.JoinPath("author", "search")
	searchURL.RawQuery = url.Values{
		"query":  {author},
		"fields": {authorFields},
		"limit":  {strconv.Itoa(c.config.AuthorLimit)},
	}.Encode()

	var resp AuthorSearchResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, searchURL.String(), &resp); err != nil {
		return papersources.Fail(domain.ProviderSemanticScholar, op, err)
	}
	return papersources.OK(&resp)
}

func (c *Client) searchPapers(ctx context.Context, op, query string, params papersources.SearchParams) papersources.Response {
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderSemanticScholar, op, papersources.ErrDisabled)
	}

	searchURL, err := c.buildSearchURL(query, params)
	if err != nil {
		return papersources.Fail(domain.ProviderSemanticScholar, op, fmt.Errorf("building search URL: %w", err))
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, searchURL, &resp); err != nil {
		return papersources.Fail(domain.ProviderSemanticScholar, op, err)
	}
	return papersources.OK(&resp)
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(query string, params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", query)
	q.Set("fields", paperFields)
	q.Set("limit", strconv.Itoa(params.LimitOr(c.config.MaxResults, MaxResultsLimit)))

	if params.OpenAccessOnly {
		q.Set("openAccessPdf", "")
	}

	// Semantic Scholar takes year ranges as "2019-", "-2021" or "2019-2021".
	switch {
	case params.YearFrom > 0 && params.YearTo > 0:
		q.Set("year", fmt.Sprintf("%d-%d", params.YearFrom, params.YearTo))
	case params.YearFrom > 0:
		q.Set("year", fmt.Sprintf("%d-", params.YearFrom))
	case params.YearTo > 0:
		q.Set("year", fmt.Sprintf("-%d", params.YearTo))
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// TransformResponse flattens every payload shape this client returns.
func (c *Client) TransformResponse(data any) []papersources.RawRecord {
	switch v := data.(type) {
	case *SearchResponse:
		if v == nil {
			return nil
		}
		return convertPapers(v.Data)
	case *AuthorSearchResponse:
		if v == nil {
			return nil
		}
		var records []papersources.RawRecord
		for _, a := range v.Data {
			records = append(records, convertPapers(a.Papers)...)
		}
		return records
	case *PaperResult:
		if v == nil {
			return nil
		}
		return []papersources.RawRecord{convertPaper(*v)}
	default:
		return nil
	}
}

func convertPapers(results []PaperResult) []papersources.RawRecord {
	records := make([]papersources.RawRecord, 0, len(results))
	for _, r := range results {
		records = append(records, convertPaper(r))
	}
	return records
}

// convertPaper copies a paper payload into a RawRecord.
func convertPaper(result PaperResult) papersources.RawRecord {
	rec := papersources.RawRecord{
		Title:    result.Title,
		Abstract: result.Abstract,
		Year:     result.Year,
		Date:     result.PublicationDate,
		URL:      result.URL,
	}

	if result.ExternalIDs != nil {
		rec.DOI = result.ExternalIDs.DOI
		if result.ExternalIDs.ArXiv != "" {
			rec.Identifiers = append(rec.Identifiers, papersources.Identifier{Type: "arxiv", Value: result.ExternalIDs.ArXiv})
		}
		if result.ExternalIDs.PubMed != "" {
			rec.Identifiers = append(rec.Identifiers, papersources.Identifier{Type: "pmid", Value: result.ExternalIDs.PubMed})
		}
	}

	if result.Journal != nil {
		rec.Container = result.Journal.Name
		rec.Volume = result.Journal.Volume
		rec.Pages = result.Journal.Pages
	}
	if rec.Container == "" {
		rec.Container = result.Venue
	}

	if result.OpenAccessPDF != nil && result.OpenAccessPDF.URL != "" {
		rec.Links = append(rec.Links, papersources.Link{URL: result.OpenAccessPDF.URL, Type: "application/pdf"})
	}

	rec.Type = publicationType(result.PublicationTypes)

	for _, a := range result.Authors {
		if a.Name != "" {
			rec.Authors = append(rec.Authors, papersources.RawAuthor{Name: a.Name})
		}
	}
	return rec
}

// publicationType picks the most specific type label from the list.
func publicationType(types []string) string {
	for _, t := range types {
		switch t {
		case "Conference":
			return "proceedings-article"
		case "Book":
			return "book"
		case "BookSection":
			return "book-chapter"
		case "Dataset":
			return "dataset"
		}
	}
	for _, t := range types {
		if t == "JournalArticle" || t == "Review" {
			return "journal-article"
		}
	}
	return ""
}
