package core

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
	// DefaultBaseURL is the default CORE API base URL.
	DefaultBaseURL = "https://api.core.ac.uk/v3"

	// DefaultRateLimit is the default rate limit. The registered tier allows
	// roughly 10 requests per minute with bursts, so stay conservative.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 20

	// MaxResultsLimit is the CORE page size ceiling.
	MaxResultsLimit = 100

	// sourceName is the human-readable name for this source.
	sourceName = "CORE"
)

// Config holds configuration for the CORE client.
type Config struct {
	// BaseURL is the CORE API base URL.
	BaseURL string

	// APIKey is the CORE API key, sent as a bearer token.
	APIKey string

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

// Client implements papersources.Adapter for CORE.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.Adapter = (*Client)(nil)

// New creates a new CORE client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		BurstSize:    cfg.BurstSize,
		APIKey:       cfg.APIKey,
		APIKeyHeader: "Authorization",
		APIKeyPrefix: "Bearer ",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new CORE client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Provider returns domain.ProviderCORE.
func (c *Client) Provider() domain.Provider {
	return domain.ProviderCORE
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI runs a doi:"..." field query and returns the first hit.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	records, err := c.search(ctx, fieldQuery("doi", doi), papersources.SearchParams{Limit: 1})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return papersources.OK(nil)
		}
		return papersources.Fail(domain.ProviderCORE, papersources.OpSearchByDOI, err)
	}
	if len(records) == 0 {
		return papersources.OK(nil)
	}
	return papersources.OK(records[0])
}

// SearchByTitle runs a title:"..." field query.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	records, err := c.search(ctx, fieldQuery("title", title), params)
	if err != nil {
		return papersources.Fail(domain.ProviderCORE, papersources.OpSearchByTitle, err)
	}
	return papersources.OK(records)
}

// SearchByAuthor runs an authors:"..." field query.
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	records, err := c.search(ctx, fieldQuery("authors", author), params)
	if err != nil {
		return papersources.Fail(domain.ProviderCORE, papersources.OpSearchByAuthor, err)
	}
	return papersources.OK(records)
}

// SearchByKeyword runs a free-text query.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	records, err := c.search(ctx, "("+strings.TrimSpace(keyword)+")", params)
	if err != nil {
		return papersources.Fail(domain.ProviderCORE, papersources.OpSearchByKeyword, err)
	}
	return papersources.OK(records)
}

func (c *Client) search(ctx context.Context, q string, params papersources.SearchParams) ([]papersources.RawRecord, error) {
	if !c.config.Enabled {
		return nil, papersources.ErrDisabled
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	searchURL := baseURL.JoinPath("search", "works")

	query := url.Values{}
	query.Set("q", buildQuery(q, params))
	query.Set("limit", strconv.Itoa(params.LimitOr(c.config.MaxResults, MaxResultsLimit)))
	searchURL.RawQuery = query.Encode()

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, searchURL.String(), &resp); err != nil {
		return nil, err
	}

	records := make([]papersources.RawRecord, 0, len(resp.Results))
	for i := range resp.Results {
		records = append(records, workToRecord(&resp.Results[i]))
	}
	return records, nil
}

// buildQuery appends the year window to the CORE query language.
// CORE indexes open access content only, so OpenAccessOnly needs no clause.
func buildQuery(q string, params papersources.SearchParams) string {
	parts := []string{q}
	if params.YearFrom > 0 {
		parts = append(parts, fmt.Sprintf("yearPublished>=%d", params.YearFrom))
	}
	if params.YearTo > 0 {
		parts = append(parts, fmt.Sprintf("yearPublished<=%d", params.YearTo))
	}
	return strings.Join(parts, " AND ")
}

// fieldQuery renders field:"value" with embedded quotes removed.
func fieldQuery(field, value string) string {
	value = strings.Join(strings.Fields(strings.ReplaceAll(value, `"`, " ")), " ")
	return field + `:"` + value + `"`
}

// workToRecord copies a CORE work into a RawRecord.
func workToRecord(w *Work) papersources.RawRecord {
	rec := papersources.RawRecord{
		Title:     w.Title,
		DOI:       w.DOI,
		Year:      w.YearPublished,
		Date:      w.PublishedDate,
		Abstract:  w.Abstract,
		Publisher: w.Publisher,
		Type:      w.DocumentType,
	}
	if w.ID != 0 {
		rec.URL = "https://core.ac.uk/works/" + strconv.FormatInt(w.ID, 10)
		rec.Identifiers = append(rec.Identifiers, papersources.Identifier{Type: "core", Value: strconv.FormatInt(w.ID, 10)})
	}
	for _, id := range w.Identifiers {
		rec.Identifiers = append(rec.Identifiers, papersources.Identifier{Type: strings.ToLower(id.Type), Value: id.Identifier})
	}

	for _, a := range w.Authors {
		if a.Name != "" {
			rec.Authors = append(rec.Authors, papersources.RawAuthor{Name: a.Name})
		}
	}

	if len(w.Journals) > 0 {
		rec.Container = w.Journals[0].Title
		for _, id := range w.Journals[0].Identifiers {
			if issn, ok := strings.CutPrefix(strings.ToLower(id), "issn:"); ok {
				rec.ISSN = append(rec.ISSN, issn)
			}
		}
	}

	if w.DownloadURL != "" {
		rec.Links = append(rec.Links, papersources.Link{URL: w.DownloadURL, Type: "application/pdf"})
	}
	for _, l := range w.Links {
		if l.Type == "display" && l.URL != "" {
			rec.Links = append(rec.Links, papersources.Link{URL: l.URL, Type: "text/html"})
		}
	}
	return rec
}
