package biorxiv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
	"github.com/helixir/metasearch-service/internal/papersources/europepmc"
)

const (
	// DefaultDetailsURL is the bioRxiv API base URL used for DOI lookups.
	DefaultDetailsURL = "https://api.biorxiv.org"

	// DefaultServer is the preprint server queried.
	DefaultServer = "biorxiv"

	// DefaultRateLimit is the default rate limit (5 requests per second).
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 25

	// sourceName is the human-readable name for this source.
	sourceName = "bioRxiv"
)

// Config holds configuration for the bioRxiv client.
type Config struct {
	// SearchBaseURL is the Europe PMC API base URL used for searches.
	// Empty uses europepmc.DefaultBaseURL.
	SearchBaseURL string

	// DetailsBaseURL is the api.biorxiv.org base URL used for DOI lookups.
	DetailsBaseURL string

	// Server is the preprint server name ("biorxiv" or "medrxiv").
	Server string

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
	if c.DetailsBaseURL == "" {
		c.DetailsBaseURL = DefaultDetailsURL
	}
	if c.Server == "" {
		c.Server = DefaultServer
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

// publisherFilter restricts Europe PMC to preprints from the configured server.
func (c *Config) publisherFilter() string {
	publisher := "bioRxiv"
	if strings.EqualFold(c.Server, "medrxiv") {
		publisher = "medRxiv"
	}
	return fmt.Sprintf(`(SRC:PPR) AND (PUBLISHER:"%s")`, publisher)
}

// Client implements papersources.Adapter for bioRxiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	search     *europepmc.Client
}

var _ papersources.Adapter = (*Client)(nil)

// New creates a new bioRxiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	})
	return NewWithHTTPClient(cfg, httpClient)
}

// NewWithHTTPClient creates a new bioRxiv client with a custom HTTP client.
// The same client serves both the Europe PMC searches and DOI lookups.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	search := europepmc.NewWithHTTPClient(europepmc.Config{
		BaseURL:    cfg.SearchBaseURL,
		Filter:     cfg.publisherFilter(),
		Provider:   domain.ProviderBioRxiv,
		MaxResults: cfg.MaxResults,
		Enabled:    cfg.Enabled,
	}, httpClient)

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		search:     search,
	}
}

// Provider returns domain.ProviderBioRxiv.
func (c *Client) Provider() domain.Provider {
	return domain.ProviderBioRxiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI fetches /details/{server}/{doi} and returns the latest
// version. Unknown DOIs yield an empty success.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	const op = papersources.OpSearchByDOI
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderBioRxiv, op, papersources.ErrDisabled)
	}

	baseURL, err := url.Parse(c.config.DetailsBaseURL)
	if err != nil {
		return papersources.Fail(domain.ProviderBioRxiv, op, fmt.Errorf("parsing base URL: %w", err))
	}
	detailsURL := baseURL.JoinPath("details", strings.ToLower(c.config.Server), strings.TrimSpace(doi))

	var resp DetailsResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, detailsURL.String(), &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return papersources.OK(nil)
		}
		return papersources.Fail(domain.ProviderBioRxiv, op, err)
	}
	if len(resp.Collection) == 0 {
		return papersources.OK(nil)
	}
	return papersources.OK(preprintToRecord(resp.Collection[len(resp.Collection)-1]))
}

// SearchByTitle searches bioRxiv preprints by title through Europe PMC.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	return c.search.SearchByTitle(ctx, title, params)
}

// SearchByAuthor searches bioRxiv preprints by author through Europe PMC.
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	return c.search.SearchByAuthor(ctx, author, params)
}

// SearchByKeyword searches bioRxiv preprints through Europe PMC.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	return c.search.SearchByKeyword(ctx, keyword, params)
}

// preprintToRecord copies a details entry into a RawRecord.
func preprintToRecord(p Preprint) papersources.RawRecord {
	rec := papersources.RawRecord{
		Title:        p.Title,
		DOI:          p.DOI,
		AuthorString: p.Authors,
		Date:         p.Date,
		Abstract:     p.Abstract,
		Type:         "preprint",
		Publisher:    "Cold Spring Harbor Laboratory",
		Container:    "bioRxiv",
	}
	if strings.EqualFold(p.Server, "medrxiv") {
		rec.Container = "medRxiv"
	}
	if p.DOI != "" {
		rec.URL = "https://www.biorxiv.org/content/" + p.DOI
		if p.Version != "" {
			rec.URL += "v" + p.Version
		}
		if rec.Container == "medRxiv" {
			rec.URL = strings.Replace(rec.URL, "www.biorxiv.org", "www.medrxiv.org", 1)
		}
	}
	if published := strings.TrimSpace(p.Published); published != "" && !strings.EqualFold(published, "NA") {
		rec.Identifiers = append(rec.Identifiers, papersources.Identifier{Type: "published_doi", Value: published})
	}
	return rec
}
