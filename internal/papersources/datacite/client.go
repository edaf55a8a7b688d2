package datacite

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
	// DefaultBaseURL is the default DataCite API base URL.
	DefaultBaseURL = "https://api.datacite.org"

	// DefaultRateLimit is the default rate limit (5 requests per second).
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 20

	// MaxResultsLimit is the DataCite page[size] ceiling.
	MaxResultsLimit = 1000

	// sourceName is the human-readable name for this source.
	sourceName = "DataCite"
)

// luceneSpecial replaces query-syntax characters with spaces.
var luceneSpecial = strings.NewReplacer(
	`+`, " ", `-`, " ", `&`, " ", `|`, " ", `!`, " ", `(`, " ", `)`, " ",
	`{`, " ", `}`, " ", `[`, " ", `]`, " ", `^`, " ", `"`, " ", `~`, " ",
	`*`, " ", `?`, " ", `:`, " ", `\`, " ", `/`, " ",
)

// Config holds configuration for the DataCite client.
type Config struct {
	// BaseURL is the DataCite API base URL.
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

// Client implements papersources.Adapter for DataCite.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.Adapter = (*Client)(nil)

// New creates a new DataCite client with the given configuration.
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

// NewWithHTTPClient creates a new DataCite client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Provider returns domain.ProviderDataCite.
func (c *Client) Provider() domain.Provider {
	return domain.ProviderDataCite
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI fetches /dois/{doi}. A 404 is an empty success.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	const op = papersources.OpSearchByDOI
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderDataCite, op, papersources.ErrDisabled)
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return papersources.Fail(domain.ProviderDataCite, op, fmt.Errorf("parsing base URL: %w", err))
	}
	doiURL := baseURL.JoinPath("dois", strings.TrimSpace(doi))
	doiURL.RawQuery = url.Values{"publisher": {"true"}}.Encode()

	var resp SingleResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, doiURL.String(), &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return papersources.OK(nil)
		}
		return papersources.Fail(domain.ProviderDataCite, op, err)
	}
	return papersources.OK(resourceToRecord(&resp.Data))
}

// SearchByTitle runs a titles.title phrase query.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	q := `titles.title:"` + clean(title) + `"`
	return c.search(ctx, papersources.OpSearchByTitle, q, params)
}

// SearchByAuthor matches every name token against creators.name, since
// DataCite stores names as "Family, Given".
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	q := "creators.name:(" + strings.Join(strings.Fields(clean(author)), " AND ") + ")"
	return c.search(ctx, papersources.OpSearchByAuthor, q, params)
}

// SearchByKeyword runs an unfielded query.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	return c.search(ctx, papersources.OpSearchByKeyword, clean(keyword), params)
}

func (c *Client) search(ctx context.Context, op, q string, params papersources.SearchParams) papersources.Response {
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderDataCite, op, papersources.ErrDisabled)
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return papersources.Fail(domain.ProviderDataCite, op, fmt.Errorf("parsing base URL: %w", err))
	}
	searchURL := baseURL.JoinPath("dois")

	query := url.Values{}
	query.Set("query", buildQuery(q, params))
	query.Set("page[size]", strconv.Itoa(params.LimitOr(c.config.MaxResults, MaxResultsLimit)))
	query.Set("publisher", "true")
	searchURL.RawQuery = query.Encode()

	var resp ListResponse
	if err := c.httpClient.GetJSON(ctx, sourceName, searchURL.String(), &resp); err != nil {
		return papersources.Fail(domain.ProviderDataCite, op, err)
	}

	records := make([]papersources.RawRecord, 0, len(resp.Data))
	for i := range resp.Data {
		records = append(records, resourceToRecord(&resp.Data[i]))
	}
	return papersources.OK(records)
}

// buildQuery adds the publication year window.
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
	return fmt.Sprintf("(%s) AND publicationYear:[%s TO %s]", q, from, to)
}

func clean(s string) string {
	return strings.Join(strings.Fields(luceneSpecial.Replace(s)), " ")
}

// resourceToRecord copies a DataCite resource into a RawRecord.
func resourceToRecord(r *Resource) papersources.RawRecord {
	attrs := r.Attributes
	rec := papersources.RawRecord{
		DOI:       attrs.DOI,
		Year:      attrs.PublicationYear,
		URL:       attrs.URL,
		Type:      attrs.Types.ResourceTypeGeneral,
		Publisher: attrs.Publisher.Name,
		Container: attrs.Container.Title,
		Volume:    attrs.Container.Volume,
		Issue:     attrs.Container.Issue,
		FirstPage: attrs.Container.FirstPage,
		LastPage:  attrs.Container.LastPage,
	}
	if rec.DOI == "" {
		rec.DOI = r.ID
	}
	if strings.EqualFold(attrs.Container.IdentifierType, "ISSN") && attrs.Container.Identifier != "" {
		rec.ISSN = append(rec.ISSN, attrs.Container.Identifier)
	}

	// Main title first; typed titles are subtitles or translations.
	for _, t := range attrs.Titles {
		if t.TitleType == "" {
			rec.Titles = append([]string{t.Title}, rec.Titles...)
		} else {
			rec.Titles = append(rec.Titles, t.Title)
		}
	}

	for _, cr := range attrs.Creators {
		a := papersources.RawAuthor{Given: cr.GivenName, Family: cr.FamilyName}
		if a.Given == "" && a.Family == "" {
			a.Name = cr.Name
		}
		rec.Authors = append(rec.Authors, a)
	}

	for _, d := range attrs.Descriptions {
		if strings.EqualFold(d.DescriptionType, "Abstract") {
			rec.Abstract = d.Description
			break
		}
	}
	return rec
}
