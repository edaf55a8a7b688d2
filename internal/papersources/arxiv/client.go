package arxiv

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit. arXiv asks for at most
	// one request every three seconds on sustained use; a small burst keeps
	// single queries snappy.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 20

	// MaxResultsLimit caps max_results for a single request.
	MaxResultsLimit = 200

	// arxivDOIPrefix is the DataCite prefix arXiv registers DOIs under.
	arxivDOIPrefix = "10.48550/arxiv."

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full URL.
// Matches patterns like "http://arxiv.org/abs/2301.12345v1" or "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
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

// Client implements papersources.Adapter for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.Adapter = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
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

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Provider returns domain.ProviderArXiv.
func (c *Client) Provider() domain.Provider {
	return domain.ProviderArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchByDOI resolves arXiv-issued DOIs (10.48550/arXiv.<id>) through
// id_list. arXiv cannot search other DOIs, so those return an empty success.
func (c *Client) SearchByDOI(ctx context.Context, doi string) papersources.Response {
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderArXiv, papersources.OpSearchByDOI, papersources.ErrDisabled)
	}
	id := arxivIDFromDOI(doi)
	if id == "" {
		return papersources.OK(nil)
	}

	u, err := c.endpoint(url.Values{"id_list": {id}})
	if err != nil {
		return papersources.Fail(domain.ProviderArXiv, papersources.OpSearchByDOI, err)
	}
	records, err := c.fetch(ctx, u)
	if err != nil {
		return papersources.Fail(domain.ProviderArXiv, papersources.OpSearchByDOI, err)
	}
	if len(records) == 0 {
		return papersources.OK(nil)
	}
	return papersources.OK(records[0])
}

// SearchByTitle searches the ti: field.
func (c *Client) SearchByTitle(ctx context.Context, title string, params papersources.SearchParams) papersources.Response {
	return c.search(ctx, papersources.OpSearchByTitle, "ti:"+phrase(title), params)
}

// SearchByAuthor searches the au: field.
func (c *Client) SearchByAuthor(ctx context.Context, author string, params papersources.SearchParams) papersources.Response {
	return c.search(ctx, papersources.OpSearchByAuthor, "au:"+phrase(author), params)
}

// SearchByKeyword requires every term to match in some field.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, params papersources.SearchParams) papersources.Response {
	terms := strings.Fields(strings.ReplaceAll(keyword, `"`, ""))
	return c.search(ctx, papersources.OpSearchByKeyword, "all:"+strings.Join(terms, " AND all:"), params)
}

func (c *Client) search(ctx context.Context, op, searchQuery string, params papersources.SearchParams) papersources.Response {
	if !c.config.Enabled {
		return papersources.Fail(domain.ProviderArXiv, op, papersources.ErrDisabled)
	}

	if filter := buildDateFilter(params.YearFrom, params.YearTo); filter != "" {
		searchQuery += " AND " + filter
	}

	u, err := c.endpoint(url.Values{
		"search_query": {searchQuery},
		"max_results":  {strconv.Itoa(params.LimitOr(c.config.MaxResults, MaxResultsLimit))},
		"sortBy":       {"relevance"},
	})
	if err != nil {
		return papersources.Fail(domain.ProviderArXiv, op, err)
	}

	records, err := c.fetch(ctx, u)
	if err != nil {
		return papersources.Fail(domain.ProviderArXiv, op, err)
	}
	return papersources.OK(records)
}

// endpoint builds a /query URL with the given parameters.
func (c *Client) endpoint(query url.Values) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"
	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]papersources.RawRecord, error) {
	var feed Feed
	if err := c.httpClient.GetXML(ctx, sourceName, u, &feed); err != nil {
		return nil, err
	}

	records := make([]papersources.RawRecord, 0, len(feed.Entries))
	for i := range feed.Entries {
		if rec, ok := entryToRecord(&feed.Entries[i]); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// buildDateFilter constructs the arXiv submittedDate range for a year window.
func buildDateFilter(from, to int) string {
	if from == 0 && to == 0 {
		return ""
	}

	fromStr, toStr := "*", "*"
	if from > 0 {
		fromStr = fmt.Sprintf("%04d01010000", from)
	}
	if to > 0 {
		toStr = fmt.Sprintf("%04d12312359", to)
	}
	return fmt.Sprintf("submittedDate:[%s TO %s]", fromStr, toStr)
}

// phrase quotes multi-word terms so arXiv matches them as a phrase.
func phrase(s string) string {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, `"`, "")), " ")
	if strings.Contains(s, " ") {
		return `"` + s + `"`
	}
	return s
}

// arxivIDFromDOI returns the arXiv identifier for an arXiv DOI, or "".
func arxivIDFromDOI(doi string) string {
	d := strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi:"} {
		d = strings.TrimPrefix(d, prefix)
	}
	if !strings.HasPrefix(d, arxivDOIPrefix) {
		return ""
	}
	return strings.TrimPrefix(d, arxivDOIPrefix)
}

// entryToRecord copies an Atom entry into a RawRecord. Error entries,
// which arXiv reports inside a 200 feed, are dropped.
func entryToRecord(entry *Entry) (papersources.RawRecord, bool) {
	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return papersources.RawRecord{}, false
	}

	rec := papersources.RawRecord{
		Title:    entry.Title,
		DOI:      strings.TrimSpace(entry.DOI),
		Abstract: entry.Summary,
		Date:     entry.Published,
		URL:      "https://arxiv.org/abs/" + arxivID,
		Type:     "preprint",
		Identifiers: []papersources.Identifier{
			{Type: "arxiv", Value: arxivID},
		},
	}
	if rec.DOI == "" {
		rec.Identifiers = append(rec.Identifiers, papersources.Identifier{Type: "doi", Value: "10.48550/arXiv." + arxivID})
	}
	if ref := strings.TrimSpace(entry.JournalRef); ref != "" {
		rec.Container = ref
	}

	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			rec.Authors = append(rec.Authors, papersources.RawAuthor{Name: name})
		}
	}
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			rec.Links = append(rec.Links, papersources.Link{URL: link.Href, Type: "application/pdf"})
		}
	}

	return rec, true
}

// extractArXivID extracts the arXiv ID from an entry URL.
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(strings.TrimSpace(entryURL))
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}
