// Package doaj implements the Directory of Open Access Journals adapter.
//
// DOAJ exposes an Elasticsearch query-string search over article
// metadata. The query is part of the URL path, so it is path-escaped
// rather than sent as a parameter.
//
// API documentation: https://doaj.org/api/docs
package doaj

// SearchResponse is the envelope returned by /search/articles/{query}.
type SearchResponse struct {
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	Results  []Article `json:"results"`
}

// Article is a single DOAJ article record.
type Article struct {
	ID      string  `json:"id"`
	BibJSON BibJSON `json:"bibjson"`
}

// BibJSON holds the bibliographic metadata of an article.
type BibJSON struct {
	Title      string       `json:"title"`
	Author     []Author     `json:"author"`
	Year       string       `json:"year"`
	Month      string       `json:"month"`
	Journal    Journal      `json:"journal"`
	StartPage  string       `json:"start_page"`
	EndPage    string       `json:"end_page"`
	Identifier []Identifier `json:"identifier"`
	Link       []Link       `json:"link"`
	Abstract   string       `json:"abstract"`
}

// Author is a DOAJ author.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Journal describes the journal an article appeared in.
type Journal struct {
	Title     string   `json:"title"`
	Volume    string   `json:"volume"`
	Number    string   `json:"number"`
	Publisher string   `json:"publisher"`
	ISSNs     []string `json:"issns"`
}

// Identifier is a typed identifier: doi, pissn or eissn.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Link is a full-text link.
type Link struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}
