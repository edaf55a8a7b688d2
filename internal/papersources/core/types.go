// Package core implements the CORE (core.ac.uk) v3 adapter.
//
// CORE aggregates open access research outputs from repositories and
// journals. Every request carries a bearer API key; unauthenticated
// requests are heavily throttled.
//
// API documentation: https://api.core.ac.uk/docs/v3
package core

// SearchResponse is the envelope returned by /search/works.
type SearchResponse struct {
	TotalHits int    `json:"totalHits"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	Results   []Work `json:"results"`
}

// Work is a CORE work record.
type Work struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	DOI           string     `json:"doi"`
	Authors       []Author   `json:"authors"`
	YearPublished int        `json:"yearPublished"`
	PublishedDate string     `json:"publishedDate"`
	Abstract      string     `json:"abstract"`
	DownloadURL   string     `json:"downloadUrl"`
	Publisher     string     `json:"publisher"`
	DocumentType  string     `json:"documentType"`
	Journals      []Journal  `json:"journals"`
	Links         []Link     `json:"links"`
	Identifiers   []Identity `json:"identifiers"`
}

// Author is a CORE author entry.
type Author struct {
	Name string `json:"name"`
}

// Journal is a journal the work appeared in. Identifiers look like
// "issn:1234-5678".
type Journal struct {
	Title       string   `json:"title"`
	Identifiers []string `json:"identifiers"`
}

// Link is a typed URL ("download", "display", "reader").
type Link struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Identity is a typed identifier such as {"DOI", "10.1/x"}.
type Identity struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
}
