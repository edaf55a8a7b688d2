// Package biorxiv provides a bioRxiv client.
//
// bioRxiv's own API only exposes date-range and DOI lookups, so searches
// go through Europe PMC restricted to bioRxiv preprints, while DOI lookups
// use the api.biorxiv.org details endpoint directly.
//
// API Documentation: https://api.biorxiv.org/
package biorxiv

// DetailsResponse is the api.biorxiv.org /details payload.
type DetailsResponse struct {
	Messages   []Message  `json:"messages"`
	Collection []Preprint `json:"collection"`
}

// Message carries the API status for a details request.
type Message struct {
	Status string `json:"status"`
}

// Preprint is one version of a bioRxiv preprint.
type Preprint struct {
	DOI                 string `json:"doi"`
	Title               string `json:"title"`
	Authors             string `json:"authors"` // "Smith, J.; Doe, A."
	AuthorCorresponding string `json:"author_corresponding"`
	Date                string `json:"date"` // "2020-01-15"
	Version             string `json:"version"`
	Type                string `json:"type"`
	Category            string `json:"category"`
	Abstract            string `json:"abstract"`
	Published           string `json:"published"` // journal DOI or "NA"
	Server              string `json:"server"`
}
