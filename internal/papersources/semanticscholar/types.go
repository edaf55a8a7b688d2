// Package semanticscholar adapts the Semantic Scholar Graph API.
//
// Paper search and DOI lookup return paper objects; author search returns
// authors with their papers nested under papers.*. The client implements
// papersources.Transformer to flatten both shapes.
//
// https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse is a page of /paper/search.
type SearchResponse struct {
	Total int           `json:"total"`
	Data  []PaperResult `json:"data"`
}

// AuthorSearchResponse is a page of /author/search.
type AuthorSearchResponse struct {
	Total int            `json:"total"`
	Data  []AuthorResult `json:"data"`
}

type AuthorResult struct {
	AuthorID string        `json:"authorId"`
	Name     string        `json:"name"`
	Papers   []PaperResult `json:"papers"`
}

// PaperResult carries only the fields requested in paperFields.
type PaperResult struct {
	PaperID          string         `json:"paperId"`
	Title            string         `json:"title"`
	Abstract         string         `json:"abstract"`
	Year             int            `json:"year"`
	PublicationDate  string         `json:"publicationDate"` // YYYY-MM-DD
	Venue            string         `json:"venue"`
	Journal          *Journal       `json:"journal,omitempty"`
	Authors          []Author       `json:"authors"`
	PublicationTypes []string       `json:"publicationTypes"`
	URL              string         `json:"url"`
	OpenAccessPDF    *OpenAccessPDF `json:"openAccessPdf,omitempty"`
	ExternalIDs      *ExternalIDs   `json:"externalIds,omitempty"`
}

// ExternalIDs uses the API's capitalised keys.
type ExternalIDs struct {
	DOI    string `json:"DOI,omitempty"`
	ArXiv  string `json:"ArXiv,omitempty"`
	PubMed string `json:"PubMed,omitempty"`
}

type Journal struct {
	Name   string `json:"name,omitempty"`
	Volume string `json:"volume,omitempty"`
	Pages  string `json:"pages,omitempty"`
}

type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

type OpenAccessPDF struct {
	URL string `json:"url,omitempty"`
}
