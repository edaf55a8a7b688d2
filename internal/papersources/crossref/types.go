// Package crossref provides a client for the Crossref REST API.
//
// Title searches use query.bibliographic, author searches query.author
// and keyword searches the plain query parameter. DOI lookups fetch
// /works/{doi} directly. Supplying a contact email routes requests to the
// Crossref polite pool.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// ListResponse is the envelope returned by /works searches.
type ListResponse struct {
	Status  string      `json:"status"`
	Message WorkListing `json:"message"`
}

// WorkListing holds one page of works.
type WorkListing struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

// WorkResponse is the envelope returned by /works/{doi}.
type WorkResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

// Work is a Crossref work record.
type Work struct {
	DOI             string   `json:"DOI"`
	Title           []string `json:"title"`
	Subtitle        []string `json:"subtitle"`
	Author          []Author `json:"author"`
	Issued          DateInfo `json:"issued"`
	PublishedPrint  DateInfo `json:"published-print"`
	PublishedOnline DateInfo `json:"published-online"`
	URL             string   `json:"URL"`
	Type            string   `json:"type"`
	ContainerTitle  []string `json:"container-title"`
	Publisher       string   `json:"publisher"`
	Volume          string   `json:"volume"`
	Issue           string   `json:"issue"`
	Page            string   `json:"page"`
	ISSN            []string `json:"ISSN"`
	ISBN            []string `json:"ISBN"`
	Abstract        string   `json:"abstract"` // JATS XML
	Link            []Link   `json:"link"`
}

// Author is a Crossref contributor. Organisations only carry Name.
type Author struct {
	Given    string `json:"given"`
	Family   string `json:"family"`
	Name     string `json:"name"`
	Sequence string `json:"sequence"`
}

// DateInfo is Crossref's partial date, e.g. {"date-parts": [[2019, 6]]}.
type DateInfo struct {
	DateParts [][]int `json:"date-parts"`
}

// Link is a full-text link.
type Link struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}
