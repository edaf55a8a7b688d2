// Package openalex adapts the OpenAlex works API.
//
// Keyword searches use the search parameter; title and author searches use
// the title.search and raw_author_name.search filters; DOI lookups fetch
// /works/<doi-url>. Abstracts arrive as inverted indexes and are handed to
// the normalizer as is.
//
// https://docs.openalex.org/
package openalex

// SearchResponse is a page of /works.
type SearchResponse struct {
	Meta struct {
		Count int `json:"count"`
	} `json:"meta"`
	Results []Work `json:"results"`
}

type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	Title           string       `json:"title"`
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	PublicationDate string       `json:"publication_date"`
	Type            string       `json:"type"`
	OpenAccess      *OpenAccess  `json:"open_access"`
	Authorships     []Authorship `json:"authorships"`
	PrimaryLocation *Location    `json:"primary_location"`
	Biblio          Biblio       `json:"biblio"`
	IDs             IDs          `json:"ids"`

	// word -> positions
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

type OpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

// Authorship prefers the resolved author name; RawAuthorName is the string
// printed on the paper.
type Authorship struct {
	Author struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"author"`
	RawAuthorName string `json:"raw_author_name"`
}

type Location struct {
	Source         *Source `json:"source"`
	LandingPageURL string  `json:"landing_page_url"`
	PDFURL         string  `json:"pdf_url"`
}

type Source struct {
	DisplayName          string   `json:"display_name"`
	ISSNL                string   `json:"issn_l"`
	ISSN                 []string `json:"issn"`
	HostOrganizationName string   `json:"host_organization_name"`
}

type Biblio struct {
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	FirstPage string `json:"first_page"`
	LastPage  string `json:"last_page"`
}

type IDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
	PMID     string `json:"pmid"`
}
