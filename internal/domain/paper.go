package domain

import "strings"

// Author represents a source author. Either FullName or the
// FirstName/LastName pair is set; normalized records carry all three
// whenever the name parts are known.
type Author struct {
	FullName  string `json:"fullName,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// DisplayName returns the best human-readable rendering of the author.
func (a Author) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Source is the canonical bibliographic record produced by the normalizer.
// A Source is never emitted with a blank title and is not mutated after
// construction.
type Source struct {
	Title        string     `json:"title"`
	Authors      []Author   `json:"authors"`
	Year         int        `json:"year,omitempty"`
	DOI          string     `json:"doi,omitempty"`
	URL          string     `json:"url,omitempty"`
	SourceType   SourceType `json:"sourceType"`
	Journal      string     `json:"journal,omitempty"`
	Publisher    string     `json:"publisher,omitempty"`
	Volume       string     `json:"volume,omitempty"`
	Issue        string     `json:"issue,omitempty"`
	Pages        string     `json:"pages,omitempty"`
	ISBN         string     `json:"isbn,omitempty"`
	ISSN         string     `json:"issn,omitempty"`
	Abstract     string     `json:"abstract,omitempty"`
	Completeness float64    `json:"completeness"`
	SourceAPI    Provider   `json:"sourceApi"`
}

// HasDOI returns true if the source carries a normalized DOI.
func (s *Source) HasDOI() bool {
	return s.DOI != ""
}
