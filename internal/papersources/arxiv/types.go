// Package arxiv adapts the arXiv Atom query API.
//
// Title, author and keyword searches map to the ti:, au: and all: field
// prefixes. arXiv keeps no DOI index, so only arXiv-issued DOIs
// (10.48550/arXiv.<id>) resolve, through id_list.
//
// https://info.arxiv.org/help/api/user-manual.html
package arxiv

import "encoding/xml"

// Feed is the Atom document returned by /api/query.
type Feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []Entry  `xml:"entry"`
}

// Entry is one paper. ID is the abs URL including the version suffix,
// e.g. http://arxiv.org/abs/2301.12345v1.
type Entry struct {
	ID         string   `xml:"id"`
	Title      string   `xml:"title"`
	Summary    string   `xml:"summary"`
	Published  string   `xml:"published"`
	Authors    []Author `xml:"author"`
	Links      []Link   `xml:"link"`
	DOI        string   `xml:"doi"`
	JournalRef string   `xml:"journal_ref"`
}

type Author struct {
	Name string `xml:"name"`
}

// Link is an Atom link; the PDF is the one titled "pdf".
type Link struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}
