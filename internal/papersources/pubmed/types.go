// Package pubmed queries NCBI E-utilities: esearch resolves a term to
// PMIDs, efetch returns the MEDLINE XML for them. Title, author and DOI
// lookups use the [Title], [Author] and [DOI] field tags.
//
// https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pubmed

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/helixir/metasearch-service/internal/papersources"
)

const pubmedURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"

// ESearchResult is the esearch.fcgi payload.
type ESearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   int      `xml:"Count"`
	IDs     []string `xml:"IdList>Id"`
}

// PubmedArticleSet is the efetch.fcgi payload.
type PubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

type PubmedArticle struct {
	MedlineCitation struct {
		PMID    string  `xml:"PMID"`
		Article Article `xml:"Article"`
	} `xml:"MedlineCitation"`
	PubmedData struct {
		ArticleIDs []typedValue `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

type Article struct {
	Journal struct {
		ISSN            string `xml:"ISSN"`
		Title           string `xml:"Title"`
		ISOAbbreviation string `xml:"ISOAbbreviation"`
		Volume          string `xml:"JournalIssue>Volume"`
		Issue           string `xml:"JournalIssue>Issue"`
		PubDate         struct {
			Year        string `xml:"Year"`
			MedlineDate string `xml:"MedlineDate"`
		} `xml:"JournalIssue>PubDate"`
	} `xml:"Journal"`
	ArticleTitle        string               `xml:"ArticleTitle"`
	Pagination          *Pagination          `xml:"Pagination"`
	ELocationIDs        []ELocationID        `xml:"ELocationID"`
	Abstract            []AbstractText       `xml:"Abstract>AbstractText"`
	Authors             []Author             `xml:"AuthorList>Author"`
	PublicationTypeList *PublicationTypeList `xml:"PublicationTypeList"`
	ArticleDates        []string             `xml:"ArticleDate>Year"`
}

type Pagination struct {
	StartPage  string `xml:"StartPage"`
	EndPage    string `xml:"EndPage"`
	MedlinePgn string `xml:"MedlinePgn"`
}

type ELocationID struct {
	EIdType string `xml:"EIdType,attr"`
	Valid   string `xml:"ValidYN,attr"`
	Value   string `xml:",chardata"`
}

// AbstractText is one section of a possibly structured abstract.
type AbstractText struct {
	Label string `xml:"Label,attr"`
	Value string `xml:",chardata"`
}

// Author is a person or, when CollectiveName is set, a group.
type Author struct {
	ValidYN        string `xml:"ValidYN,attr"`
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	CollectiveName string `xml:"CollectiveName"`
}

type PublicationTypeList struct {
	PublicationTypes []PublicationType `xml:"PublicationType"`
}

type PublicationType struct {
	Value string `xml:",chardata"`
}

type typedValue struct {
	IdType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// record copies the article into a RawRecord.
func (p PubmedArticle) record() papersources.RawRecord {
	art := p.MedlineCitation.Article

	rec := papersources.RawRecord{
		Title:     art.ArticleTitle,
		DOI:       p.doi(),
		Authors:   art.rawAuthors(),
		Year:      art.year(),
		Container: firstNonEmpty(art.Journal.Title, art.Journal.ISOAbbreviation),
		Volume:    art.Journal.Volume,
		Issue:     art.Journal.Issue,
		Pages:     art.Pagination.pages(),
		Abstract:  art.abstract(),
		Type:      "journal-article",
	}
	if issn := strings.TrimSpace(art.Journal.ISSN); issn != "" {
		rec.ISSN = []string{issn}
	}
	if pmid := strings.TrimSpace(p.MedlineCitation.PMID); pmid != "" {
		rec.URL = pubmedURLPrefix + pmid + "/"
		rec.Identifiers = append(rec.Identifiers, papersources.Identifier{Type: "pmid", Value: pmid})
	}
	if art.isPreprint() {
		rec.Type = "preprint"
	}
	return rec
}

// doi prefers a valid ELocationID over the ArticleIdList entry.
func (p PubmedArticle) doi() string {
	for _, loc := range p.MedlineCitation.Article.ELocationIDs {
		if loc.EIdType == "doi" && loc.Valid != "N" {
			return strings.TrimSpace(loc.Value)
		}
	}
	for _, id := range p.PubmedData.ArticleIDs {
		if id.IdType == "doi" {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

// year takes the electronic ArticleDate first, then the issue PubDate.
// MedlineDate looks like "2020 Jan-Feb" or "2019-2020".
func (a Article) year() int {
	candidates := append([]string{}, a.ArticleDates...)
	candidates = append(candidates, a.Journal.PubDate.Year)
	if f := strings.Fields(a.Journal.PubDate.MedlineDate); len(f) > 0 {
		candidates = append(candidates, strings.SplitN(f[0], "-", 2)[0])
	}
	for _, c := range candidates {
		if y, err := strconv.Atoi(strings.TrimSpace(c)); err == nil {
			return y
		}
	}
	return 0
}

// abstract joins sections, prefixing labelled ones with their label.
func (a Article) abstract() string {
	if len(a.Abstract) == 1 && a.Abstract[0].Label == "" {
		return strings.TrimSpace(a.Abstract[0].Value)
	}
	var b strings.Builder
	for _, section := range a.Abstract {
		text := strings.TrimSpace(section.Value)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if section.Label != "" {
			b.WriteString(section.Label)
			b.WriteString(": ")
		}
		b.WriteString(text)
	}
	return b.String()
}

func (a Article) rawAuthors() []papersources.RawAuthor {
	var out []papersources.RawAuthor
	for _, au := range a.Authors {
		switch {
		case au.ValidYN == "N":
		case au.CollectiveName != "":
			out = append(out, papersources.RawAuthor{Name: au.CollectiveName})
		case au.ForeName != "" || au.LastName != "":
			out = append(out, papersources.RawAuthor{Given: au.ForeName, Family: au.LastName})
		}
	}
	return out
}

func (a Article) isPreprint() bool {
	if a.PublicationTypeList == nil {
		return false
	}
	for _, pt := range a.PublicationTypeList.PublicationTypes {
		if strings.EqualFold(strings.TrimSpace(pt.Value), "Preprint") {
			return true
		}
	}
	return false
}

// pages prefers MedlinePgn ("123-45") and otherwise joins start and end.
func (p *Pagination) pages() string {
	switch {
	case p == nil:
		return ""
	case p.MedlinePgn != "":
		return p.MedlinePgn
	case p.EndPage != "" && p.EndPage != p.StartPage:
		return p.StartPage + "-" + p.EndPage
	default:
		return p.StartPage
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
