// Package europepmc provides a client for the Europe PMC REST search API.
//
// Title, author and DOI searches use the TITLE:, AUTH: and DOI: field
// prefixes; keyword searches pass the query through. Results are requested
// with resultType=core so abstracts and structured author lists are
// included.
//
// API Documentation: https://europepmc.org/RestfulWebService
package europepmc

// SearchResponse represents the top-level Europe PMC search API response.
type SearchResponse struct {
	HitCount       int        `json:"hitCount"`
	NextCursorMark string     `json:"nextCursorMark"`
	ResultList     ResultList `json:"resultList"`
}

// ResultList wraps the array of article results.
type ResultList struct {
	Result []Article `json:"result"`
}

// Article represents a single article in the Europe PMC response.
type Article struct {
	ID                   string               `json:"id"`
	Source               string               `json:"source"` // "MED", "PMC", "PPR", ...
	PMID                 string               `json:"pmid"`
	PMCID                string               `json:"pmcid"`
	DOI                  string               `json:"doi"`
	Title                string               `json:"title"`
	AuthorString         string               `json:"authorString"` // "Smith J, Doe A."
	AuthorList           *AuthorList          `json:"authorList"`
	JournalInfo          *JournalInfo         `json:"journalInfo"`
	PubYear              string               `json:"pubYear"`
	PageInfo             string               `json:"pageInfo"`
	AbstractText         string               `json:"abstractText"`
	IsOpenAccess         string               `json:"isOpenAccess"` // "Y"/"N"
	FirstPublicationDate string               `json:"firstPublicationDate"`
	PubTypeList          *PubTypeList         `json:"pubTypeList"`
	BookOrReportDetails  *BookOrReportDetails `json:"bookOrReportDetails"`
	FullTextURLList      *FullTextURLList     `json:"fullTextUrlList"`
}

// AuthorList holds structured authors.
type AuthorList struct {
	Author []Author `json:"author"`
}

// Author is a structured author entry.
type Author struct {
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// JournalInfo carries journal, volume and issue details.
type JournalInfo struct {
	Volume            string  `json:"volume"`
	Issue             string  `json:"issue"`
	YearOfPublication int     `json:"yearOfPublication"`
	Journal           Journal `json:"journal"`
}

// Journal describes the journal itself.
type Journal struct {
	Title string `json:"title"`
	ISSN  string `json:"issn"`
	ESSN  string `json:"essn"`
}

// PubTypeList lists publication types such as "research-article".
type PubTypeList struct {
	PubType []string `json:"pubType"`
}

// BookOrReportDetails is populated for books, reports and preprints.
type BookOrReportDetails struct {
	Publisher string `json:"publisher"`
	ISBN10    string `json:"isbn10"`
	ISBN13    string `json:"isbn13"`
}

// FullTextURLList lists full-text links.
type FullTextURLList struct {
	FullTextURL []FullTextURL `json:"fullTextUrl"`
}

// FullTextURL is a single full-text link.
type FullTextURL struct {
	URL           string `json:"url"`
	DocumentStyle string `json:"documentStyle"` // "pdf", "html", "doi"
}
