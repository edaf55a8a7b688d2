// Package domain provides domain models and business logic for the Metasearch Service.
package domain

import (
	"fmt"
	"strings"
)

// Provider identifies an upstream scholarly-metadata API.
// The set is closed: every value is handled by exactly one adapter.
type Provider string

const (
	ProviderCrossRef        Provider = "crossref"
	ProviderPubMed          Provider = "pubmed"
	ProviderArXiv           Provider = "arxiv"
	ProviderSemanticScholar Provider = "semantic_scholar"
	ProviderOpenAlex        Provider = "openalex"
	ProviderCORE            Provider = "core"
	ProviderEuropePMC       Provider = "europepmc"
	ProviderDOAJ            Provider = "doaj"
	ProviderBioRxiv         Provider = "biorxiv"
	ProviderDataCite        Provider = "datacite"
)

// AllProviders returns every provider in default fan-out order.
func AllProviders() []Provider {
	return []Provider{
		ProviderCrossRef,
		ProviderPubMed,
		ProviderArXiv,
		ProviderSemanticScholar,
		ProviderOpenAlex,
		ProviderCORE,
		ProviderEuropePMC,
		ProviderDOAJ,
		ProviderBioRxiv,
		ProviderDataCite,
	}
}

// IsValid reports whether p is a known provider.
func (p Provider) IsValid() bool {
	for _, known := range AllProviders() {
		if p == known {
			return true
		}
	}
	return false
}

// ParseProvider parses a provider name case-insensitively.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", NewValidationError("provider", fmt.Sprintf("unknown provider %q", s))
	}
	return p, nil
}

// QueryType selects which adapter operation a search runs.
type QueryType string

const (
	QueryTypeKeyword QueryType = "keyword"
	QueryTypeTitle   QueryType = "title"
	QueryTypeAuthor  QueryType = "author"
	QueryTypeDOI     QueryType = "doi"
)

// IsValid reports whether t is one of the supported query types.
func (t QueryType) IsValid() bool {
	switch t {
	case QueryTypeKeyword, QueryTypeTitle, QueryTypeAuthor, QueryTypeDOI:
		return true
	default:
		return false
	}
}

// SourceType is the canonical publication-type vocabulary.
type SourceType string

const (
	SourceTypeJournalArticle     SourceType = "journal-article"
	SourceTypePreprint           SourceType = "preprint"
	SourceTypeBook               SourceType = "book"
	SourceTypeBookChapter        SourceType = "book-chapter"
	SourceTypeProceedingsArticle SourceType = "proceedings-article"
	SourceTypeDataset            SourceType = "dataset"
	SourceTypeDissertation       SourceType = "dissertation"
	SourceTypeReport             SourceType = "report"
	SourceTypeOther              SourceType = "other"
)
