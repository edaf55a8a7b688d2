// Package normalize converts provider RawRecords into canonical domain.Source
// values.
//
// Every provider spells the same bibliographic fact differently: CrossRef
// titles are arrays, OpenAlex abstracts are inverted indexes, Europe PMC
// authors arrive as one comma-separated string, JATS markup leaks into
// titles. Normalize resolves these fallbacks in one place so adapters can
// copy payload fields verbatim.
package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
)

// trackedFields is the number of optional fields counted by completeness.
const trackedFields = 12

// Normalize maps a raw record to a canonical Source. It returns a
// *domain.NormalizationError when no usable title can be found.
func Normalize(raw papersources.RawRecord, provider domain.Provider) (*domain.Source, error) {
	title := extractTitle(raw)
	if title == "" {
		return nil, domain.NewNormalizationError(provider, "missing title")
	}

	doi := extractDOI(raw)

	src := &domain.Source{
		Title:      title,
		Authors:    extractAuthors(raw),
		Year:       extractYear(raw),
		DOI:        doi,
		URL:        extractURL(raw, doi),
		SourceType: MapSourceType(provider, raw.Type),
		Journal:    StripMarkup(firstNonBlank(append([]string{raw.Container}, raw.ContainerTitles...)...)),
		Publisher:  collapse(raw.Publisher),
		Volume:     collapse(raw.Volume),
		Issue:      collapse(raw.Issue),
		Pages:      extractPages(raw),
		ISBN:       collapse(firstNonBlank(raw.ISBN...)),
		ISSN:       collapse(firstNonBlank(raw.ISSN...)),
		Abstract:   extractAbstract(raw),
		SourceAPI:  provider,
	}
	src.Completeness = Completeness(src)

	return src, nil
}

// Completeness returns the fraction of tracked optional fields that are
// populated, rounded to two decimals.
func Completeness(s *domain.Source) float64 {
	populated := 0
	for _, ok := range []bool{
		len(s.Authors) > 0,
		s.Year != 0,
		s.DOI != "",
		s.URL != "",
		s.Journal != "",
		s.Publisher != "",
		s.Volume != "",
		s.Issue != "",
		s.Pages != "",
		s.ISBN != "",
		s.ISSN != "",
		s.Abstract != "",
	} {
		if ok {
			populated++
		}
	}
	return math.Round(float64(populated)/trackedFields*100) / 100
}

func extractTitle(raw papersources.RawRecord) string {
	if t := StripMarkup(raw.Title); t != "" {
		return t
	}
	for _, candidate := range raw.Titles {
		if t := StripMarkup(candidate); t != "" {
			return t
		}
	}
	return ""
}

func extractDOI(raw papersources.RawRecord) string {
	if doi := NormalizeDOI(raw.DOI); doi != "" {
		return doi
	}
	for _, id := range raw.Identifiers {
		if strings.EqualFold(strings.TrimSpace(id.Type), "doi") {
			if doi := NormalizeDOI(id.Value); doi != "" {
				return doi
			}
		}
	}
	return ""
}

func extractURL(raw papersources.RawRecord, doi string) string {
	if u := strings.TrimSpace(raw.URL); u != "" {
		return u
	}
	for _, link := range raw.Links {
		if u := strings.TrimSpace(link.URL); u != "" {
			return u
		}
	}
	if doi != "" {
		return "https://doi.org/" + doi
	}
	return ""
}

func extractPages(raw papersources.RawRecord) string {
	if p := collapse(raw.Pages); p != "" {
		return p
	}
	first := collapse(raw.FirstPage)
	last := collapse(raw.LastPage)
	switch {
	case first != "" && last != "" && first != last:
		return fmt.Sprintf("%s-%s", first, last)
	case first != "":
		return first
	default:
		return last
	}
}

func extractAbstract(raw papersources.RawRecord) string {
	if a := StripMarkup(raw.Abstract); a != "" {
		return a
	}
	return ReconstructAbstract(raw.AbstractInvertedIndex)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
