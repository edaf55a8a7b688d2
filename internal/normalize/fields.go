package normalize

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
)

var (
	doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

	// leadingYear matches a four-digit year at the start of a date string
	// such as "2021-03-04", "2021 Mar" or "2021".
	leadingYear = regexp.MustCompile(`^\s*(\d{4})`)

	// blockClose matches closing tags after which text runs should be separated.
	blockClose = regexp.MustCompile(`(?i)</(?:jats:)?(?:p|title|sec|div|li|h[1-6])>|<br\s*/?>`)
)

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"doi:",
}

// NormalizeDOI strips resolver prefixes, lowercases, and validates a DOI.
// It returns "" for values that are not DOIs.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}

	lower := strings.ToLower(doi)
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(lower, prefix) {
			lower = strings.TrimSpace(lower[len(prefix):])
			break
		}
	}

	if !doiPattern.MatchString(lower) {
		return ""
	}
	return lower
}

// TitleKey derives the deduplication key of a title: lowercase, with every
// rune that is not a letter, digit or whitespace removed, and whitespace
// collapsed.
func TitleKey(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// StripMarkup removes HTML/JATS tags and entities from s and collapses
// whitespace. Plain text passes through unchanged apart from whitespace.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}

	s = blockClose.ReplaceAllStringFunc(s, func(tag string) string { return tag + " " })
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	return collapse(doc.Text())
}

// ReconstructAbstract rebuilds abstract text from an OpenAlex-style inverted
// index mapping words to their positions.
func ReconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	const maxAbstractWords = 100_000
	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	if totalPairs > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, totalPairs)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].pos == pairs[j].pos {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, pair := range pairs {
		words[i] = pair.word
	}
	return StripMarkup(strings.Join(words, " "))
}

// extractYear picks the first plausible year from Year, DateParts, then Date.
func extractYear(raw papersources.RawRecord) int {
	if plausibleYear(raw.Year) {
		return raw.Year
	}
	if len(raw.DateParts) > 0 && plausibleYear(raw.DateParts[0]) {
		return raw.DateParts[0]
	}
	if m := leadingYear.FindStringSubmatch(raw.Date); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil && plausibleYear(y) {
			return y
		}
	}
	return 0
}

func plausibleYear(y int) bool {
	return y >= 1000 && y <= time.Now().Year()+1
}

// extractAuthors coerces structured or string-encoded author lists.
func extractAuthors(raw papersources.RawRecord) []domain.Author {
	authors := make([]domain.Author, 0, len(raw.Authors))
	for _, a := range raw.Authors {
		given := collapse(a.Given)
		family := collapse(a.Family)
		name := collapse(a.Name)

		switch {
		case given != "" || family != "":
			full := name
			if full == "" {
				full = strings.TrimSpace(given + " " + family)
			}
			authors = append(authors, domain.Author{FullName: full, FirstName: given, LastName: family})
		case name != "":
			authors = append(authors, domain.Author{FullName: name})
		}
	}
	if len(authors) > 0 {
		return authors
	}

	return splitAuthorString(raw.AuthorString)
}

// splitAuthorString splits "Smith J, Doe A." or "Smith, John; Doe, Ann".
// A semicolon anywhere means entries are separated by semicolons, since
// commas then separate family and given names.
func splitAuthorString(s string) []domain.Author {
	s = strings.TrimSpace(s)
	if s == "" {
		return []domain.Author{}
	}

	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}

	parts := strings.Split(s, sep)
	authors := make([]domain.Author, 0, len(parts))
	for _, part := range parts {
		name := collapse(strings.TrimSuffix(strings.TrimSpace(part), "."))
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{FullName: name})
	}
	return authors
}

var sourceTypeAliases = map[string]domain.SourceType{
	"journal-article":     domain.SourceTypeJournalArticle,
	"journalarticle":      domain.SourceTypeJournalArticle,
	"article":             domain.SourceTypeJournalArticle,
	"research-article":    domain.SourceTypeJournalArticle,
	"review":              domain.SourceTypeJournalArticle,
	"review-article":      domain.SourceTypeJournalArticle,
	"letter":              domain.SourceTypeJournalArticle,
	"editorial":           domain.SourceTypeJournalArticle,
	"posted-content":      domain.SourceTypePreprint,
	"preprint":            domain.SourceTypePreprint,
	"book":                domain.SourceTypeBook,
	"monograph":           domain.SourceTypeBook,
	"edited-book":         domain.SourceTypeBook,
	"reference-book":      domain.SourceTypeBook,
	"book-chapter":        domain.SourceTypeBookChapter,
	"bookchapter":         domain.SourceTypeBookChapter,
	"book-section":        domain.SourceTypeBookChapter,
	"chapter":             domain.SourceTypeBookChapter,
	"proceedings-article": domain.SourceTypeProceedingsArticle,
	"proceedings":         domain.SourceTypeProceedingsArticle,
	"conference-paper":    domain.SourceTypeProceedingsArticle,
	"conferencepaper":     domain.SourceTypeProceedingsArticle,
	"conference":          domain.SourceTypeProceedingsArticle,
	"dataset":             domain.SourceTypeDataset,
	"dissertation":        domain.SourceTypeDissertation,
	"thesis":              domain.SourceTypeDissertation,
	"report":              domain.SourceTypeReport,
	"report-component":    domain.SourceTypeReport,
}

// MapSourceType maps a provider's type label onto the canonical vocabulary.
// Empty or unknown labels fall back to the provider's default type.
func MapSourceType(provider domain.Provider, rawType string) domain.SourceType {
	key := strings.ToLower(strings.TrimSpace(rawType))
	key = strings.NewReplacer(" ", "-", "_", "-").Replace(key)
	if st, ok := sourceTypeAliases[key]; ok {
		return st
	}

	switch provider {
	case domain.ProviderArXiv, domain.ProviderBioRxiv:
		return domain.SourceTypePreprint
	case domain.ProviderDataCite:
		if key == "" {
			return domain.SourceTypeDataset
		}
		return domain.SourceTypeOther
	}

	if key == "" {
		return domain.SourceTypeJournalArticle
	}
	return domain.SourceTypeOther
}
