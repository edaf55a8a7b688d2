package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
)

func TestNormalize_CrossRefShape(t *testing.T) {
	raw := papersources.RawRecord{
		Titles:          []string{"", "Attention Is All You Need"},
		DOI:             "https://doi.org/10.48550/ARXIV.1706.03762",
		Authors:         []papersources.RawAuthor{{Given: "Ashish", Family: "Vaswani"}, {Name: "Noam Shazeer"}},
		DateParts:       []int{2017, 6, 12},
		Type:            "proceedings-article",
		ContainerTitles: []string{"Advances in Neural Information Processing Systems"},
		Publisher:       "Curran Associates",
		Volume:          "30",
		FirstPage:       "5998",
		LastPage:        "6008",
		Abstract:        "<jats:title>Abstract</jats:title><jats:p>The dominant sequence transduction models.</jats:p>",
	}

	src, err := Normalize(raw, domain.ProviderCrossRef)
	require.NoError(t, err)

	assert.Equal(t, "Attention Is All You Need", src.Title)
	assert.Equal(t, "10.48550/arxiv.1706.03762", src.DOI)
	assert.Equal(t, "https://doi.org/10.48550/arxiv.1706.03762", src.URL)
	assert.Equal(t, 2017, src.Year)
	assert.Equal(t, domain.SourceTypeProceedingsArticle, src.SourceType)
	assert.Equal(t, "Advances in Neural Information Processing Systems", src.Journal)
	assert.Equal(t, "5998-6008", src.Pages)
	assert.Equal(t, "Abstract The dominant sequence transduction models.", src.Abstract)
	assert.Equal(t, domain.ProviderCrossRef, src.SourceAPI)

	require.Len(t, src.Authors, 2)
	assert.Equal(t, domain.Author{FullName: "Ashish Vaswani", FirstName: "Ashish", LastName: "Vaswani"}, src.Authors[0])
	assert.Equal(t, domain.Author{FullName: "Noam Shazeer"}, src.Authors[1])

	// authors, year, doi, url, journal, publisher, volume, pages, abstract
	assert.Equal(t, 0.75, src.Completeness)
}

func TestNormalize_MissingTitle(t *testing.T) {
	_, err := Normalize(papersources.RawRecord{Titles: []string{"  ", ""}, DOI: "10.1000/x"}, domain.ProviderDOAJ)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNormalization)

	var nerr *domain.NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, domain.ProviderDOAJ, nerr.Provider)
}

func TestNormalize_MarkupOnlyTitleIsMissing(t *testing.T) {
	_, err := Normalize(papersources.RawRecord{Title: "<i> </i>"}, domain.ProviderCrossRef)
	assert.ErrorIs(t, err, domain.ErrNormalization)
}

func TestNormalize_Fallbacks(t *testing.T) {
	t.Run("doi from identifiers and url from links", func(t *testing.T) {
		src, err := Normalize(papersources.RawRecord{
			Title:       "T",
			Identifiers: []papersources.Identifier{{Type: "pissn", Value: "1234-5678"}, {Type: "DOI", Value: "10.1234/ABC"}},
			Links:       []papersources.Link{{URL: ""}, {URL: "https://example.org/a"}},
		}, domain.ProviderDOAJ)
		require.NoError(t, err)
		assert.Equal(t, "10.1234/abc", src.DOI)
		assert.Equal(t, "https://example.org/a", src.URL)
	})

	t.Run("invalid doi is dropped", func(t *testing.T) {
		src, err := Normalize(papersources.RawRecord{Title: "T", DOI: "not-a-doi"}, domain.ProviderCrossRef)
		require.NoError(t, err)
		assert.Empty(t, src.DOI)
		assert.Empty(t, src.URL)
	})

	t.Run("year from date string", func(t *testing.T) {
		src, err := Normalize(papersources.RawRecord{Title: "T", Date: "2019-11-02"}, domain.ProviderEuropePMC)
		require.NoError(t, err)
		assert.Equal(t, 2019, src.Year)
	})

	t.Run("implausible year is ignored", func(t *testing.T) {
		src, err := Normalize(papersources.RawRecord{Title: "T", Year: 12, Date: "0000"}, domain.ProviderCrossRef)
		require.NoError(t, err)
		assert.Zero(t, src.Year)
	})

	t.Run("author string", func(t *testing.T) {
		src, err := Normalize(papersources.RawRecord{Title: "T", AuthorString: "Smith J, Doe A."}, domain.ProviderEuropePMC)
		require.NoError(t, err)
		assert.Equal(t, []domain.Author{{FullName: "Smith J"}, {FullName: "Doe A"}}, src.Authors)
	})

	t.Run("semicolon separated author string", func(t *testing.T) {
		src, err := Normalize(papersources.RawRecord{Title: "T", AuthorString: "Smith, John; Doe, Ann"}, domain.ProviderBioRxiv)
		require.NoError(t, err)
		assert.Equal(t, []domain.Author{{FullName: "Smith, John"}, {FullName: "Doe, Ann"}}, src.Authors)
	})

	t.Run("no authors is an empty list", func(t *testing.T) {
		src, err := Normalize(papersources.RawRecord{Title: "T"}, domain.ProviderCrossRef)
		require.NoError(t, err)
		assert.NotNil(t, src.Authors)
		assert.Empty(t, src.Authors)
		assert.Zero(t, src.Completeness)
	})

	t.Run("inverted index abstract", func(t *testing.T) {
		src, err := Normalize(papersources.RawRecord{
			Title:                 "T",
			AbstractInvertedIndex: map[string][]int{"world": {1}, "hello": {0}, "again": {2}},
		}, domain.ProviderOpenAlex)
		require.NoError(t, err)
		assert.Equal(t, "hello world again", src.Abstract)
	})

	t.Run("isbn and issn take first non-blank", func(t *testing.T) {
		src, err := Normalize(papersources.RawRecord{Title: "T", ISBN: []string{"", "978-3-16-148410-0"}, ISSN: []string{"0028-0836"}}, domain.ProviderCrossRef)
		require.NoError(t, err)
		assert.Equal(t, "978-3-16-148410-0", src.ISBN)
		assert.Equal(t, "0028-0836", src.ISSN)
	})
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"10.1038/nature12373", "10.1038/nature12373"},
		{"https://doi.org/10.1038/NATURE12373", "10.1038/nature12373"},
		{"http://dx.doi.org/10.1000/xyz", "10.1000/xyz"},
		{"doi:10.1000/xyz", "10.1000/xyz"},
		{"DOI:10.1000/xyz", "10.1000/xyz"},
		{"  10.1000/xyz  ", "10.1000/xyz"},
		{"10.12/short-registrant", ""},
		{"11.1000/xyz", ""},
		{"10.1000/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDOI(tt.input))
		})
	}
}

func TestTitleKey(t *testing.T) {
	want := "attention is all you need"
	assert.Equal(t, want, TitleKey("Attention Is All You Need"))
	assert.Equal(t, want, TitleKey("attention is all you need"))
	assert.Equal(t, want, TitleKey("Attention Is All You Need!"))
	assert.Equal(t, want, TitleKey("  Attention:  Is All You   Need. "))
	assert.Equal(t, "café naïve 42", TitleKey("Café — Naïve (42)"))
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "  plain   text ", expected: "plain text"},
		{name: "inline tags", input: "H<sub>2</sub>O in <i>vivo</i>", expected: "H2O in vivo"},
		{name: "entities", input: "Smith &amp; Wesson", expected: "Smith & Wesson"},
		{name: "jats paragraphs", input: "<jats:p>One.</jats:p><jats:p>Two.</jats:p>", expected: "One. Two."},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripMarkup(tt.input))
		})
	}
}

func TestMapSourceType(t *testing.T) {
	tests := []struct {
		provider domain.Provider
		rawType  string
		expected domain.SourceType
	}{
		{domain.ProviderCrossRef, "journal-article", domain.SourceTypeJournalArticle},
		{domain.ProviderPubMed, "Journal Article", domain.SourceTypeJournalArticle},
		{domain.ProviderSemanticScholar, "JournalArticle", domain.SourceTypeJournalArticle},
		{domain.ProviderCrossRef, "posted-content", domain.SourceTypePreprint},
		{domain.ProviderDataCite, "Dataset", domain.SourceTypeDataset},
		{domain.ProviderDataCite, "", domain.SourceTypeDataset},
		{domain.ProviderDataCite, "Software", domain.SourceTypeOther},
		{domain.ProviderArXiv, "", domain.SourceTypePreprint},
		{domain.ProviderBioRxiv, "whatever", domain.SourceTypePreprint},
		{domain.ProviderOpenAlex, "", domain.SourceTypeJournalArticle},
		{domain.ProviderOpenAlex, "paratext", domain.SourceTypeOther},
		{domain.ProviderCORE, "book_chapter", domain.SourceTypeBookChapter},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider)+"/"+tt.rawType, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapSourceType(tt.provider, tt.rawType))
		})
	}
}
