package papersources

// RawRecord holds candidate fields copied from a provider payload.
// Fields are not cleaned: titles may carry markup, DOIs may carry URL
// prefixes, years may be missing. The normalizer resolves the fallbacks.
type RawRecord struct {
	Title  string
	Titles []string

	DOI         string
	Identifiers []Identifier

	Authors      []RawAuthor
	AuthorString string

	Year      int
	Date      string
	DateParts []int

	URL   string
	Links []Link

	Type            string
	Container       string
	ContainerTitles []string
	Publisher       string

	Volume    string
	Issue     string
	Pages     string
	FirstPage string
	LastPage  string

	ISBN []string
	ISSN []string

	Abstract              string
	AbstractInvertedIndex map[string][]int
}

// Identifier is a typed identifier such as {"doi", "10.1000/x"}.
type Identifier struct {
	Type  string
	Value string
}

// Link is a URL with an optional content type.
type Link struct {
	URL  string
	Type string
}

// RawAuthor carries whatever name parts a provider supplies.
type RawAuthor struct {
	Name   string
	Given  string
	Family string
}
