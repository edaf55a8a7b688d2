package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/fetcher"
)

// maxAuthors is how many authors the text output lists before "et al.".
const maxAuthors = 3

// printer renders pipeline output as text or JSON.
type printer struct {
	w       io.Writer
	jsonOut bool
	seen    int
}

func newPrinter(w io.Writer, jsonOut bool) *printer {
	return &printer{w: w, jsonOut: jsonOut}
}

func (p *printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) result(res *fetcher.Result) error {
	if p.jsonOut {
		return p.writeJSON(res)
	}
	for _, s := range res.Sources {
		p.source(s)
	}
	_, err := fmt.Fprintf(p.w, "\n%d shown, %d found, %d providers ok, %d failed\n",
		len(res.Sources), res.TotalFound, res.ProvidersSucceeded, res.ProvidersFailed)
	return err
}

// event prints one streaming event. JSON output is one object per line so
// it can be piped into line-oriented tools.
func (p *printer) event(ev fetcher.Event) error {
	if p.jsonOut {
		line, err := json.Marshal(struct {
			Event fetcher.EventKind `json:"event"`
			Data  any               `json:"data"`
		}{ev.Kind, ev.Payload})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", line)
		return err
	}

	var err error
	switch pl := ev.Payload.(type) {
	case fetcher.StartPayload:
		_, err = fmt.Fprintf(p.w, "querying %d providers\n", pl.TotalProviders)
	case fetcher.ProgressPayload:
		_, err = fmt.Fprintf(p.w, "[%d/%d] %s\n", pl.Current, pl.Total, pl.Provider)
	case fetcher.ResultsPayload:
		for _, s := range pl.Sources {
			p.source(s)
		}
	case fetcher.DonePayload:
		_, err = fmt.Fprintf(p.w, "\n%d found, %d providers ok, %d failed\n",
			pl.TotalFound, pl.ProvidersSucceeded, pl.ProvidersFailed)
	}
	return err
}

// source prints a numbered one-record summary.
func (p *printer) source(s *domain.Source) {
	p.seen++
	fmt.Fprintf(p.w, "%3d. %s", p.seen, s.Title)
	if s.Year > 0 {
		fmt.Fprintf(p.w, " (%d)", s.Year)
	}
	fmt.Fprintln(p.w)

	if authors := authorLine(s.Authors); authors != "" {
		fmt.Fprintf(p.w, "     %s\n", authors)
	}
	if s.Journal != "" {
		fmt.Fprintf(p.w, "     %s\n", s.Journal)
	}
	if s.DOI != "" {
		fmt.Fprintf(p.w, "     doi:%s", s.DOI)
	} else if s.URL != "" {
		fmt.Fprintf(p.w, "     %s", s.URL)
	} else {
		fmt.Fprint(p.w, "    ")
	}
	fmt.Fprintf(p.w, " [%s]\n", s.SourceAPI)
}

// detail prints every populated field of a single source.
func (p *printer) detail(s *domain.Source) error {
	if p.jsonOut {
		return p.writeJSON(s)
	}

	fields := []struct{ name, value string }{
		{"title", s.Title},
		{"authors", authorLine(s.Authors)},
		{"year", yearString(s.Year)},
		{"type", string(s.SourceType)},
		{"journal", s.Journal},
		{"publisher", s.Publisher},
		{"volume", s.Volume},
		{"issue", s.Issue},
		{"pages", s.Pages},
		{"doi", s.DOI},
		{"isbn", s.ISBN},
		{"issn", s.ISSN},
		{"url", s.URL},
		{"provider", string(s.SourceAPI)},
		{"completeness", fmt.Sprintf("%.2f", s.Completeness)},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(p.w, "%-13s %s\n", f.name+":", f.value); err != nil {
			return err
		}
	}
	if s.Abstract != "" {
		_, err := fmt.Fprintf(p.w, "\n%s\n", s.Abstract)
		return err
	}
	return nil
}

func authorLine(authors []domain.Author) string {
	names := make([]string, 0, maxAuthors)
	for _, a := range authors {
		if len(names) == maxAuthors {
			break
		}
		if n := a.DisplayName(); n != "" {
			names = append(names, n)
		}
	}
	line := strings.Join(names, ", ")
	if len(authors) > maxAuthors {
		line += " et al."
	}
	return line
}

func yearString(y int) string {
	if y <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", y)
}
