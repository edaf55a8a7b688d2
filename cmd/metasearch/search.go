package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/fetcher"
)

type searchFlags struct {
	queryType  string
	limit      int
	yearFrom   int
	yearTo     int
	openAccess bool
	providers  []string
	stream     bool
}

func newSearchCmd(c *cli) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every enabled provider",
		Long: `Search fans the query out to the enabled providers, normalizes what they
return and drops duplicates by DOI and title.

With --stream, results are printed per provider as they arrive instead of
once at the end.`,
		Example: `  metasearch search "attention is all you need" --type title
  metasearch search "crispr off-target" --year-from 2018 --provider pubmed,europepmc
  metasearch search 10.1038/nature12373 --type doi --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query(strings.Join(args, " "))
			if err != nil {
				return err
			}

			s, err := c.open(c)
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout(), c.jsonOut)
			if f.stream {
				return s.searcher.Stream(cmd.Context(), q, func(ev fetcher.Event) error {
					return out.event(ev)
				})
			}

			res, err := s.searcher.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			return out.result(res)
		},
	}

	cmd.Flags().StringVarP(&f.queryType, "type", "t", string(domain.QueryTypeKeyword), "query type: keyword, title, author or doi")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "maximum number of results (0 uses the configured default)")
	cmd.Flags().IntVar(&f.yearFrom, "year-from", 0, "drop works published before this year")
	cmd.Flags().IntVar(&f.yearTo, "year-to", 0, "drop works published after this year")
	cmd.Flags().BoolVar(&f.openAccess, "open-access", false, "ask providers for open access works only")
	cmd.Flags().StringSliceVarP(&f.providers, "provider", "p", nil, "restrict to these providers (comma-separated or repeated)")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "print results per provider as they arrive")

	return cmd
}

// query builds the search query from the flags. Validation of the text,
// type and limit is left to the pipeline.
func (f searchFlags) query(text string) (domain.SearchQuery, error) {
	if f.limit < 0 {
		return domain.SearchQuery{}, domain.NewInvalidQueryError("limit", "must be a non-negative integer")
	}

	q := domain.SearchQuery{
		Query: text,
		Type:  domain.QueryType(strings.ToLower(f.queryType)),
		Limit: f.limit,
		Filters: domain.Filters{
			YearFrom:       f.yearFrom,
			YearTo:         f.yearTo,
			OpenAccessOnly: f.openAccess,
		},
	}

	for _, name := range f.providers {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		p, err := domain.ParseProvider(name)
		if err != nil {
			return domain.SearchQuery{}, err
		}
		q.Filters.Providers = append(q.Filters.Providers, p)
	}
	return q, nil
}
