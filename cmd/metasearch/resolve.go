package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/metasearch-service/internal/domain"
)

func newResolveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <doi>",
		Short: "Look up a single work by DOI",
		Long: `Resolve asks the enabled providers for a DOI and prints the first normalized
match. DOI URLs and "doi:" prefixes are accepted.`,
		Example: `  metasearch resolve 10.1038/nature12373
  metasearch resolve https://doi.org/10.48550/arXiv.1706.03762 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(c)
			if err != nil {
				return err
			}

			src, err := s.searcher.Resolve(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no provider knows %s", args[0])
			}
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), c.jsonOut).detail(src)
		},
	}
}
