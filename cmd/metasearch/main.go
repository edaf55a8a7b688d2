// Package main is the entry point for the metasearch CLI. It runs the same
// search pipeline as the HTTP server, in-process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/helixir/metasearch-service/internal/app"
	"github.com/helixir/metasearch-service/internal/config"
	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/fetcher"
	"github.com/helixir/metasearch-service/internal/observability"
	"github.com/helixir/metasearch-service/internal/papersources"
)

// version is set at build time via ldflags.
var version = "dev"

// searcher is the part of the pipeline the commands drive.
type searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) (*fetcher.Result, error)
	Stream(ctx context.Context, q domain.SearchQuery, emit fetcher.EmitFunc) error
	Resolve(ctx context.Context, identifier string) (*domain.Source, error)
}

// session is a pipeline ready for one command.
type session struct {
	searcher searcher
	registry *papersources.Registry
}

// cli holds the persistent flags and the session factory.
type cli struct {
	cfgFile string
	jsonOut bool
	verbose bool

	open func(c *cli) (*session, error)
}

// openPipeline loads configuration and wires the pipeline. Metrics go to a
// private registry since nothing scrapes a CLI process.
func openPipeline(c *cli) (*session, error) {
	cfg, err := config.LoadFile(c.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  level,
		Format: "console",
		Output: "stderr",
	}).With().Str("component", "cli").Logger()

	a, err := app.New(cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		return nil, err
	}
	return &session{searcher: a.Fetcher, registry: a.Registry}, nil
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "metasearch",
		Short: "Search scholarly metadata providers from the terminal",
		Long: `metasearch queries CrossRef, PubMed, arXiv, Semantic Scholar, OpenAlex,
CORE, bioRxiv, Europe PMC, DataCite and DOAJ in parallel, normalizes the
records and removes duplicates.

Configuration is read from --config, ./config.yaml or the METASEARCH_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: ./config.yaml or /etc/metasearch-service/config.yaml)")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log adapter activity to stderr")

	root.AddCommand(
		newSearchCmd(c),
		newResolveCmd(c),
		newProvidersCmd(c),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version of metasearch",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "metasearch %s\n", version)
			},
		},
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&cli{open: openPipeline})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
