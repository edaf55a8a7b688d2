// Package providers builds the adapter registry from configuration.
//
// The provider set is closed: NewAdapter has one case per domain.Provider,
// and adding a provider means adding a case here and an adapter package.
// The orchestrator never changes.
package providers

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/metasearch-service/internal/config"
	"github.com/helixir/metasearch-service/internal/domain"
	"github.com/helixir/metasearch-service/internal/papersources"
	"github.com/helixir/metasearch-service/internal/papersources/arxiv"
	"github.com/helixir/metasearch-service/internal/papersources/biorxiv"
	"github.com/helixir/metasearch-service/internal/papersources/core"
	"github.com/helixir/metasearch-service/internal/papersources/crossref"
	"github.com/helixir/metasearch-service/internal/papersources/datacite"
	"github.com/helixir/metasearch-service/internal/papersources/doaj"
	"github.com/helixir/metasearch-service/internal/papersources/europepmc"
	"github.com/helixir/metasearch-service/internal/papersources/openalex"
	"github.com/helixir/metasearch-service/internal/papersources/pubmed"
	"github.com/helixir/metasearch-service/internal/papersources/semanticscholar"
)

// NewAdapter constructs the adapter for p from the paper source settings.
func NewAdapter(p domain.Provider, cfg config.PaperSourcesConfig) (papersources.Adapter, error) {
	sc := cfg.Source(p)

	switch p {
	case domain.ProviderCrossRef:
		return crossref.New(crossref.Config{
			BaseURL:    sc.BaseURL,
			Email:      cfg.Email,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			MaxResults: sc.MaxResults,
			Enabled:    sc.Enabled,
		}), nil

	case domain.ProviderPubMed:
		return pubmed.New(pubmed.Config{
			BaseURL:    sc.BaseURL,
			APIKey:     sc.APIKey,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			MaxResults: sc.MaxResults,
			Enabled:    sc.Enabled,
		}), nil

	case domain.ProviderArXiv:
		return arxiv.New(arxiv.Config{
			BaseURL:    sc.BaseURL,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			MaxResults: sc.MaxResults,
			Enabled:    sc.Enabled,
		}), nil

	case domain.ProviderSemanticScholar:
		return semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:    sc.BaseURL,
			APIKey:     sc.APIKey,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			MaxResults: sc.MaxResults,
			Enabled:    sc.Enabled,
		}, nil), nil

	case domain.ProviderOpenAlex:
		return openalex.New(openalex.Config{
			BaseURL:    sc.BaseURL,
			Email:      cfg.Email,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			MaxResults: sc.MaxResults,
			Enabled:    sc.Enabled,
		}), nil

	case domain.ProviderCORE:
		return core.New(core.Config{
			BaseURL:    sc.BaseURL,
			APIKey:     sc.APIKey,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			MaxResults: sc.MaxResults,
			Enabled:    sc.Enabled,
		}), nil

	case domain.ProviderEuropePMC:
		return europepmc.New(europepmc.Config{
			BaseURL:    sc.BaseURL,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			MaxResults: sc.MaxResults,
			Enabled:    sc.Enabled,
		}), nil

	case domain.ProviderDOAJ:
		return doaj.New(doaj.Config{
			BaseURL:    sc.BaseURL,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			MaxResults: sc.MaxResults,
			Enabled:    sc.Enabled,
		}), nil

	case domain.ProviderBioRxiv:
		// Searches go through Europe PMC, lookups through api.biorxiv.org.
		return biorxiv.New(biorxiv.Config{
			SearchBaseURL:  cfg.EuropePMC.BaseURL,
			DetailsBaseURL: sc.BaseURL,
			Timeout:        sc.Timeout,
			RateLimit:      sc.RateLimit,
			MaxResults:     sc.MaxResults,
			Enabled:        sc.Enabled,
		}), nil

	case domain.ProviderDataCite:
		return datacite.New(datacite.Config{
			BaseURL:    sc.BaseURL,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			MaxResults: sc.MaxResults,
			Enabled:    sc.Enabled,
		}), nil

	default:
		return nil, fmt.Errorf("no adapter for provider %q", p)
	}
}

// NewRegistry registers every provider in fan-out order. Disabled
// adapters are registered too so they can be listed; the registry's
// Select skips them.
func NewRegistry(cfg config.PaperSourcesConfig, logger zerolog.Logger) (*papersources.Registry, error) {
	order, err := cfg.FanOutOrder()
	if err != nil {
		return nil, err
	}

	registry := papersources.NewRegistry()
	for _, p := range order {
		adapter, err := NewAdapter(p, cfg)
		if err != nil {
			return nil, err
		}
		registry.Register(adapter)

		logger.Info().
			Str("provider", string(p)).
			Bool("enabled", adapter.IsEnabled()).
			Msgf("registered paper source: %s", adapter.Name())
	}
	return registry, nil
}
