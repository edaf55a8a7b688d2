package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type providerInfo struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
}

func newProvidersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the registered providers in fan-out order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(c)
			if err != nil {
				return err
			}

			var infos []providerInfo
			for _, a := range s.registry.All() {
				infos = append(infos, providerInfo{
					Provider: string(a.Provider()),
					Name:     a.Name(),
					Enabled:  a.IsEnabled(),
				})
			}

			if c.jsonOut {
				return newPrinter(cmd.OutOrStdout(), true).writeJSON(infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PROVIDER\tNAME\tENABLED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%t\n", info.Provider, info.Name, info.Enabled)
			}
			return tw.Flush()
		},
	}
}
