package main

import (
	"github.com/forest-guardian/invisterra/internal/index"
	"github.com/forest-guardian/invisterra/internal/ui"
	"github.com/spf13/cobra"
)

func indicesCommand() *cobra.Command {
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "indices",
		Short: "List the supported spectral indices and the bands they need",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asCSV {
				return index.WriteCatalogCSV(cmd.OutOrStdout())
			}
			return ui.ListIndices(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write the list as CSV")
	return cmd
}
