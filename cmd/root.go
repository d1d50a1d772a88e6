package main

import (
	"context"
	"os"

	"github.com/forest-guardian/invisterra/internal/delivery"
	"github.com/forest-guardian/invisterra/internal/geotiff"
	"github.com/forest-guardian/invisterra/internal/notification"
	"github.com/forest-guardian/invisterra/internal/properties"
	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/forest-guardian/invisterra/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootCommand creates and returns the root command. Without a subcommand
// the interactive menu is started.
func RootCommand(notifier *notification.Discord) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "invisterra",
		Short:         "Spectral index analysis of Sentinel-2 bands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd.Context(), notifier)
		},
	}

	subcommands := []*cobra.Command{
		analyzeCommand(notifier),
		indicesCommand(),
		fetchCommand(notifier),
		menuCommand(notifier),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

func newApp(ctx context.Context, console *ui.Console, notifier *notification.Discord) *ui.App {
	app := &ui.App{
		Console: console,
		Analyzer: &delivery.Analyzer{
			Store:    geotiff.Store{},
			Workers:  properties.Workers(),
			Progress: os.Stderr,
		},
		Settings: delivery.NewSettingsStore(),
		Notifier: notifier,
	}
	if fetcher, err := newFetcher(); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("Downloads disabled")
	} else {
		app.Fetcher = fetcher
	}
	return app
}

func newFetcher() (*delivery.Fetcher, error) {
	client, err := sentinel.NewClient()
	if err != nil {
		return nil, err
	}
	return &delivery.Fetcher{Downloader: client, Splitter: geotiff.Store{}}, nil
}
