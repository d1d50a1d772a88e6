package ui

import (
	"context"
	"errors"
	"io"

	"github.com/forest-guardian/invisterra/internal/delivery"
	"github.com/forest-guardian/invisterra/internal/notification"
)

// App bundles what the interactive screens need.
type App struct {
	Console  *Console
	Analyzer *delivery.Analyzer
	Settings *delivery.SettingsStore
	// Fetcher is nil when no Copernicus credentials are configured.
	Fetcher  *delivery.Fetcher
	Notifier *notification.Discord
}

type menuOption struct {
	title   string
	handler func(ctx context.Context) error
}

// ShowMenu displays the main menu and handles user input until the user
// exits or input ends.
func (a *App) ShowMenu(ctx context.Context) {
	c := a.console()
	menuOptions := []menuOption{
		{"Analyze a spectral index from a folder of band files", a.AnalyzeBands},
		{"View the list of available indices", func(context.Context) error { return ListIndices(c.out) }},
		{"Download Sentinel-2 bands for an area", a.FetchBands},
		{"Exit the application", nil},
	}

	for {
		c.Info("===================\n")
		for i, opt := range menuOptions {
			c.Info(optionLine(i, opt.title))
		}
		choice, err := c.ReadInt("Please enter your choice: ", 1, len(menuOptions))
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			c.Error(err.Error())
			continue
		}

		handler := menuOptions[choice-1].handler
		if handler == nil {
			c.Listing("Exiting...")
			return
		}
		if err := handler(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			c.Error(Describe(err))
		}
	}
}

func (a *App) console() *Console {
	if a.Console == nil {
		return std
	}
	return a.Console
}
