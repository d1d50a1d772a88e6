package main

import (
	"context"
	"os"

	"github.com/forest-guardian/invisterra/internal/notification"
	"github.com/forest-guardian/invisterra/internal/ui"
	"github.com/spf13/cobra"
)

func menuCommand(notifier *notification.Discord) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Start the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd.Context(), notifier)
		},
	}
}

func runMenu(ctx context.Context, notifier *notification.Discord) error {
	printBanner()
	newApp(ctx, ui.NewConsole(os.Stdin, os.Stdout), notifier).ShowMenu(ctx)
	return nil
}
