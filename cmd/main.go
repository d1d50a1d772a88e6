package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/invisterra/internal/logger"
	"github.com/forest-guardian/invisterra/internal/notification"
	"github.com/forest-guardian/invisterra/internal/properties"
	"github.com/forest-guardian/invisterra/internal/ui"
	"github.com/joho/godotenv"
)

func printBanner() {
	bannercolor.Cyan(figure.NewFigure("Invisterra", "isometric1", true).String())
	fmt.Println()
}

func loadEnv() {
	// Missing files are fine: every setting has a default or is optional.
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")
}

func recoverPanic(ctx context.Context, notifier *notification.Discord) {
	r := recover()
	if r == nil {
		return
	}
	pc, file, line, ok := runtime.Caller(3)
	location := "Unknown location"
	if ok {
		location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
	}

	ui.PrintError(fmt.Sprintf("PANIC: %v\nLocation: %s\nPlease check the input and try again.", r, location))

	errMessage := fmt.Sprintf("Invisterra panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
	if err := notifier.Error(ctx, errMessage); err != nil {
		ui.PrintError("Failed to send notification: " + err.Error())
	}
	os.Exit(2)
}

func run() int {
	loadEnv()

	log := logger.Build(logger.Config{
		Level:     properties.LogLevel(),
		Console:   properties.LogConsole(),
		Component: "cli",
	}, nil)
	ctx := log.WithContext(context.Background())

	notifier := notification.NewDiscord()
	defer recoverPanic(ctx, notifier)

	if err := RootCommand(notifier).ExecuteContext(ctx); err != nil {
		ui.PrintError(ui.Describe(err))
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
