package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"AsyncFyne/audio"
	"AsyncFyne/config"
	"AsyncFyne/i18n"
	"AsyncFyne/logging"
	"AsyncFyne/ui"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"
)

// configEnv names an optional config file.
const configEnv = "ASYNCFYNE_CONFIG"

func main() {
	cfg, err := config.Load(os.Getenv(configEnv))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	i18n.Detect(logger)

	fyneApp := app.New()
	fyneApp.Settings().SetTheme(ui.NewCustomTheme(ui.TextSize))

	a, err := NewAppManager(cfg, fyneApp, audio.NewPlayer(logger), logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
		// the loop stopped for a reason other than the window closing
		if !a.WindowClosed() {
			fyne.Do(fyneApp.Quit)
		}
	}()

	a.Window().ShowAndRun()

	a.Shutdown()
	if err := <-done; err != nil {
		logger.Error("loop stopped with units still running", zap.Error(err))
	}
}
