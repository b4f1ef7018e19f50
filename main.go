package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/notifyhub/notifyhub-go/cmd"
	"github.com/notifyhub/notifyhub-go/internal/conf"
	"github.com/notifyhub/notifyhub-go/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("Error loading configuration", "error", err)
	}

	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	} else {
		logging.SetLevel(parseLogLevel(settings.Log.Level))
	}

	logging.ForService("main").Debug("Configuration loaded",
		"store_backend", settings.Store.Backend,
		"hub_path", settings.Hub.Path)

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logging.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
