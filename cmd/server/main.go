// Command server runs the snippet shelf HTTP API.
//
// Configuration comes from the TOML file named by SHELF_CONFIG (default
// shelf.toml, optional) with environment overrides on top; see
// internal/config.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/snippet-shelf/internal/config"
	"github.com/sakif/snippet-shelf/internal/server"
)

func main() {
	path := os.Getenv("SHELF_CONFIG")
	if path == "" {
		path = "shelf.toml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", path), slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
