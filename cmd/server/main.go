package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/questdeck/questdeck/internal/app"
	"github.com/questdeck/questdeck/internal/config"
	"github.com/questdeck/questdeck/internal/logging"
	"github.com/questdeck/questdeck/internal/server"
)

func main() {
	logging.New()
	cfg := config.New()

	ctx := context.Background()
	deps, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("dependency setup failed", "error", err)
		os.Exit(1)
	}

	srv := server.New(cfg, deps, app.NewModules(deps))
	if err := srv.Bootstrap(ctx); err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	srv.Start()
}
