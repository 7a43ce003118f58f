// Package app assembles the process-wide services and the module list the
// server kernel boots. It is the only place that decides between backends
// (in-memory vs SurrealDB storage, builtin vs scripted rules).
package app

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/surrealdb/surrealdb.go"

	"github.com/questdeck/questdeck/internal/config"
	"github.com/questdeck/questdeck/internal/database"
	"github.com/questdeck/questdeck/internal/encounter"
	"github.com/questdeck/questdeck/internal/gamesystem"
	"github.com/questdeck/questdeck/internal/pubsub"
	"github.com/questdeck/questdeck/internal/script"
	"github.com/questdeck/questdeck/internal/websocket"
)

// Dependencies holds the core services shared by the application's modules.
type Dependencies struct {
	Cfg        config.Provider
	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber
	Store      encounter.Store
	Systems    *gamesystem.Registry
	Bridge     *websocket.Bridge

	// DB is nil when running on the in-memory store.
	DB *surrealdb.DB
	// ScriptLoader is nil when no script directory is configured.
	ScriptLoader *script.Loader

	cleanups []func()
}

// New wires the dependency graph from configuration.
func New(ctx context.Context, cfg config.Provider) (*Dependencies, error) {
	deps := &Dependencies{Cfg: cfg}

	if err := websocket.RegisterTopics(); err != nil {
		return nil, err
	}

	tracer, traceCleanup, err := pubsub.SetupOTel(ctx, pubsub.TracingConfig{
		Enabled:     cfg.GetTracingEnabled(),
		ServiceName: "questdeck",
		ZipkinURL:   cfg.GetZipkinURL(),
	})
	if err != nil {
		return nil, err
	}
	deps.cleanups = append(deps.cleanups, traceCleanup)

	bus := pubsub.NewTracedWatermillBridge(tracer)
	deps.Publisher = bus
	deps.Subscriber = bus
	deps.cleanups = append(deps.cleanups, func() { _ = bus.Close() })

	if cfg.GetDBURL() != "" {
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		deps.DB = db
		deps.Store = encounter.NewSurrealStore(db)
	} else {
		slog.Info("no database configured, using in-memory encounter store")
		deps.Store = encounter.NewMemoryStore()
	}

	deps.Systems = gamesystem.NewRegistry()
	deps.Systems.MustRegister(gamesystem.NewSRD5())
	if err := deps.loadScriptedSystem(ctx, cfg); err != nil {
		deps.Close(ctx)
		return nil, err
	}

	deps.Bridge = websocket.NewBridge(deps.Publisher)
	return deps, nil
}

// loadScriptedSystem registers a script-backed rules system when the script
// directory holds a manifest. A missing or empty directory is not an error;
// a broken manifest is.
func (d *Dependencies) loadScriptedSystem(ctx context.Context, cfg config.Provider) error {
	dir := cfg.GetScriptDir()
	if dir == "" {
		return nil
	}

	loader := script.NewLoader(afero.NewOsFs(), dir, slog.Default())
	if err := loader.Load(); err != nil {
		slog.Info("script directory not available, scripted system disabled",
			"dir", dir, "error", err)
		return nil
	}
	if _, ok := loader.Get("system"); !ok {
		return nil
	}

	engine := script.NewEngine(script.DefaultLimits(), slog.Default())
	sys, err := gamesystem.NewScriptedSystem("scripted", engine, loader, slog.Default())
	if err != nil {
		return err
	}
	d.Systems.MustRegister(sys)
	d.ScriptLoader = loader

	if err := loader.Watch(ctx); err != nil {
		slog.Warn("script hot reload unavailable", "dir", dir, "error", err)
	}
	return nil
}

// Close releases everything New acquired, in reverse order.
func (d *Dependencies) Close(ctx context.Context) {
	if d.DB != nil {
		_ = d.DB.Close(ctx)
	}
	for i := len(d.cleanups) - 1; i >= 0; i-- {
		d.cleanups[i]()
	}
}
