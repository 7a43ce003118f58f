// Package game is the table coordination module: it owns the session
// actors, the action pipeline entry points and the player-facing HTTP and
// websocket surface.
package game

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/questdeck/questdeck/internal/config"
	"github.com/questdeck/questdeck/internal/encounter"
	"github.com/questdeck/questdeck/internal/gamesystem"
	"github.com/questdeck/questdeck/internal/middleware"
	"github.com/questdeck/questdeck/internal/module"
	"github.com/questdeck/questdeck/internal/modules/game/topics"
	"github.com/questdeck/questdeck/internal/pubsub"
	"github.com/questdeck/questdeck/internal/registry"
	"github.com/questdeck/questdeck/internal/session"
	"github.com/questdeck/questdeck/internal/websocket"
)

// SessionManagerKey resolves the live session manager owned by this module.
var SessionManagerKey = registry.Key[*session.Manager]("game.session.manager")

// GameModule implements the module.Module interface for table play.
type GameModule struct {
	module.BaseModule
	publisher  pubsub.Publisher
	subscriber pubsub.Subscriber
	store      encounter.Store
	systems    *gamesystem.Registry
	bridge     *websocket.Bridge
	sessions   *session.Manager
}

// Dependencies holds the services the GameModule requires to operate.
type Dependencies struct {
	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber
	Store      encounter.Store
	Systems    *gamesystem.Registry
	Bridge     *websocket.Bridge
	Config     config.Provider
}

// New creates the game module and its session manager.
func New(deps Dependencies) *GameModule {
	sessions := session.NewManager(session.ManagerConfig{
		Store:               deps.Store,
		Systems:             deps.Systems,
		Notifier:            NewNotifier(deps.Publisher),
		HeartbeatInterval:   deps.Config.GetHeartbeatInterval(),
		PingTimeout:         deps.Config.GetPingTimeout(),
		MissedPingThreshold: deps.Config.GetMissedPingThreshold(),
	})
	return &GameModule{
		publisher:  deps.Publisher,
		subscriber: deps.Subscriber,
		store:      deps.Store,
		systems:    deps.Systems,
		bridge:     deps.Bridge,
		sessions:   sessions,
	}
}

// Name returns the module name.
func (m *GameModule) Name() string {
	return "game"
}

// Register declares the module's topics and publishes its services.
func (m *GameModule) Register(reg *registry.Registry) error {
	if err := topics.RegisterTopics(); err != nil {
		return err
	}
	registry.Set(reg, SessionManagerKey, m.sessions)
	return nil
}

// Boot starts the bus consumers and mounts the HTTP surface.
func (m *GameModule) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	slog.Info("booting game module")

	sub := NewSubscriber(m.subscriber, m.sessions)
	if err := sub.Start(ctx); err != nil {
		return err
	}

	handler := NewHandler(m.store, m.sessions, m.systems, m.bridge, m.publisher)
	limited := middleware.RateLimiter()
	g.POST("/encounters", handler.CreateEncounter, limited)
	g.GET("/encounters/:id", handler.GetEncounter)
	g.POST("/sessions", handler.CreateSession, limited)
	g.GET("/sessions", handler.ListSessions)
	g.GET("/sessions/:id", handler.GetSessionStats)
	g.DELETE("/sessions/:id", handler.CloseSession)
	g.GET("/sessions/:id/ws", handler.JoinSession)

	return nil
}

// Shutdown stops every live session actor.
func (m *GameModule) Shutdown(ctx context.Context) error {
	slog.Info("shutting down game module")
	return m.sessions.Shutdown(ctx)
}
