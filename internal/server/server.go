// Package server owns the HTTP process: the echo instance, the module
// kernel that registers and boots application modules, and graceful
// shutdown of everything the process started.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/questdeck/questdeck/internal/app"
	"github.com/questdeck/questdeck/internal/config"
	"github.com/questdeck/questdeck/internal/middleware"
	"github.com/questdeck/questdeck/internal/module"
	"github.com/questdeck/questdeck/internal/registry"
)

const sessionCookieMaxAge = 86400 * 30

// Server holds the HTTP server and the booted module set.
type Server struct {
	E *echo.Echo

	cfg      config.Provider
	deps     *app.Dependencies
	modules  []module.Module
	registry *registry.Registry

	cancel context.CancelFunc
}

// New assembles the server around prebuilt dependencies and modules.
func New(cfg config.Provider, deps *app.Dependencies, modules []module.Module) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())

	store := sessions.NewCookieStore([]byte(cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))
	e.Use(middleware.Identity())

	return &Server{
		E:        e,
		cfg:      cfg,
		deps:     deps,
		modules:  modules,
		registry: registry.New(cfg),
	}
}

// Registry exposes the service locator, useful for tests.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}
