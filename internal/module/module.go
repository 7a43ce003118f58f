// Package module defines the lifecycle contract application features plug
// into the server kernel.
package module

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/questdeck/questdeck/internal/registry"
)

// Module is a self-contained application feature.
type Module interface {
	// Name returns a unique identifier for the module.
	Name() string

	// Register runs during startup so the module can publish its services
	// to the shared registry before any module boots.
	Register(reg *registry.Registry) error

	// Boot runs after every module has registered. Routes are mounted on
	// the module's router group and background processes start here.
	Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error

	// Shutdown runs during graceful shutdown to stop background processes.
	Shutdown(ctx context.Context) error
}

// BaseModule provides no-op lifecycle methods for embedding.
type BaseModule struct{}

func (m *BaseModule) Register(reg *registry.Registry) error { return nil }
func (m *BaseModule) Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error {
	return nil
}
func (m *BaseModule) Shutdown(ctx context.Context) error { return nil }
