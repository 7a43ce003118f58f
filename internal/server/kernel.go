package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/questdeck/questdeck/internal/registry"
	"github.com/questdeck/questdeck/internal/websocket"
)

// Bootstrap runs the module lifecycle: every module registers its services
// first, then each one boots with the full registry available. The bus
// infrastructure (websocket bridge, outbound fan-out) starts before any
// module so subscriptions made during Boot see a live bus.
func (s *Server) Bootstrap(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	registry.Set(s.registry, registry.PublisherKey, s.deps.Publisher)
	registry.Set(s.registry, registry.SubscriberKey, s.deps.Subscriber)

	go s.deps.Bridge.Run(ctx)
	if err := websocket.AttachOutbound(ctx, s.deps.Subscriber, s.deps.Bridge); err != nil {
		return fmt.Errorf("attaching websocket outbound routing: %w", err)
	}

	for _, m := range s.modules {
		if err := m.Register(s.registry); err != nil {
			return fmt.Errorf("registering module %s: %w", m.Name(), err)
		}
		slog.Info("module registered", "module", m.Name())
	}

	s.registerRoutes()

	for _, m := range s.modules {
		group := s.E.Group("/api/" + m.Name())
		if err := m.Boot(ctx, group, s.registry); err != nil {
			return fmt.Errorf("booting module %s: %w", m.Name(), err)
		}
		slog.Info("module booted", "module", m.Name())
	}

	return nil
}
