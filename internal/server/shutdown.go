package server

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

// waitForShutdown blocks until an interrupt or terminate signal arrives.
func waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
}

// Shutdown stops modules in reverse boot order, then the HTTP listener,
// then the shared dependencies.
func (s *Server) Shutdown() {
	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(s.modules) - 1; i >= 0; i-- {
		if err := s.modules[i].Shutdown(ctx); err != nil {
			slog.Error("module shutdown failed", "module", s.modules[i].Name(), "error", err)
		}
	}

	if s.cancel != nil {
		s.cancel()
	}

	if err := s.E.Shutdown(ctx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	s.deps.Close(ctx)
}
