package server

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
)

// Start serves HTTP on the configured address, blocks until an interrupt
// or terminate signal, then shuts everything down.
func (s *Server) Start() {
	go func() {
		if err := s.E.Start(s.cfg.GetAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown()
	s.Shutdown()
}
