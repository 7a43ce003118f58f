package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// registerRoutes mounts the framework-level endpoints. Module routes are
// mounted by the kernel under each module's /api group.
func (s *Server) registerRoutes() {
	s.E.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
