package server

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleLiveness(c echo.Context) error {
	if err := c.JSON(200, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	// Degraded mode has no database; the process is as ready as it gets.
	if s.db != nil {
		if err := s.db.Ping(c.Request().Context()); err != nil {
			return c.JSON(503, map[string]string{"status": "unavailable", "reason": "database unreachable"})
		}
	}
	if err := c.JSON(200, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
