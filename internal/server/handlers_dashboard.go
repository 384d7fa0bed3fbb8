package server

import (
	"github.com/labstack/echo/v4"

	"github.com/realshaunoneill/servicetracker/internal/domain"
	apperrors "github.com/realshaunoneill/servicetracker/internal/errors"
)

func (s *Server) handleDashboard(c echo.Context) error {
	account, ok := c.Get("account").(*domain.Account)
	if !ok {
		return apperrors.InternalError("invalid account in context", nil)
	}

	services, err := s.catalog.ListServices(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to load services", err)
	}

	return renderTemplate(c, s.dashboardTemplate, map[string]any{
		"Services": services,
		"Account":  account,
		"IsAdmin":  account.IsAdmin,
	})
}
