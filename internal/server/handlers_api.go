package server

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/realshaunoneill/servicetracker/internal/domain"
	apperrors "github.com/realshaunoneill/servicetracker/internal/errors"
)

type createApplicationRequest struct {
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	RequireToken bool   `json:"requireToken"`
	Token        string `json:"token"`
	Timeout      int    `json:"timeout"`
}

type recordSessionRequest struct {
	Name        string `json:"name"`
	SessionID   string `json:"sessionID"`
	SessionText string `json:"sessionText"`
	SessionURL  string `json:"sessionURL"`
	Token       string `json:"token"`
}

func (s *Server) handleGetApplications(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.QueryParam("name")

	if name == "" {
		services, err := s.catalog.ListServices(ctx)
		if err != nil {
			return apperrors.InternalError("failed to list services", err)
		}
		if err := c.JSON(200, services); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}

	svc, err := s.catalog.GetService(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrServiceNotFound) {
			return apperrors.ValidationError("no service with that name exists").WithField("name", name)
		}
		return apperrors.InternalError("failed to fetch service", err).WithField("name", name)
	}

	if err := c.JSON(200, []*domain.Service{svc}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateApplication(c echo.Context) error {
	var req createApplicationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	svc, err := s.catalog.CreateService(c.Request().Context(), domain.CreateServiceRequest{
		Name:         req.Name,
		Picture:      req.Picture,
		RequireToken: req.RequireToken,
		Token:        req.Token,
		TimeoutDays:  req.Timeout,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return apperrors.ValidationError(err.Error())
		case errors.Is(err, domain.ErrServiceExists):
			return apperrors.ConflictError("a service with that name already exists").WithField("name", req.Name)
		default:
			return apperrors.InternalError("failed to create service", err).WithField("name", req.Name)
		}
	}

	if err := c.JSON(200, svc); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetSessions(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return apperrors.ValidationError("you must specify a service name to search for")
	}

	sessions, err := s.catalog.ListSessions(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrServiceNotFound) {
			return apperrors.ValidationError("no service with that name exists").WithField("name", name)
		}
		return apperrors.InternalError("failed to fetch sessions", err).WithField("name", name)
	}

	if err := c.JSON(200, sessions); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleRecordSession(c echo.Context) error {
	var req recordSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Name == "" {
		return apperrors.ValidationError("name is required")
	}
	if req.SessionID == "" {
		return apperrors.ValidationError("sessionID is required")
	}

	result, err := s.recorder.RecordSession(c.Request().Context(), domain.RecordSessionRequest{
		ServiceName: req.Name,
		DataID:      req.SessionID,
		Text:        req.SessionText,
		URL:         req.SessionURL,
		Token:       req.Token,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return apperrors.ValidationError(err.Error())
		case errors.Is(err, domain.ErrServiceNotFound):
			return apperrors.ValidationError("no service with that name exists").WithField("name", req.Name)
		case errors.Is(err, domain.ErrNotPermitted):
			return apperrors.ForbiddenError("you don't have permission to record a session for this service").WithField("name", req.Name)
		case errors.Is(err, domain.ErrTooSoon):
			return apperrors.TooManyRequestsError("session was updated too recently for this service's timeout").
				WithField("name", req.Name).
				WithField("sessionID", req.SessionID)
		default:
			return apperrors.InternalError("failed to record session", err).WithField("name", req.Name)
		}
	}

	if err := c.JSON(200, result); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
