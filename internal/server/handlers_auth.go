package server

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/realshaunoneill/servicetracker/internal/domain"
	apperrors "github.com/realshaunoneill/servicetracker/internal/errors"
)

// requireAuth loads the interactive account from the cookie session, or
// redirects to the login page.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		account := s.sessionAccount(c)
		if account == nil {
			return c.Redirect(302, "/auth/login")
		}
		c.Set("account", account)
		c.Set("accountID", account.ID.String())
		return next(c)
	}
}

// requireAdmin gates the admin API: an interactive admin session or a
// presented username+apiKey credential. Credentials are read from the
// X-Api-Username/X-Api-Key headers, with query parameters as a fallback.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal := s.sessionAccount(c)

		username := c.Request().Header.Get("X-Api-Username")
		apiKey := c.Request().Header.Get("X-Api-Key")
		if username == "" && apiKey == "" {
			username = c.QueryParam("username")
			apiKey = c.QueryParam("apiKey")
		}

		decision := s.gate.Authorize(c.Request().Context(), principal, username, apiKey)
		if !decision.Allowed {
			return apperrors.ForbiddenError("administrator access required").
				WithField("authenticated", decision.Authenticated)
		}

		if principal != nil {
			c.Set("account", principal)
			c.Set("accountID", principal.ID.String())
		}
		return next(c)
	}
}

// sessionAccount resolves the cookie session to an account, or nil.
func (s *Server) sessionAccount(c echo.Context) *domain.Account {
	if s.sessionStore == nil || s.accounts == nil {
		return nil
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return nil
	}
	idStr, ok := session.Values[sessionKeyAccountID].(string)
	if !ok {
		return nil
	}
	accountID, err := uuid.Parse(idStr)
	if err != nil {
		return nil
	}

	account, err := s.accounts.GetAccount(c.Request().Context(), accountID)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			slog.Error("Failed to load session account", "error", err)
		}
		return nil
	}
	return account
}

func (s *Server) handleLoginPage(c echo.Context) error {
	if s.sessionAccount(c) != nil {
		return c.Redirect(302, "/dashboard")
	}
	return renderTemplate(c, s.loginTemplate, map[string]any{
		"RegistrationEnabled": s.config.RegistrationEnabled,
	})
}

func (s *Server) handleLogin(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	account, err := s.accounts.Authenticate(c.Request().Context(), username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return renderTemplate(c, s.loginTemplate, map[string]any{
				"Error":               "Invalid username or password",
				"RegistrationEnabled": s.config.RegistrationEnabled,
			})
		}
		return apperrors.InternalError("failed to authenticate", err)
	}

	if err := s.saveAccountSession(c, account); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}
	return c.Redirect(302, "/dashboard")
}

func (s *Server) handleRegister(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	account, err := s.accounts.Register(c.Request().Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRegistrationDisabled):
			return apperrors.ForbiddenError("registration is disabled at this time")
		case errors.Is(err, domain.ErrInvalidInput):
			return apperrors.ValidationError(err.Error())
		case errors.Is(err, domain.ErrAccountExists):
			return apperrors.ConflictError("username already exists").WithField("username", username)
		default:
			return apperrors.InternalError("unable to register user", err)
		}
	}

	if err := s.saveAccountSession(c, account); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	if err := c.JSON(200, map[string]string{"status": "ok", "apiKey": account.APIKey}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Warn("Failed to get session during logout", "error", err)
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			slog.Error("Failed to create new session during logout", "error", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to clear session", err)
	}
	return c.Redirect(302, "/auth/login")
}

func (s *Server) handleAccountInfo(c echo.Context) error {
	account, ok := c.Get("account").(*domain.Account)
	if !ok {
		return apperrors.InternalError("invalid account in context", nil)
	}
	if err := c.JSON(200, account); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) saveAccountSession(c echo.Context, account *domain.Account) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Warn("Failed to get session, creating fresh", "error", err)
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			return err
		}
	}
	session.Values[sessionKeyAccountID] = account.ID.String()
	return session.Save(c.Request(), c.Response().Writer)
}
