package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/realshaunoneill/servicetracker/internal/config"
	"github.com/realshaunoneill/servicetracker/internal/domain"
	apperrors "github.com/realshaunoneill/servicetracker/internal/errors"
)

const (
	sessionName         = "servicetracker_session"
	sessionKeyAccountID = "account_id"
	sessionMaxAgeDays   = 7
)

type Server struct {
	echo              *echo.Echo
	config            *config.Config
	catalog           domain.ServiceCatalog
	recorder          domain.SessionRecorder
	accounts          domain.AccountService
	gate              domain.AccessGate
	db                *pgxpool.Pool
	sessionStore      *sessions.CookieStore
	loginTemplate     *template.Template
	dashboardTemplate *template.Template
}

// NewServer wires the HTTP layer. In degraded mode (no database) catalog,
// accounts, gate, and db are nil and only the report intake, health, and
// metrics routes are registered.
func NewServer(cfg *config.Config, catalog domain.ServiceCatalog, recorder domain.SessionRecorder, accounts domain.AccountService, gate domain.AccessGate, db *pgxpool.Pool) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:     e,
		config:   cfg,
		catalog:  catalog,
		recorder: recorder,
		accounts: accounts,
		gate:     gate,
		db:       db,
	}

	if cfg.DashboardEnabled {
		loginTmpl, err := template.ParseFiles("web/templates/login.html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse login template: %w", err)
		}
		dashboardTmpl, err := template.ParseFiles("web/templates/dashboard.html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
		}
		srv.loginTemplate = loginTmpl
		srv.dashboardTemplate = dashboardTmpl

		sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
		sessionStore.Options = &sessions.Options{
			Path:     "/",
			MaxAge:   86400 * sessionMaxAgeDays,
			HttpOnly: true,
			Secure:   cfg.AppEnv == "production",
			SameSite: http.SameSiteLaxMode,
		}
		srv.sessionStore = sessionStore
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func renderTemplate(c echo.Context, tmpl *template.Template, data any) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return tmpl.Execute(c.Response().Writer, data)
}
