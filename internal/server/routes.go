package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Session intake is public; the per-service token check happens inside
	// the reconciler.
	s.echo.POST("/api/sessions", s.handleRecordSession)

	if s.catalog == nil {
		// Degraded mode: nothing below has storage to work against.
		return
	}

	// Admin API (interactive admin session or username+apiKey credential)
	s.echo.GET("/api/applications", s.handleGetApplications, s.requireAdmin)
	s.echo.POST("/api/applications", s.handleCreateApplication, s.requireAdmin)
	s.echo.GET("/api/sessions", s.handleGetSessions, s.requireAdmin)

	if !s.config.DashboardEnabled {
		return
	}

	// Root - redirect to dashboard
	s.echo.GET("/", func(c echo.Context) error {
		return c.Redirect(302, "/dashboard")
	})

	// Auth routes
	s.echo.GET("/auth/login", s.handleLoginPage)
	s.echo.POST("/auth/login", s.handleLogin)
	s.echo.POST("/auth/register", s.handleRegister)
	s.echo.POST("/auth/logout", s.handleLogout, s.requireAuth)
	s.echo.GET("/auth/info", s.handleAccountInfo, s.requireAuth)

	// Dashboard (authenticated)
	s.echo.GET("/dashboard", s.handleDashboard, s.requireAuth)
}
