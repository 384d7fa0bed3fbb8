package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/realshaunoneill/servicetracker/internal/config"
	"github.com/realshaunoneill/servicetracker/internal/domain"
	apperrors "github.com/realshaunoneill/servicetracker/internal/errors"
)

// --- Mock implementations ---

type mockCatalog struct {
	createServiceFn func(ctx context.Context, req domain.CreateServiceRequest) (*domain.Service, error)
	getServiceFn    func(ctx context.Context, name string) (*domain.Service, error)
	listServicesFn  func(ctx context.Context) ([]*domain.Service, error)
	listSessionsFn  func(ctx context.Context, serviceName string) ([]domain.Session, error)
}

func (m *mockCatalog) CreateService(ctx context.Context, req domain.CreateServiceRequest) (*domain.Service, error) {
	if m.createServiceFn != nil {
		return m.createServiceFn(ctx, req)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockCatalog) GetService(ctx context.Context, name string) (*domain.Service, error) {
	if m.getServiceFn != nil {
		return m.getServiceFn(ctx, name)
	}
	return nil, domain.ErrServiceNotFound
}

func (m *mockCatalog) ListServices(ctx context.Context) ([]*domain.Service, error) {
	if m.listServicesFn != nil {
		return m.listServicesFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalog) ListSessions(ctx context.Context, serviceName string) ([]domain.Session, error) {
	if m.listSessionsFn != nil {
		return m.listSessionsFn(ctx, serviceName)
	}
	return nil, domain.ErrServiceNotFound
}

type mockRecorder struct {
	recordSessionFn func(ctx context.Context, req domain.RecordSessionRequest) (*domain.ReconciliationResult, error)
}

func (m *mockRecorder) RecordSession(ctx context.Context, req domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
	if m.recordSessionFn != nil {
		return m.recordSessionFn(ctx, req)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockAccounts struct {
	registerFn     func(ctx context.Context, username, password string) (*domain.Account, error)
	authenticateFn func(ctx context.Context, username, password string) (*domain.Account, error)
	getAccountFn   func(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

func (m *mockAccounts) Register(ctx context.Context, username, password string) (*domain.Account, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, password)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAccounts) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, username, password)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *mockAccounts) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if m.getAccountFn != nil {
		return m.getAccountFn(ctx, id)
	}
	return nil, domain.ErrAccountNotFound
}

type mockGate struct {
	authorizeFn func(ctx context.Context, principal *domain.Account, username, apiKey string) domain.Decision
}

func (m *mockGate) Authorize(ctx context.Context, principal *domain.Account, username, apiKey string) domain.Decision {
	if m.authorizeFn != nil {
		return m.authorizeFn(ctx, principal, username, apiKey)
	}
	return domain.Decision{Allowed: false, Authenticated: principal != nil}
}

// --- Test helpers ---

func newTestServer(t *testing.T, catalog domain.ServiceCatalog, recorder domain.SessionRecorder, accounts domain.AccountService, gate domain.AccessGate) *Server {
	t.Helper()

	loginTmpl := template.Must(template.New("login.html").Parse(`Login {{.Error}}`))
	dashTmpl := template.Must(template.New("dashboard.html").Parse(`Dashboard {{.Account.Username}}`))

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	e := echo.New()
	// Install error middleware for tests to match production behavior
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo: e,
		config: &config.Config{
			DashboardEnabled:    true,
			RegistrationEnabled: true,
		},
		catalog:           catalog,
		recorder:          recorder,
		accounts:          accounts,
		gate:              gate,
		sessionStore:      store,
		loginTemplate:     loginTmpl,
		dashboardTemplate: dashTmpl,
	}

	srv.registerRoutes()

	return srv
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return apperrors.Middleware()(handler)(c)
}

func setSessionAccountID(t *testing.T, srv *Server, req *http.Request, rec *httptest.ResponseRecorder, accountID uuid.UUID) {
	t.Helper()
	session, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyAccountID] = accountID.String()
	require.NoError(t, session.Save(req, rec))
}

func testService(name string) *domain.Service {
	return &domain.Service{
		ID:                 uuid.New(),
		Name:               name,
		Picture:            "https://example.com/icon.png",
		SessionTimeoutDays: 7,
	}
}
