package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realshaunoneill/servicetracker/internal/domain"
)

// --- handleRecordSession tests ---

func postSession(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	_ = callHandler(srv.handleRecordSession, c)
	return rec
}

func TestHandleRecordSession_Created(t *testing.T) {
	var got domain.RecordSessionRequest
	recorder := &mockRecorder{
		recordSessionFn: func(_ context.Context, req domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
			got = req
			return &domain.ReconciliationResult{
				Outcome: domain.OutcomeCreated,
				Session: &domain.Session{ID: uuid.New(), DataID: req.DataID},
			}, nil
		},
	}
	srv := newTestServer(t, &mockCatalog{}, recorder, &mockAccounts{}, &mockGate{})

	rec := postSession(t, srv, `{"name":"svc1","sessionID":"dev-A","sessionText":"hello","sessionURL":"https://example.com","token":"T1"}`)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "svc1", got.ServiceName)
	assert.Equal(t, "dev-A", got.DataID)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "https://example.com", got.URL)
	assert.Equal(t, "T1", got.Token)

	var result domain.ReconciliationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.OutcomeCreated, result.Outcome)
}

func TestHandleRecordSession_MissingFields(t *testing.T) {
	srv := newTestServer(t, &mockCatalog{}, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	rec := postSession(t, srv, `{"sessionID":"dev-A"}`)
	assert.Equal(t, 400, rec.Code)

	rec = postSession(t, srv, `{"name":"svc1"}`)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleRecordSession_UnknownService(t *testing.T) {
	recorder := &mockRecorder{
		recordSessionFn: func(context.Context, domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
			return nil, domain.ErrServiceNotFound
		},
	}
	srv := newTestServer(t, &mockCatalog{}, recorder, &mockAccounts{}, &mockGate{})

	rec := postSession(t, srv, `{"name":"ghost","sessionID":"dev-A"}`)
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "no service with that name exists")
}

func TestHandleRecordSession_TokenRejected(t *testing.T) {
	recorder := &mockRecorder{
		recordSessionFn: func(context.Context, domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
			return nil, domain.ErrNotPermitted
		},
	}
	srv := newTestServer(t, &mockCatalog{}, recorder, &mockAccounts{}, &mockGate{})

	rec := postSession(t, srv, `{"name":"svc1","sessionID":"dev-A","token":"wrong"}`)
	assert.Equal(t, 403, rec.Code)
}

func TestHandleRecordSession_Cooldown(t *testing.T) {
	recorder := &mockRecorder{
		recordSessionFn: func(context.Context, domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
			return nil, domain.ErrTooSoon
		},
	}
	srv := newTestServer(t, &mockCatalog{}, recorder, &mockAccounts{}, &mockGate{})

	rec := postSession(t, srv, `{"name":"svc1","sessionID":"dev-A"}`)
	assert.Equal(t, 429, rec.Code)
}

func TestHandleRecordSession_StorageError(t *testing.T) {
	recorder := &mockRecorder{
		recordSessionFn: func(context.Context, domain.RecordSessionRequest) (*domain.ReconciliationResult, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	srv := newTestServer(t, &mockCatalog{}, recorder, &mockAccounts{}, &mockGate{})

	rec := postSession(t, srv, `{"name":"svc1","sessionID":"dev-A"}`)
	assert.Equal(t, 500, rec.Code)
	// The storage failure itself stays out of the response body.
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

// --- handleGetApplications tests ---

func TestHandleGetApplications_List(t *testing.T) {
	catalog := &mockCatalog{
		listServicesFn: func(context.Context) ([]*domain.Service, error) {
			return []*domain.Service{testService("svc1"), testService("svc2")}, nil
		},
	}
	srv := newTestServer(t, catalog, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	req := httptest.NewRequest(http.MethodGet, "/api/applications", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleGetApplications(c))
	assert.Equal(t, 200, rec.Code)

	var services []*domain.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	assert.Len(t, services, 2)
}

func TestHandleGetApplications_ByName(t *testing.T) {
	catalog := &mockCatalog{
		getServiceFn: func(_ context.Context, name string) (*domain.Service, error) {
			if name == "svc1" {
				return testService("svc1"), nil
			}
			return nil, domain.ErrServiceNotFound
		},
	}
	srv := newTestServer(t, catalog, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	req := httptest.NewRequest(http.MethodGet, "/api/applications?name=svc1", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleGetApplications(c))
	assert.Equal(t, 200, rec.Code)

	// Always an array, even for a single match.
	var services []*domain.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	require.Len(t, services, 1)
	assert.Equal(t, "svc1", services[0].Name)
}

func TestHandleGetApplications_UnknownName(t *testing.T) {
	srv := newTestServer(t, &mockCatalog{}, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	req := httptest.NewRequest(http.MethodGet, "/api/applications?name=ghost", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	_ = callHandler(srv.handleGetApplications, c)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleGetApplications_TokenNotSerialized(t *testing.T) {
	svc := testService("svc1")
	svc.RequireToken = true
	svc.AppToken = "super-secret"
	catalog := &mockCatalog{
		listServicesFn: func(context.Context) ([]*domain.Service, error) {
			return []*domain.Service{svc}, nil
		},
	}
	srv := newTestServer(t, catalog, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	req := httptest.NewRequest(http.MethodGet, "/api/applications", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleGetApplications(c))
	assert.NotContains(t, rec.Body.String(), "super-secret")
}

// --- handleCreateApplication tests ---

func TestHandleCreateApplication_Success(t *testing.T) {
	var got domain.CreateServiceRequest
	catalog := &mockCatalog{
		createServiceFn: func(_ context.Context, req domain.CreateServiceRequest) (*domain.Service, error) {
			got = req
			return testService(req.Name), nil
		},
	}
	srv := newTestServer(t, catalog, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	body := `{"name":"svc1","picture":"https://example.com/icon.png","requireToken":true,"token":"T1","timeout":7}`
	req := httptest.NewRequest(http.MethodPost, "/api/applications", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleCreateApplication(c))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "svc1", got.Name)
	assert.True(t, got.RequireToken)
	assert.Equal(t, "T1", got.Token)
	assert.Equal(t, 7, got.TimeoutDays)
}

func TestHandleCreateApplication_Validation(t *testing.T) {
	catalog := &mockCatalog{
		createServiceFn: func(context.Context, domain.CreateServiceRequest) (*domain.Service, error) {
			return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
		},
	}
	srv := newTestServer(t, catalog, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	req := httptest.NewRequest(http.MethodPost, "/api/applications", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	_ = callHandler(srv.handleCreateApplication, c)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleCreateApplication_Duplicate(t *testing.T) {
	catalog := &mockCatalog{
		createServiceFn: func(context.Context, domain.CreateServiceRequest) (*domain.Service, error) {
			return nil, domain.ErrServiceExists
		},
	}
	srv := newTestServer(t, catalog, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	req := httptest.NewRequest(http.MethodPost, "/api/applications", strings.NewReader(`{"name":"svc1","picture":"p"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	_ = callHandler(srv.handleCreateApplication, c)
	assert.Equal(t, 409, rec.Code)
}

// --- handleGetSessions tests ---

func TestHandleGetSessions_RequiresName(t *testing.T) {
	srv := newTestServer(t, &mockCatalog{}, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	_ = callHandler(srv.handleGetSessions, c)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleGetSessions_Success(t *testing.T) {
	catalog := &mockCatalog{
		listSessionsFn: func(_ context.Context, name string) ([]domain.Session, error) {
			assert.Equal(t, "svc1", name)
			return []domain.Session{{ID: uuid.New(), DataID: "dev-A"}}, nil
		},
	}
	srv := newTestServer(t, catalog, &mockRecorder{}, &mockAccounts{}, &mockGate{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?name=svc1", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleGetSessions(c))
	assert.Equal(t, 200, rec.Code)

	var sessions []domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "dev-A", sessions[0].DataID)
}
