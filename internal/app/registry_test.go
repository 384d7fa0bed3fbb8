package app

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realshaunoneill/servicetracker/internal/domain"
)

func validCreateRequest() domain.CreateServiceRequest {
	return domain.CreateServiceRequest{
		Name:        "svc1",
		Picture:     "https://example.com/icon.png",
		TimeoutDays: 0,
	}
}

func TestCreateService_Valid(t *testing.T) {
	repo := newFakeServiceRepo()
	registry := NewRegistry(repo, clockwork.NewFakeClock())

	svc, err := registry.CreateService(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "svc1", svc.Name)
	assert.False(t, svc.RequireToken)
	assert.Empty(t, svc.AppToken)
	assert.Empty(t, svc.Sessions)
	assert.NotZero(t, svc.ID)
}

func TestCreateService_TokenStoredOnlyWhenRequired(t *testing.T) {
	repo := newFakeServiceRepo()
	registry := NewRegistry(repo, clockwork.NewFakeClock())

	// A token supplied without requireToken is discarded.
	req := validCreateRequest()
	req.Token = "ignored"
	svc, err := registry.CreateService(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, svc.AppToken)

	req = validCreateRequest()
	req.Name = "svc2"
	req.RequireToken = true
	req.Token = "T1"
	svc, err = registry.CreateService(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "T1", svc.AppToken)
}

func TestCreateService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CreateServiceRequest)
	}{
		{"missing name", func(r *domain.CreateServiceRequest) { r.Name = "" }},
		{"missing picture", func(r *domain.CreateServiceRequest) { r.Picture = "" }},
		{"negative timeout", func(r *domain.CreateServiceRequest) { r.TimeoutDays = -1 }},
		{"require token without token", func(r *domain.CreateServiceRequest) { r.RequireToken = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeServiceRepo()
			registry := NewRegistry(repo, clockwork.NewFakeClock())
			req := validCreateRequest()
			tt.mutate(&req)

			_, err := registry.CreateService(context.Background(), req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestCreateService_DuplicateName(t *testing.T) {
	repo := newFakeServiceRepo()
	registry := NewRegistry(repo, clockwork.NewFakeClock())
	ctx := context.Background()

	_, err := registry.CreateService(ctx, validCreateRequest())
	require.NoError(t, err)

	_, err = registry.CreateService(ctx, validCreateRequest())
	assert.ErrorIs(t, err, domain.ErrServiceExists)

	// Still exactly one record.
	services, err := registry.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, services, 1)
}

func TestGetService_AttachesSessions(t *testing.T) {
	repo := newFakeServiceRepo()
	registry := NewRegistry(repo, clockwork.NewFakeClock())
	reconciler := NewReconciler(repo, repo, clockwork.NewFakeClock(), false)
	ctx := context.Background()

	_, err := registry.CreateService(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = reconciler.RecordSession(ctx, record("svc1", "dev-A", "hello"))
	require.NoError(t, err)

	svc, err := registry.GetService(ctx, "svc1")
	require.NoError(t, err)
	require.Len(t, svc.Sessions, 1)
	assert.Equal(t, "dev-A", svc.Sessions[0].DataID)
}

func TestGetService_NotFound(t *testing.T) {
	repo := newFakeServiceRepo()
	registry := NewRegistry(repo, clockwork.NewFakeClock())

	_, err := registry.GetService(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)

	_, err = registry.GetService(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListSessions_ByServiceName(t *testing.T) {
	repo := newFakeServiceRepo()
	registry := NewRegistry(repo, clockwork.NewFakeClock())
	reconciler := NewReconciler(repo, repo, clockwork.NewFakeClock(), false)
	ctx := context.Background()

	_, err := registry.CreateService(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = reconciler.RecordSession(ctx, record("svc1", "dev-A", "a"))
	require.NoError(t, err)
	_, err = reconciler.RecordSession(ctx, record("svc1", "dev-B", "b"))
	require.NoError(t, err)

	sessions, err := registry.ListSessions(ctx, "svc1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	_, err = registry.ListSessions(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)
}
