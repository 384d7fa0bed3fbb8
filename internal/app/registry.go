package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/realshaunoneill/servicetracker/internal/domain"
	"github.com/realshaunoneill/servicetracker/internal/metrics"
)

// Registry owns the catalog of known services. Reads go straight to the
// repository: admin queries want fresh data, and the session list changes
// with every accepted report.
type Registry struct {
	services domain.ServiceRepository
	clock    clockwork.Clock
}

func NewRegistry(services domain.ServiceRepository, clock clockwork.Clock) *Registry {
	return &Registry{services: services, clock: clock}
}

// CreateService validates and persists a new service with an empty session
// list. Duplicate names surface as domain.ErrServiceExists.
func (r *Registry) CreateService(ctx context.Context, req domain.CreateServiceRequest) (*domain.Service, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if req.Picture == "" {
		return nil, fmt.Errorf("%w: picture is required", domain.ErrInvalidInput)
	}
	if req.TimeoutDays < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative", domain.ErrInvalidInput)
	}
	if req.RequireToken && req.Token == "" {
		return nil, fmt.Errorf("%w: token is required when requireToken is set", domain.ErrInvalidInput)
	}

	svc := &domain.Service{
		ID:                 uuid.New(),
		Name:               req.Name,
		Picture:            req.Picture,
		RequireToken:       req.RequireToken,
		SessionTimeoutDays: req.TimeoutDays,
		CreatedAt:          r.clock.Now().UTC(),
		Sessions:           []domain.Session{},
	}
	if req.RequireToken {
		svc.AppToken = req.Token
	}

	if err := r.services.Create(ctx, svc); err != nil {
		return nil, err
	}

	metrics.ServicesCreatedTotal.Inc()
	return svc, nil
}

// GetService returns one service with its sessions attached.
func (r *Registry) GetService(ctx context.Context, name string) (*domain.Service, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	svc, err := r.services.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	sessions, err := r.services.ListSessions(ctx, svc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	svc.Sessions = sessions
	return svc, nil
}

// ListServices returns every service in creation order, sessions included.
func (r *Registry) ListServices(ctx context.Context) ([]*domain.Service, error) {
	return r.services.List(ctx)
}

// ListSessions returns the named service's sessions in insertion order.
func (r *Registry) ListSessions(ctx context.Context, name string) ([]domain.Session, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	svc, err := r.services.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.services.ListSessions(ctx, svc.ID)
}
