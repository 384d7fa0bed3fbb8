package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service is a registered application whose check-ins are tracked.
// Name and RequireToken are immutable once created; there is no rename or
// toggle operation anywhere in the system.
type Service struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Picture            string    `json:"picture"`
	RequireToken       bool      `json:"requireToken"`
	AppToken           string    `json:"-"`
	SessionTimeoutDays int       `json:"sessionTimeoutDays"`
	CreatedAt          time.Time `json:"createdAt"`
	// Sessions is populated only by list/detail queries, in insertion order.
	// Metadata-only lookups leave it nil.
	Sessions []Session `json:"sessions,omitempty"`
}

// Session is one tracked check-in stream within a service. DataID is the
// caller-supplied natural key; it is unique only within a service, and even
// there duplicates are tolerated (the first row in insertion order wins).
type Session struct {
	ID               uuid.UUID     `json:"id"`
	DataID           string        `json:"dataID"`
	DataURL          string        `json:"dataURL,omitempty"`
	Token            string        `json:"-"`
	SameSessionCount int           `json:"sameSessionCount"`
	Texts            []SessionText `json:"dataTexts"`
	CreatedAt        time.Time     `json:"createdAt"`
	LastUpdatedAt    time.Time     `json:"lastUpdatedAt"`
}

// SessionText is one appended check-in entry. The creating report appends
// entry zero; every accepted merge appends one more.
type SessionText struct {
	SessionCount int    `json:"sessionCount"`
	Text         string `json:"text,omitempty"`
}

// ServiceRepository is the persistence contract for services and their
// session collections.
type ServiceRepository interface {
	// Create persists a new service with an empty session list.
	// Returns ErrServiceExists if the name is already taken.
	Create(ctx context.Context, svc *Service) error

	// GetByName returns service metadata only (Sessions nil).
	// Returns ErrServiceNotFound if no such service exists.
	GetByName(ctx context.Context, name string) (*Service, error)

	// List returns every service in creation order, sessions included.
	List(ctx context.Context) ([]*Service, error)

	// ListSessions returns a service's sessions in insertion order.
	ListSessions(ctx context.Context, serviceID uuid.UUID) ([]Session, error)

	// FirstSessionByDataID returns the first session (by insertion order)
	// with the given dataID, or ErrSessionNotFound. Later duplicates are
	// never returned.
	FirstSessionByDataID(ctx context.Context, serviceID uuid.UUID, dataID string) (*Session, error)

	// InsertSession appends a new session to a service's collection.
	InsertSession(ctx context.Context, serviceID uuid.UUID, session *Session) error

	// MergeSession atomically increments a session's counter and appends a
	// text entry, but only if the stored counter still equals expectedCount.
	// Returns false (and no error) when a concurrent writer got there first.
	MergeSession(ctx context.Context, sessionID uuid.UUID, expectedCount int, now time.Time, text string) (bool, error)
}

// ServiceFinder resolves service metadata by name (Sessions nil).
// Implemented by the repository and by the Redis read-through cache.
type ServiceFinder interface {
	GetByName(ctx context.Context, name string) (*Service, error)
}

// CreateServiceRequest bundles the parameters for registering a service.
type CreateServiceRequest struct {
	Name         string
	Picture      string
	RequireToken bool
	Token        string
	TimeoutDays  int
}

// RecordSessionRequest bundles one inbound check-in report.
type RecordSessionRequest struct {
	ServiceName string
	DataID      string
	Text        string
	URL         string
	Token       string
}

// ServiceCatalog exposes the service registry to the transport layer.
type ServiceCatalog interface {
	CreateService(ctx context.Context, req CreateServiceRequest) (*Service, error)
	GetService(ctx context.Context, name string) (*Service, error)
	ListServices(ctx context.Context) ([]*Service, error)
	ListSessions(ctx context.Context, name string) ([]Session, error)
}

// SessionRecorder exposes the reconciliation engine to the transport layer.
type SessionRecorder interface {
	RecordSession(ctx context.Context, req RecordSessionRequest) (*ReconciliationResult, error)
}
