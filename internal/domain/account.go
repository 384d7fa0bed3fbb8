package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account is a dashboard user. APIKey is the credential accepted by the
// admin gate as an alternative to an interactive session.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	APIKey       string    `json:"apiKey"`
	CreatedAt    time.Time `json:"createdAt"`
}

type AccountRepository interface {
	// Create persists a new account. Returns ErrAccountExists if the
	// username is already taken.
	Create(ctx context.Context, account *Account) error
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// AccountService handles registration and login for the dashboard.
type AccountService interface {
	Register(ctx context.Context, username, password string) (*Account, error)
	Authenticate(ctx context.Context, username, password string) (*Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
}

// Decision is the outcome of an admin authorization check. Authenticated
// reports whether the caller presented any valid identity at all; it is
// returned on Deny for diagnostics and must never reveal whether an
// attempted username exists.
type Decision struct {
	Allowed       bool
	Authenticated bool
}

// AccessGate authorizes administrative operations: service creation and
// bulk service/session queries. It is independent of a service's own
// RequireToken check, which guards session submission per service.
type AccessGate interface {
	Authorize(ctx context.Context, principal *Account, username, apiKey string) Decision
}
