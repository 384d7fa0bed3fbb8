package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/realshaunoneill/servicetracker/internal/domain"
)

// apiKeyBytes matches the size the dashboard has always issued: 14 random
// bytes rendered as 28 hex characters.
const apiKeyBytes = 14

// Accounts handles dashboard registration and login.
type Accounts struct {
	accounts            domain.AccountRepository
	clock               clockwork.Clock
	registrationEnabled bool
}

func NewAccounts(accounts domain.AccountRepository, clock clockwork.Clock, registrationEnabled bool) *Accounts {
	return &Accounts{
		accounts:            accounts,
		clock:               clock,
		registrationEnabled: registrationEnabled,
	}
}

// Register creates a new non-admin account with a generated API key.
func (a *Accounts) Register(ctx context.Context, username, password string) (*domain.Account, error) {
	if !a.registrationEnabled {
		return nil, domain.ErrRegistrationDisabled
	}
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      false,
		APIKey:       apiKey,
		CreatedAt:    a.clock.Now().UTC(),
	}

	if err := a.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Authenticate verifies a username/password pair. Both an unknown username
// and a wrong password return domain.ErrInvalidCredentials.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	account, err := a.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return account, nil
}

// GetAccount loads an account by its internal ID.
func (a *Accounts) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return a.accounts.GetByID(ctx, id)
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
