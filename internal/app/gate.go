package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/realshaunoneill/servicetracker/internal/domain"
)

// Gate authorizes administrative operations. Two independent paths are
// accepted: an interactive principal flagged as administrator, or a
// presented (username, apiKey) pair resolving to an admin account whose
// stored key matches. A denial reports the caller's authentication status
// but never whether the attempted username exists.
type Gate struct {
	accounts domain.AccountRepository
}

func NewGate(accounts domain.AccountRepository) *Gate {
	return &Gate{accounts: accounts}
}

func (g *Gate) Authorize(ctx context.Context, principal *domain.Account, username, apiKey string) domain.Decision {
	if principal != nil && principal.IsAdmin {
		return domain.Decision{Allowed: true, Authenticated: true}
	}

	if username != "" && apiKey != "" {
		account, err := g.accounts.GetByUsername(ctx, username)
		switch {
		case err == nil:
			match := subtle.ConstantTimeCompare([]byte(account.APIKey), []byte(apiKey)) == 1
			if match && account.IsAdmin {
				return domain.Decision{Allowed: true, Authenticated: true}
			}
		case errors.Is(err, domain.ErrAccountNotFound):
			// Same denial as a key mismatch.
		default:
			slog.Error("Account lookup failed during authorization", "error", err)
		}
	}

	return domain.Decision{Allowed: false, Authenticated: principal != nil}
}
