package domain

import "errors"

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceExists   = errors.New("service name already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("username already exists")

	// ErrNotPermitted is returned when a service requires a token and the
	// report's token is missing or does not match.
	ErrNotPermitted = errors.New("not permitted to record a session for this service")

	// ErrTooSoon is returned when a merge is rejected by the service's
	// cooldown window. It is a throttling outcome, not a system failure.
	ErrTooSoon = errors.New("session updated too recently")

	// ErrInvalidInput marks validation failures; callers wrap it with the
	// specific field message and match it with errors.Is.
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrRegistrationDisabled = errors.New("registration is disabled")
)
