// Package app is the application layer: the service registry, the session
// reconciliation engine, the admin access gate, and account management.
// It orchestrates the domain repositories and owns all business rules; the
// transport layer only translates HTTP to and from these calls.
package app
