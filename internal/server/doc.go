// Package server is the HTTP transport layer: routing, request binding,
// admin gating, cookie sessions, and the dashboard templates. It translates
// application-layer sentinel errors into structured HTTP responses and
// issues exactly one response per request.
package server
