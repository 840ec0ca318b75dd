package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map them to HTTP status codes; anything
// unwrapped is treated as an upstream failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	// ErrUnavailable marks a feature whose backing provider is not configured.
	ErrUnavailable = errors.New("unavailable")
)
