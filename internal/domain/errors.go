package domain

import "errors"

var (
	// ErrNotFound indicates the resource does not exist or belongs to
	// another user (the two are deliberately indistinguishable).
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates a validation failure.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates a missing or unusable credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotConfigured indicates a feature whose external service settings
	// are absent. Non-fatal at startup, fatal at first use.
	ErrNotConfigured = errors.New("service not configured")
)
