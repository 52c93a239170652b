package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrSessionNotFound indicates that session was not found
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionAlreadyExists indicates a session id collision
	ErrSessionAlreadyExists = errors.New("session already exists")

	// ErrSessionRevoked indicates that the session was already revoked
	// (superseded by another rotation or logged out) when rotation was attempted
	ErrSessionRevoked = errors.New("session already revoked")
)
