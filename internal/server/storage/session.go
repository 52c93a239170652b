package storage

import (
	"context"
	"time"

	"github.com/iudanet/taskauth/internal/models"
)

// SessionStorage defines interface for refresh session persistence.
// Sessions are looked up by id only, never by token value, and the stored
// token hash is never updated in place.
type SessionStorage interface {
	// CreateSession stores a new session
	// Returns ErrSessionAlreadyExists if a session with the same id exists
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves session by id
	// Returns ErrSessionNotFound if session doesn't exist
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// RevokeSession marks session as revoked.
	// Idempotent: revoking a revoked or unknown session is not an error.
	RevokeSession(ctx context.Context, id string) error

	// RotateSession atomically revokes oldID and stores next.
	// Returns ErrSessionRevoked (and stores nothing) if oldID was already
	// revoked, ErrSessionNotFound if oldID doesn't exist.
	RotateSession(ctx context.Context, oldID string, next *models.Session) error

	// DeleteExpiredSessions removes sessions that expired before now
	// Returns number of deleted sessions
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}
