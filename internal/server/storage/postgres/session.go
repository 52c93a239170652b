package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iudanet/taskauth/internal/models"
	"github.com/iudanet/taskauth/internal/server/storage"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CreateSession stores a new session
func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	return insertSession(ctx, s.pool, session)
}

// GetSession retrieves session by id
func (s *Storage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session

	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.Revoked,
		&session.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// RevokeSession marks session as revoked; revoking twice is a no-op
func (s *Storage) RevokeSession(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `UPDATE sessions SET revoked = TRUE WHERE id = $1 AND NOT revoked`, id); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RotateSession revokes oldID and stores next in one transaction.
// The conditional UPDATE takes the row lock; a concurrent rotation blocks
// on it and then re-evaluates "NOT revoked", matching zero rows.
func (s *Storage) RotateSession(ctx context.Context, oldID string, next *models.Session) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// после Commit возвращает ErrTxClosed, игнорируем
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `UPDATE sessions SET revoked = TRUE WHERE id = $1 AND NOT revoked`, oldID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, oldID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if !exists {
			return storage.ErrSessionNotFound
		}
		return storage.ErrSessionRevoked
	}

	if err := insertSession(ctx, tx, next); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}

	return nil
}

// DeleteExpiredSessions removes sessions that expired before now
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func insertSession(ctx context.Context, q querier, session *models.Session) error {
	_, err := q.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt.UTC(),
		session.Revoked,
		session.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrSessionAlreadyExists
		}
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
