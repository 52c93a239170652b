package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/taskauth/internal/models"
	"github.com/iudanet/taskauth/internal/server/storage"
)

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateSession stores a new session
func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	return insertSession(ctx, s.db, session)
}

// GetSession retrieves session by id
func (s *Storage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM sessions
		WHERE id = ?
	`

	session := &models.Session{}

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.Revoked,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// RevokeSession marks session as revoked; revoking twice is a no-op
func (s *Storage) RevokeSession(ctx context.Context, id string) error {
	query := `UPDATE sessions SET revoked = 1 WHERE id = ? AND revoked = 0`

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// RotateSession revokes oldID and stores next in one transaction.
// Проверка и установка revoked выполняются одним UPDATE: из двух
// конкурентных ротаций строку изменит только одна.
func (s *Storage) RotateSession(ctx context.Context, oldID string, next *models.Session) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `UPDATE sessions SET revoked = 1 WHERE id = ? AND revoked = 0`, oldID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		var exists int
		qerr := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, oldID).Scan(&exists)
		switch {
		case errors.Is(qerr, sql.ErrNoRows):
			err = storage.ErrSessionNotFound
		case qerr != nil:
			err = fmt.Errorf("failed to check session: %w", qerr)
		default:
			err = storage.ErrSessionRevoked
		}
		return err
	}

	if err = insertSession(ctx, tx, next); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}

	return nil
}

// DeleteExpiredSessions removes sessions that expired before now
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM sessions WHERE expires_at < ?`

	result, err := s.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

func insertSession(ctx context.Context, db execer, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
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
