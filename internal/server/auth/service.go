// Package auth implements the server-side authentication flow: registration,
// login, refresh token rotation and logout on top of user and session storage.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/iudanet/taskauth/internal/crypto"
	"github.com/iudanet/taskauth/internal/models"
	"github.com/iudanet/taskauth/internal/server/jwt"
	"github.com/iudanet/taskauth/internal/server/storage"
	"github.com/iudanet/taskauth/internal/validation"
)

//go:generate moq -out recorder_mock_test.go . Recorder

// Названия операций для метрик
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpRefresh  = "refresh"
	OpLogout   = "logout"
)

// Outcome labels
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeError   = "error"
)

// dummyPassword хешируется один раз при старте; Login сравнивает с ним,
// когда пользователя нет, чтобы время ответа не выдавало существование email
const dummyPassword = "taskauth-dummy-password"

// Recorder receives operation outcomes. *metrics.Metrics implements it.
type Recorder interface {
	AuthOperation(operation, outcome string)
	RefreshReuseDetected()
}

type nopRecorder struct{}

func (nopRecorder) AuthOperation(string, string) {}
func (nopRecorder) RefreshReuseDetected()        {}

// Config holds service settings
type Config struct {
	Metrics      Recorder         // nil = не считать
	Now          func() time.Time // nil = time.Now
	PasswordCost int              // 0 = crypto.DefaultPasswordCost
}

// Result is returned by every successful credential or refresh operation.
// RefreshToken goes into the cookie and never into a response body.
type Result struct {
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	User             *models.User
	AccessToken      string
	RefreshToken     string
}

// Service implements the authentication flow
type Service struct {
	logger    *slog.Logger
	users     storage.UserStorage
	sessions  storage.SessionStorage
	codec     *jwt.Codec
	metrics   Recorder
	now       func() time.Time
	dummyHash string
	cost      int
}

// NewService создает сервис авторизации
func NewService(logger *slog.Logger, users storage.UserStorage, sessions storage.SessionStorage, codec *jwt.Codec, cfg Config) (*Service, error) {
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = crypto.DefaultPasswordCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopRecorder{}
	}

	dummyHash, err := crypto.HashPassword(dummyPassword, cfg.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Service{
		logger:    logger,
		users:     users,
		sessions:  sessions,
		codec:     codec,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
		dummyHash: dummyHash,
		cost:      cfg.PasswordCost,
	}, nil
}

// Register creates a user and opens the first session of a new lineage.
// Returns *validation.Error, ErrConflict or an internal error.
func (s *Service) Register(ctx context.Context, email, password, name string) (res *Result, err error) {
	defer func() { s.record(OpRegister, err) }()

	email = validation.NormalizeEmail(email)
	if err := validation.ValidateRegistration(email, password, name); err != nil {
		return nil, err
	}

	// Ранняя проверка экономит bcrypt; уникальный индекс все равно ловит гонку
	_, err = s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		s.logger.WarnContext(ctx, "registration rejected: email already registered")
		return nil, conflict(MsgEmailTaken)
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	passwordHash, err := crypto.HashPassword(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         trimName(name),
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return nil, conflict(MsgEmailTaken)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	res, err = s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return res, nil
}

// Login verifies credentials and opens a new session lineage.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (res *Result, err error) {
	defer func() { s.record(OpLogin, err) }()

	email = validation.NormalizeEmail(email)
	if err := validation.ValidateLogin(email, password); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		crypto.VerifyPassword(password, s.dummyHash)
		s.logger.WarnContext(ctx, "login failed")
		return nil, unauthorized(MsgInvalidCredentials)
	}

	if !crypto.VerifyPassword(password, user.PasswordHash) {
		s.logger.WarnContext(ctx, "login failed", slog.String("user_id", user.ID))
		return nil, unauthorized(MsgInvalidCredentials)
	}

	res, err = s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return res, nil
}

// Refresh exchanges a refresh token for a new access/refresh pair and
// supersedes the presented session. A token can be exchanged at most once.
func (s *Service) Refresh(ctx context.Context, token string) (res *Result, err error) {
	defer func() { s.record(OpRefresh, err) }()

	if token == "" {
		return nil, unauthorized(MsgRefreshMissing)
	}

	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		s.logger.DebugContext(ctx, "refresh token rejected", slog.Any("error", err))
		return nil, unauthorized(MsgRefreshInvalid)
	}

	session, err := s.sessions.GetSession(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, unauthorized(MsgRefreshNoLongerValid)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if !session.Active(s.now()) || session.UserID != claims.UserID() {
		s.logger.WarnContext(ctx, "refresh with inactive session",
			slog.String("session_id", session.ID),
			slog.Bool("revoked", session.Revoked))
		return nil, unauthorized(MsgRefreshNoLongerValid)
	}

	if !crypto.RefreshTokenMatches(token, session.TokenHash) {
		// Подпись верна, а хеш не совпал: токен подделан или скомпрометирован
		// ключ. Закрываем всю цепочку.
		if err := s.sessions.RevokeSession(ctx, session.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke session", slog.Any("error", err))
		}
		s.metrics.RefreshReuseDetected()
		s.logger.WarnContext(ctx, "refresh token hash mismatch, session revoked",
			slog.String("session_id", session.ID),
			slog.String("user_id", session.UserID))
		return nil, unauthorized(MsgRefreshMismatch)
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, notFound(MsgUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	next, refreshToken, refreshExpiresAt, err := s.newSession(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.RotateSession(ctx, session.ID, next); err != nil {
		if errors.Is(err, storage.ErrSessionRevoked) || errors.Is(err, storage.ErrSessionNotFound) {
			// параллельный refresh с тем же токеном успел первым
			s.logger.WarnContext(ctx, "refresh lost rotation race", slog.String("session_id", session.ID))
			return nil, unauthorized(MsgRefreshNoLongerValid)
		}
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	accessToken, accessExpiresAt, err := s.codec.SignAccess(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", user.ID))

	return &Result{
		User:             user,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Logout revokes the session behind token if there is one. It never fails:
// a missing, malformed, expired or already revoked token is simply ignored.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		s.metrics.AuthOperation(OpLogout, outcomeSuccess)
		return
	}

	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		s.logger.DebugContext(ctx, "logout with invalid refresh token", slog.Any("error", err))
		s.metrics.AuthOperation(OpLogout, outcomeSuccess)
		return
	}

	if err := s.sessions.RevokeSession(ctx, claims.SessionID()); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke session on logout", slog.Any("error", err))
		s.metrics.AuthOperation(OpLogout, outcomeError)
		return
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", claims.UserID()))
	s.metrics.AuthOperation(OpLogout, outcomeSuccess)
}

// User returns the user by id, ErrNotFound if it is gone
func (s *Service) User(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, notFound(MsgUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SweepExpired deletes sessions past their expiry
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpiredSessions(ctx, s.now())
}

// RunSweeper periodically deletes expired sessions until ctx is done.
// Correctness never depends on it: expiry is checked on every refresh.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deleted, err := s.SweepExpired(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to sweep expired sessions", slog.Any("error", err))
				continue
			}
			if deleted > 0 {
				s.logger.InfoContext(ctx, "expired sessions swept", slog.Int("deleted", deleted))
			}
		case <-ctx.Done():
			return
		}
	}
}

// openSession начинает новую цепочку refresh токенов для user
func (s *Service) openSession(ctx context.Context, user *models.User) (*Result, error) {
	session, refreshToken, refreshExpiresAt, err := s.newSession(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, accessExpiresAt, err := s.codec.SignAccess(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &Result{
		User:             user,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// newSession подписывает refresh токен под новый id сессии и готовит запись;
// в хранилище попадает только хеш токена
func (s *Service) newSession(userID string) (*models.Session, string, time.Time, error) {
	id := ulid.Make().String()

	token, expiresAt, err := s.codec.SignRefresh(userID, id)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	session := &models.Session{
		ID:        id,
		UserID:    userID,
		TokenHash: crypto.HashRefreshToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}

	return session, token, expiresAt, nil
}

func (s *Service) record(operation string, err error) {
	var (
		authErr *Error
		verr    *validation.Error
	)

	switch {
	case err == nil:
		s.metrics.AuthOperation(operation, outcomeSuccess)
	case errors.As(err, &authErr), errors.As(err, &verr):
		s.metrics.AuthOperation(operation, outcomeFailure)
	default:
		s.logger.Error("auth operation failed", slog.String("operation", operation), slog.Any("error", err))
		s.metrics.AuthOperation(operation, outcomeError)
	}
}

func trimName(name string) string {
	return strings.TrimSpace(name)
}
