// Package auth drives the client side of the session protocol: it logs in,
// keeps the access token in a session.Session and transparently renews it
// when a protected call answers 401.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/iudanet/taskauth/internal/client/api"
	"github.com/iudanet/taskauth/internal/client/session"
	pkgapi "github.com/iudanet/taskauth/pkg/api"
)

//go:generate moq -out transport_mock_test.go . Transport

// ErrSessionEnded возвращается, когда обновить сессию не удалось и нужен повторный вход
var ErrSessionEnded = errors.New("session ended, please log in again")

// Transport is the HTTP surface the manager needs; *api.Client implements it.
type Transport interface {
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.AuthResponse, error)
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.AuthResponse, error)
	Refresh(ctx context.Context) (*pkgapi.AuthResponse, error)
	Logout(ctx context.Context) error
	Do(ctx context.Context, method, path, accessToken string, body, result any) error
}

var _ Transport = (*api.Client)(nil)

// Manager owns one session and serializes its renewal
type Manager struct {
	logger    *slog.Logger
	transport Transport
	session   *session.Session
	refreshes singleflight.Group
}

// NewManager создает менеджер; sess == nil означает новую пустую сессию
func NewManager(logger *slog.Logger, transport Transport, sess *session.Session) *Manager {
	if sess == nil {
		sess = session.New()
	}
	return &Manager{
		logger:    logger,
		transport: transport,
		session:   sess,
	}
}

// Session returns the session this manager keeps up to date
func (m *Manager) Session() *session.Session {
	return m.session
}

// Register создает аккаунт и сразу открывает сессию
func (m *Manager) Register(ctx context.Context, email, password, name string) (*pkgapi.User, error) {
	resp, err := m.transport.Register(ctx, pkgapi.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     name,
	})
	if err != nil {
		return nil, err
	}

	m.session.Replace(resp.User, resp.AccessToken)
	return &resp.User, nil
}

// Login открывает новую сессию
func (m *Manager) Login(ctx context.Context, email, password string) (*pkgapi.User, error) {
	resp, err := m.transport.Login(ctx, pkgapi.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	m.session.Replace(resp.User, resp.AccessToken)
	return &resp.User, nil
}

// Logout уведомляет сервер (best effort) и всегда очищает локальную сессию
func (m *Manager) Logout(ctx context.Context) {
	if err := m.transport.Logout(ctx); err != nil {
		// Не прерываем процесс, если сервер недоступен
		m.logger.WarnContext(ctx, "failed to logout on server", slog.Any("error", err))
	}
	m.session.Clear()
}

// Refresh explicitly renews the access token. Concurrent callers share a
// single request to the server.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err := m.refresh(ctx)
	return err
}

// Do performs an authenticated request. On 401 it renews the session once
// and retries the request once; a failed renewal clears the session and
// returns an error wrapping ErrSessionEnded.
func (m *Manager) Do(ctx context.Context, method, path string, body, result any) error {
	token := m.session.AccessToken()

	err := m.transport.Do(ctx, method, path, token, body, result)
	if !api.IsUnauthorized(err) {
		return err
	}

	token, err = m.renew(ctx, token)
	if err != nil {
		return err
	}

	return m.transport.Do(ctx, method, path, token, body, result)
}

// Me returns the current user as seen by the server
func (m *Manager) Me(ctx context.Context) (*pkgapi.User, error) {
	var resp pkgapi.MeResponse
	if err := m.Do(ctx, http.MethodGet, "/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// renew returns a token newer than stale. Если другой вызов уже обновил
// сессию, пока запрос с stale был в полете, повторный refresh не нужен.
func (m *Manager) renew(ctx context.Context, stale string) (string, error) {
	if current := m.session.AccessToken(); current != "" && current != stale {
		return current, nil
	}
	return m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	v, err, shared := m.refreshes.Do("refresh", func() (any, error) {
		// запрос общий для всех ожидающих, отмена одного вызова не должна его прерывать
		resp, err := m.transport.Refresh(context.WithoutCancel(ctx))
		if err != nil {
			var statusErr *api.StatusError
			if errors.As(err, &statusErr) {
				m.session.Clear()
				m.logger.InfoContext(ctx, "session ended", slog.Int("status", statusErr.StatusCode))
				return "", fmt.Errorf("%w: %w", ErrSessionEnded, err)
			}
			return "", fmt.Errorf("failed to refresh session: %w", err)
		}

		m.session.Replace(resp.User, resp.AccessToken)
		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	if shared {
		m.logger.DebugContext(ctx, "refresh coalesced")
	}
	return v.(string), nil
}
