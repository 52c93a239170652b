// Package session holds the client's in-memory authentication state.
// The refresh credential is never stored here: it lives in the HTTP
// cookie jar and is invisible to application code.
package session

import (
	"sync"

	"github.com/iudanet/taskauth/pkg/api"
)

// State снимок сессии в момент вызова
type State struct {
	User        *api.User
	AccessToken string
}

// Session is safe for concurrent use. Each client owns its own Session.
type Session struct {
	user        *api.User
	accessToken string
	mu          sync.RWMutex
}

// New returns an empty, unauthenticated session
func New() *Session {
	return &Session{}
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{User: copyUser(s.user), AccessToken: s.accessToken}
}

// AccessToken returns the current access token or "" when logged out
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// User returns a copy of the current user or nil
func (s *Session) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// Replace устанавливает пользователя и access токен после входа или обновления
func (s *Session) Replace(user api.User, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	s.accessToken = accessToken
}

// Clear сбрасывает сессию
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.accessToken = ""
}

// IsAuthenticated reports whether an access token is held. The token may
// already be expired; the server is the authority on that.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != ""
}

func copyUser(u *api.User) *api.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
