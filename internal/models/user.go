package models

import "time"

// User представляет пользователя в системе
type User struct {
	CreatedAt    time.Time `json:"created_at"`    // время создания
	ID           string    `json:"id"`            // UUID пользователя
	Email        string    `json:"email"`         // email в нижнем регистре, уникальный
	Name         string    `json:"name"`          // отображаемое имя
	PasswordHash string    `json:"password_hash"` // bcrypt хеш пароля
}

// Session представляет одно звено цепочки refresh токенов.
// ID совпадает с jti refresh токена. Revoked меняется только false -> true.
type Session struct {
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время создания
	ID        string    `json:"id"`         // ULID сессии (jti)
	UserID    string    `json:"user_id"`    // ID пользователя
	TokenHash string    `json:"token_hash"` // SHA256 хеш текущего refresh токена
	Revoked   bool      `json:"revoked"`    // отозвана или заменена при ротации
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Active reports whether the session can still be used for a refresh.
func (s *Session) Active(now time.Time) bool {
	return !s.Revoked && !s.Expired(now)
}
