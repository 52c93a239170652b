package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Типы токенов (claim "type")
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// DefaultIssuer is used when Config.Issuer is empty.
const DefaultIssuer = "taskauth"

// ErrInvalidToken wraps every verification failure: bad signature, wrong
// algorithm, expired, wrong type or missing claims.
var ErrInvalidToken = errors.New("invalid token")

// Config содержит конфигурацию для кодека токенов
type Config struct {
	// Now returns the current time; time.Now when nil.
	Now           func() time.Time
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AccessClaims represents access token claims
type AccessClaims struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	gojwt.RegisteredClaims
}

// RefreshClaims represents refresh token claims; the session id travels as jti.
type RefreshClaims struct {
	Type string `json:"type"`
	gojwt.RegisteredClaims
}

// UserID returns the subject of the token
func (c *AccessClaims) UserID() string { return c.Subject }

// UserID returns the subject of the token
func (c *RefreshClaims) UserID() string { return c.Subject }

// SessionID returns the session id the token is bound to
func (c *RefreshClaims) SessionID() string { return c.ID }

// Codec signs and verifies access and refresh tokens.
// Два класса токенов подписываются разными секретами.
type Codec struct {
	now           func() time.Time
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewCodec creates a new token codec
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, fmt.Errorf("access token secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, fmt.Errorf("refresh token secret is required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, fmt.Errorf("access and refresh token secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	return &Codec{
		now:           now,
		issuer:        issuer,
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}, nil
}

// AccessTTL returns the configured access token lifetime
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// SignAccess creates a new access token
func (c *Codec) SignAccess(userID, email string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}

	now := c.now()
	expiresAt := now.Add(c.accessTTL)

	claims := AccessClaims{
		Email:            email,
		Type:             TypeAccess,
		RegisteredClaims: c.registered(userID, "", now, expiresAt),
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return token, expiresAt, nil
}

// SignRefresh creates a new refresh token bound to sessionID
func (c *Codec) SignRefresh(userID, sessionID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}
	if sessionID == "" {
		return "", time.Time{}, fmt.Errorf("session id is required")
	}

	now := c.now()
	expiresAt := now.Add(c.refreshTTL)

	claims := RefreshClaims{
		Type:             TypeRefresh,
		RegisteredClaims: c.registered(userID, sessionID, now, expiresAt),
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return token, expiresAt, nil
}

// VerifyAccess validates an access token and returns its claims
func (c *Codec) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(token, claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims
func (c *Codec) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(token, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return claims, nil
}

func (c *Codec) registered(subject, id string, now, expiresAt time.Time) gojwt.RegisteredClaims {
	return gojwt.RegisteredClaims{
		Subject:   subject,
		ID:        id,
		Issuer:    c.issuer,
		ExpiresAt: gojwt.NewNumericDate(expiresAt),
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
	}
}

// parse проверяет подпись, алгоритм, issuer и срок действия
func (c *Codec) parse(token string, claims gojwt.Claims, secret []byte) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	_, err := gojwt.ParseWithClaims(token, claims, func(t *gojwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuer(c.issuer),
		gojwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return nil
}
