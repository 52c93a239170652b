package auth

import "errors"

// Классы ошибок, по которым handlers выбирают HTTP статус.
// Ошибки валидации приходят как *validation.Error.
var (
	// ErrUnauthorized credentials or token rejected
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict resource already exists
	ErrConflict = errors.New("conflict")

	// ErrNotFound resource does not exist
	ErrNotFound = errors.New("not found")
)

// Error is a classified failure with a message that is safe to return to
// the caller. Internal details never go into Message.
type Error struct {
	Kind    error
	Message string
}

// Error implements error
func (e *Error) Error() string {
	return e.Message
}

// Unwrap allows errors.Is(err, ErrUnauthorized) and friends
func (e *Error) Unwrap() error {
	return e.Kind
}

func unauthorized(message string) error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

func conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

func notFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// Сообщения, которые видит клиент
const (
	MsgInvalidCredentials   = "invalid email or password"
	MsgEmailTaken           = "email already registered"
	MsgRefreshMissing       = "refresh token missing"
	MsgRefreshInvalid       = "invalid refresh token"
	MsgRefreshNoLongerValid = "refresh token is no longer valid"
	MsgRefreshMismatch      = "refresh token does not match"
	MsgUserNotFound         = "user not found"
)
