package validation

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxPasswordLen ограничивает вход bcrypt (72 байта)
	MaxPasswordLen = 72
	// MinNameLen минимальная длина имени
	MinNameLen = 2
	// MaxNameLen максимальная длина имени
	MaxNameLen = 100
	// MaxEmailLen максимальная длина email (RFC 5321)
	MaxEmailLen = 254
)

// Error collects field-level validation failures.
type Error struct {
	Fields map[string][]string
}

// Error implements error
func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add records a message for field
func (e *Error) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// errOrNil возвращает nil, если ни одно поле не добавлено
func (e *Error) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NormalizeEmail приводит email к виду, в котором он хранится:
// без пробелов по краям и в нижнем регистре
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет формат email
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}

	addr, err := mail.ParseAddress(email)
	// ParseAddress принимает и "Name <a@b>", нам нужен только голый адрес
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLen)
	}
	return nil
}

// ValidateName проверяет отображаемое имя пользователя
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLen {
		return fmt.Errorf("name must be at least %d characters long", MinNameLen)
	}
	if n > MaxNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLen)
	}
	return nil
}

// ValidateRegistration validates all registration fields at once so the
// caller gets every problem in a single response. email must already be normalized.
func ValidateRegistration(email, password, name string) error {
	verr := &Error{}
	if err := ValidateEmail(email); err != nil {
		verr.Add("email", err.Error())
	}
	if err := ValidatePassword(password); err != nil {
		verr.Add("password", err.Error())
	}
	if err := ValidateName(name); err != nil {
		verr.Add("name", err.Error())
	}
	return verr.errOrNil()
}

// ValidateLogin validates the shape of login input.
func ValidateLogin(email, password string) error {
	verr := &Error{}
	if err := ValidateEmail(email); err != nil {
		verr.Add("email", err.Error())
	}
	if err := ValidatePassword(password); err != nil {
		verr.Add("password", err.Error())
	}
	return verr.errOrNil()
}
