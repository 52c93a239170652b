// Package cli implements the taskauth client commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/taskauth/internal/client/iocli"
	"github.com/iudanet/taskauth/pkg/api"
)

// PasswordEnv переменная окружения с паролем
const PasswordEnv = "TASKAUTH_PASSWORD"

// SessionManager is implemented by *auth.Manager
type SessionManager interface {
	Register(ctx context.Context, email, password, name string) (*api.User, error)
	Login(ctx context.Context, email, password string) (*api.User, error)
	Logout(ctx context.Context)
	Refresh(ctx context.Context) error
	Me(ctx context.Context) (*api.User, error)
}

// CookieJar очищает сохраненные cookies при выходе
type CookieJar interface {
	Clear(ctx context.Context) error
}

// Passwords альтернативные источники пароля для неинтерактивного запуска
type Passwords struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	io        iocli.IO
	manager   SessionManager
	jar       CookieJar
	passwords Passwords
}

func New(io iocli.IO, manager SessionManager, jar CookieJar, passwords Passwords) *Cli {
	return &Cli{
		io:        io,
		manager:   manager,
		jar:       jar,
		passwords: passwords,
	}
}

// presetPassword retrieves password from non-interactive sources with priority:
// 1. Environment variable TASKAUTH_PASSWORD
// 2. File specified in Passwords.FromFile
// 3. Command-line parameter Passwords.FromArgs
func (c *Cli) presetPassword() (string, bool, error) {
	// Priority 1: Environment variable
	if envPassword := os.Getenv(PasswordEnv); envPassword != "" {
		return envPassword, true, nil
	}

	// Priority 2: File
	if c.passwords.FromFile != "" {
		content, err := os.ReadFile(c.passwords.FromFile)
		if err != nil {
			return "", false, fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", false, fmt.Errorf("password file is empty")
		}
		return password, true, nil
	}

	// Priority 3: CLI parameter
	if c.passwords.FromArgs != "" {
		return c.passwords.FromArgs, true, nil
	}

	return "", false, nil
}

// getPassword falls back to an interactive prompt when no preset exists
func (c *Cli) getPassword(prompt string) (string, error) {
	password, ok, err := c.presetPassword()
	if err != nil {
		return "", err
	}
	if ok {
		return password, nil
	}

	password, err = c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

// PrintUsage prints command help
func PrintUsage(out iocli.IO) {
	out.Println("TaskAuth Client")
	out.Println()
	out.Println("Usage:")
	out.Println("  taskauth [OPTIONS] COMMAND")
	out.Println()
	out.Println("Options:")
	out.Println("  --version              Show version information")
	out.Println("  --server URL           Server URL (default: http://localhost:4000)")
	out.Println("  --db PATH              Path to local database (default: taskauth-client.db)")
	out.Println("  --password PASSWORD    Password (not recommended, use env var or file)")
	out.Println("  --password-file PATH   Path to file containing password")
	out.Println()
	out.Println("Password Priority (highest to lowest):")
	out.Printf("  1. %s environment variable\n", PasswordEnv)
	out.Println("  2. --password-file (file path)")
	out.Println("  3. --password (command line)")
	out.Println("  4. Interactive prompt (fallback)")
	out.Println()
	out.Println("Commands:")
	out.Println("  register    Create an account and start a session")
	out.Println("  login       Start a new session")
	out.Println("  logout      End the session and forget the refresh cookie")
	out.Println("  me          Show the current user (renews the session if needed)")
	out.Println("  refresh     Renew the session explicitly")
	out.Println()
	out.Println("Examples:")
	out.Println("  taskauth register")
	out.Println("  taskauth --server https://auth.example.com login")
	out.Println("  taskauth me")
}
