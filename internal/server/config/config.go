// Package config loads server settings from the environment and an optional
// .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds server configuration
type Config struct {
	// HTTPAddr адрес HTTP сервера (:4000)
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL Postgres DSN; пустая строка = SQLite по DBPath
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBPath путь к файлу SQLite
	DBPath string `mapstructure:"DB_PATH"`
	// AccessTokenSecret HMAC ключ access токенов
	AccessTokenSecret string `mapstructure:"ACCESS_TOKEN_SECRET"`
	// RefreshTokenSecret HMAC ключ refresh токенов, должен отличаться от access
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	// AccessTokenExpiresIn e.g. "15m"
	AccessTokenExpiresIn string `mapstructure:"ACCESS_TOKEN_EXPIRES_IN"`
	// RefreshTokenExpiresIn e.g. "7d"
	RefreshTokenExpiresIn string `mapstructure:"REFRESH_TOKEN_EXPIRES_IN"`
	// FrontendOrigin comma-separated list of allowed CORS origins
	FrontendOrigin string `mapstructure:"FRONTEND_ORIGIN"`
	// LogLevel debug, info, warn, error
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// SessionSweepInterval период очистки истекших сессий; "0" = выключено
	SessionSweepInterval string `mapstructure:"SESSION_SWEEP_INTERVAL"`
	// BcryptCost (4-31)
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// CookieSecure выставляет Secure на refresh cookie
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`

	accessTTL     time.Duration
	refreshTTL    time.Duration
	sweepInterval time.Duration
}

// Load reads envFile (if present), then builds and validates Config from the
// environment. Environment variables override the file. An empty envFile
// means ".env"; a missing file is ignored.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}

	v := viper.New()

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // файла может не быть (CI, контейнер)

	v.AutomaticEnv()

	// AutomaticEnv видит только известные ключи, поэтому дефолты есть у всех
	v.SetDefault("HTTP_ADDR", ":4000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_PATH", "taskauth.db")
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_EXPIRES_IN", "15m")
	v.SetDefault("REFRESH_TOKEN_EXPIRES_IN", "7d")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("FRONTEND_ORIGIN", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "0")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("config: HTTP_ADDR must be set"))
	}
	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("config: ACCESS_TOKEN_SECRET must be set"))
	}
	if c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("config: REFRESH_TOKEN_SECRET must be set"))
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.DatabaseURL == "" && c.DBPath == "" {
		errs = append(errs, errors.New("config: DATABASE_URL or DB_PATH must be set"))
	}

	var err error
	if c.accessTTL, err = ParseDuration(c.AccessTokenExpiresIn); err != nil || c.accessTTL <= 0 {
		errs = append(errs, fmt.Errorf("config: invalid ACCESS_TOKEN_EXPIRES_IN %q", c.AccessTokenExpiresIn))
	}
	if c.refreshTTL, err = ParseDuration(c.RefreshTokenExpiresIn); err != nil || c.refreshTTL <= 0 {
		errs = append(errs, fmt.Errorf("config: invalid REFRESH_TOKEN_EXPIRES_IN %q", c.RefreshTokenExpiresIn))
	}
	if c.sweepInterval, err = ParseDuration(c.SessionSweepInterval); err != nil || c.sweepInterval < 0 {
		errs = append(errs, fmt.Errorf("config: invalid SESSION_SWEEP_INTERVAL %q", c.SessionSweepInterval))
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("config: BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// AccessTTL returns the parsed access token lifetime
func (c *Config) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the parsed refresh token lifetime
func (c *Config) RefreshTTL() time.Duration { return c.refreshTTL }

// SweepInterval returns the janitor period, 0 when disabled
func (c *Config) SweepInterval() time.Duration { return c.sweepInterval }

// FrontendOrigins returns the allowed CORS origins from the comma-separated config.
func (c *Config) FrontendOrigins() []string {
	if c == nil || c.FrontendOrigin == "" {
		return nil
	}
	parts := strings.Split(c.FrontendOrigin, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() slog.Level {
	level, _ := ParseLogLevel(c.LogLevel)
	return level
}

// UsePostgres reports whether DATABASE_URL selects the Postgres store
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

var daysRe = regexp.MustCompile(`^(\d+)d$`)

// ParseDuration accepts Go durations ("15m", "1h30m") and whole days ("7d").
// A bare "0" is zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if m := daysRe.FindStringSubmatch(s); m != nil {
		days, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// ParseLogLevel maps LOG_LEVEL to slog.Level
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid LOG_LEVEL %q", s)
	}
	return level, nil
}
