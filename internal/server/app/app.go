// Package app wires the server runtime: storage, token codec, the
// authentication service, HTTP routes and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/taskauth/internal/server/auth"
	"github.com/iudanet/taskauth/internal/server/config"
	"github.com/iudanet/taskauth/internal/server/handlers"
	"github.com/iudanet/taskauth/internal/server/jwt"
	"github.com/iudanet/taskauth/internal/server/metrics"
	"github.com/iudanet/taskauth/internal/server/storage"
	"github.com/iudanet/taskauth/internal/server/storage/postgres"
	"github.com/iudanet/taskauth/internal/server/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// Store объединяет хранилища пользователей и сессий с управлением соединением
type Store interface {
	storage.UserStorage
	storage.SessionStorage
	Ping(ctx context.Context) error
	Close() error
}

// App owns the HTTP server and everything it depends on
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   Store
	service *auth.Service
	handler http.Handler
}

// New opens storage, applies migrations and builds the handler tree
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*App, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	codec, err := jwt.NewCodec(jwt.Config{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	m := metrics.New()

	service, err := auth.NewService(logger, store, store, codec, auth.Config{
		PasswordCost: cfg.BcryptCost,
		Metrics:      m,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	handler := NewRouter(RouterConfig{
		Logger:   logger,
		Auth:     service,
		Verifier: codec,
		Metrics:  m,
		DB:       store,
		Version:  version,
		Origins:  cfg.FrontendOrigins(),
		Cookie: handlers.CookieConfig{
			MaxAge: cfg.RefreshTTL(),
			Secure: cfg.CookieSecure,
		},
	})

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		service: service,
		handler: handler,
	}, nil
}

// OpenStore выбирает Postgres, если задан DATABASE_URL, иначе SQLite
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg.UsePostgres() {
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		logger.Info("storage opened", slog.String("driver", "postgres"))
		return store, nil
	}

	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
	}
	logger.Info("storage opened", slog.String("driver", "sqlite"), slog.String("path", cfg.DBPath))
	return store, nil
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully and
// closes storage.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()

	if interval := a.cfg.SweepInterval(); interval > 0 {
		go a.service.RunSweeper(sweepCtx, interval)
		a.logger.Info("session sweeper started", slog.Duration("interval", interval))
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", slog.String("addr", a.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server failed", slog.Any("error", err))
		runErr = fmt.Errorf("listen: %w", err)
	}

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown failed", slog.Any("error", err))
		runErr = errors.Join(runErr, fmt.Errorf("shutdown: %w", err))
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("error", err))
	}

	a.logger.Info("server stopped")
	return runErr
}

// Close releases storage without running the server
func (a *App) Close() error {
	return a.store.Close()
}
