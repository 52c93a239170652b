package app

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/taskauth/internal/server/handlers"
	"github.com/iudanet/taskauth/internal/server/metrics"
	"github.com/iudanet/taskauth/internal/server/middleware"
)

// RouterConfig собирает зависимости HTTP слоя
type RouterConfig struct {
	Logger   *slog.Logger
	Auth     handlers.AuthService
	Verifier middleware.AccessVerifier
	Metrics  *metrics.Metrics
	DB       handlers.Pinger // nil = /health не проверяет базу
	Version  string
	Origins  []string
	Cookie   handlers.CookieConfig
}

// NewRouter registers all routes and wraps them in the middleware chain:
// recovery, CORS, request logging, metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := handlers.NewAuthHandler(cfg.Logger, cfg.Auth, cfg.Cookie)
	healthHandler := handlers.NewHealthHandler(cfg.Logger, cfg.DB, cfg.Version)
	requireAuth := middleware.AuthMiddleware(cfg.Logger, cfg.Verifier)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	// защищенные маршруты
	mux.Handle("GET /me", requireAuth(http.HandlerFunc(authHandler.Me)))

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", cfg.Metrics.Handler())

	var h http.Handler = mux
	h = middleware.MetricsMiddleware(cfg.Metrics)(h)
	h = middleware.LoggingWithSkip(cfg.Logger, []string{"/health", "/metrics"})(h)
	h = middleware.CORSMiddleware(cfg.Origins)(h)
	h = middleware.RecoveryMiddleware(cfg.Logger)(h)

	return h
}
