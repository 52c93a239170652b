package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/taskauth/internal/server/handlers"
	"github.com/iudanet/taskauth/internal/server/jwt"
)

// Сообщения 401; какая именно проверка не прошла, клиенту не сообщаем
const (
	msgTokenMissing = "access token missing"
	msgTokenInvalid = "invalid or expired token"
)

// AccessVerifier проверяет access токены, реализуется *jwt.Codec
type AccessVerifier interface {
	VerifyAccess(token string) (*jwt.AccessClaims, error)
}

// AuthMiddleware создает middleware для проверки access токена.
// Ожидает "Authorization: Bearer <token>" и кладет user_id и email в контекст.
func AuthMiddleware(logger *slog.Logger, verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.DebugContext(ctx, "missing Authorization header", slog.String("path", r.URL.Path))
				handlers.WriteError(w, logger, msgTokenMissing, http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				logger.WarnContext(ctx, "invalid Authorization header format", slog.String("path", r.URL.Path))
				handlers.WriteError(w, logger, msgTokenMissing, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.VerifyAccess(parts[1])
			if err != nil {
				logger.WarnContext(ctx, "invalid access token", slog.Any("error", err))
				handlers.WriteError(w, logger, msgTokenInvalid, http.StatusUnauthorized)
				return
			}

			logger.DebugContext(ctx, "user authenticated", slog.String("user_id", claims.UserID()))

			next.ServeHTTP(w, r.WithContext(handlers.WithUser(ctx, claims.UserID(), claims.Email)))
		})
	}
}
