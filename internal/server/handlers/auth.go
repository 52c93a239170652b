package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/taskauth/internal/models"
	"github.com/iudanet/taskauth/internal/server/auth"
	"github.com/iudanet/taskauth/internal/validation"
	"github.com/iudanet/taskauth/pkg/api"
)

// maxBodyBytes ограничивает размер тела auth запросов
const maxBodyBytes = 1 << 20

// AuthService is the part of *auth.Service the handlers use
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*auth.Result, error)
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	Refresh(ctx context.Context, token string) (*auth.Result, error)
	Logout(ctx context.Context, token string)
	User(ctx context.Context, userID string) (*models.User, error)
}

// CookieConfig задает атрибуты refresh cookie
type CookieConfig struct {
	MaxAge time.Duration // время жизни refresh токена
	Secure bool
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger  *slog.Logger
	service AuthService
	cookie  CookieConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, service AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		service: service,
		cookie:  cookie,
	}
}

// Register обрабатывает POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		WriteError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	h.setRefreshCookie(w, res)
	WriteJSON(w, h.logger, authResponse(res), http.StatusCreated)
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		WriteError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	h.setRefreshCookie(w, res)
	WriteJSON(w, h.logger, authResponse(res), http.StatusOK)
}

// Refresh обрабатывает POST /auth/refresh
// Токен берется из cookie, иначе из поля refreshToken в теле
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := h.service.Refresh(ctx, h.refreshToken(w, r))
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	h.setRefreshCookie(w, res)
	WriteJSON(w, h.logger, authResponse(res), http.StatusOK)
}

// Logout обрабатывает POST /auth/logout
// Всегда отвечает 200 и очищает cookie, даже если токена нет или он невалиден
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.service.Logout(ctx, h.refreshToken(w, r))

	h.clearRefreshCookie(w)
	WriteJSON(w, h.logger, api.MessageResponse{Message: "logged out successfully"}, http.StatusOK)
}

// Me обрабатывает GET /me, требует AuthMiddleware
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.service.User(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	WriteJSON(w, h.logger, api.MeResponse{User: publicUser(user)}, http.StatusOK)
}

// refreshToken достает refresh токен из cookie или тела запроса.
// Пустое или битое тело не ошибка: токена просто нет.
func (h *AuthHandler) refreshToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(api.RefreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	var req api.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.DebugContext(r.Context(), "ignoring unreadable refresh body", slog.Any("error", err))
	}
	return req.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, res *auth.Result) {
	http.SetCookie(w, &http.Cookie{
		Name:     api.RefreshCookieName,
		Value:    res.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		Expires:  res.RefreshExpiresAt.UTC(),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     api.RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeServiceError переводит ошибку сервиса в HTTP статус
func (h *AuthHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		verr    *validation.Error
		authErr *auth.Error
	)

	switch {
	case errors.As(err, &verr):
		writeValidationError(w, h.logger, verr.Fields)
	case errors.As(err, &authErr):
		WriteError(w, h.logger, authErr.Message, statusFor(authErr.Kind))
	default:
		h.logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		WriteError(w, h.logger, MsgInternalError, http.StatusInternalServerError)
	}
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, auth.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, auth.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func authResponse(res *auth.Result) api.AuthResponse {
	return api.AuthResponse{
		User:        publicUser(res.User),
		AccessToken: res.AccessToken,
	}
}

// publicUser отдает наружу только id, email и имя
func publicUser(u *models.User) api.User {
	return api.User{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}
