// Package api holds the JSON wire types shared by the server and the client.
package api

// RefreshCookieName имя cookie с refresh токеном
const RefreshCookieName = "refresh_token"

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Email    string `json:"email"`    // email, сравнивается без учета регистра
	Password string `json:"password"` // пароль в открытом виде (только по TLS)
	Name     string `json:"name"`     // отображаемое имя
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest тело запроса на обновление, если cookie недоступна
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// User публичное представление пользователя (без хеша пароля)
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthResponse возвращается при регистрации, входе и обновлении.
// Refresh токен передается только в cookie.
type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

// MeResponse ответ GET /me
type MeResponse struct {
	User User `json:"user"`
}

// MessageResponse простой ответ с сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse ответ GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"` // RFC 3339
	Version   string `json:"version,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Errors  map[string][]string `json:"errors,omitempty"` // ошибки по полям (только 400)
	Error   string              `json:"error"`            // текст HTTP статуса
	Message string              `json:"message"`          // сообщение для пользователя
}
