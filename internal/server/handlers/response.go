package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/taskauth/pkg/api"
)

// MsgInternalError единственное, что клиент узнает о 500
const MsgInternalError = "internal server error"

// WriteJSON отправляет JSON ответ
func WriteJSON(w http.ResponseWriter, logger *slog.Logger, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// WriteError отправляет JSON ответ с ошибкой
func WriteError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	WriteJSON(w, logger, api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}, statusCode)
}

// writeValidationError отправляет 400 с ошибками по полям
func writeValidationError(w http.ResponseWriter, logger *slog.Logger, fields map[string][]string) {
	WriteJSON(w, logger, api.ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: "validation failed",
		Errors:  fields,
	}, http.StatusBadRequest)
}
