package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"filecatalog/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusOf сопоставляет ошибку сервиса с HTTP-статусом
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *FileHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)

	event := h.logger.Warn()
	if status == http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Детали хранилища наружу не отдаем
		message = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Error: message})
}
