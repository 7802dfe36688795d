package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, errorResponse{Error: msg})
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the mapped status. Validation reasons are shown to the
// caller as is; internal details are logged and replaced with a generic message.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()

	var valErr *domain.ValidationError
	switch {
	case errors.As(err, &valErr):
		msg = valErr.Reason
	case code == http.StatusNotFound:
		msg = "Not found"
	case code == http.StatusConflict:
		msg = "The transfer has already settled"
	case code == http.StatusBadGateway:
		logger.WarnContext(ctx, "Upstream failure", "error", err)
		msg = "The payment provider is unavailable, please try again"
	case code == http.StatusInternalServerError:
		logger.ErrorContext(ctx, "Request failed", "error", err)
		msg = "Internal server error"
	}
	respondError(w, code, msg)
}
