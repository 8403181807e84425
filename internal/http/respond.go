package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/logger"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps a domain error category onto an HTTP status.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var (
		status  int
		code    string
		details string
	)

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrEmptyCart):
		status, code = http.StatusUnprocessableEntity, "empty_cart"
	case errors.Is(err, domain.ErrProductUnavailable):
		status, code = http.StatusConflict, "product_unavailable"
	case errors.Is(err, domain.ErrPersistenceConflict):
		status, code, details = http.StatusConflict, "conflict", "retryable"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status, code, details = http.StatusServiceUnavailable, "service_unavailable", "retryable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		logger.WithContext(r.Context(), log).Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, status, ErrorResponse{Error: err.Error(), Code: code, Details: details})
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
