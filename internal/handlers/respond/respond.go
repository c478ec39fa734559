// Package respond writes JSON responses and maps service errors to HTTP
// statuses for the storefront-facing handlers.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

// JSON writes v with the given status
func JSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Message writes {"success": false, "error": message}
func Message(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	JSON(w, logger, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// Error maps err to a status and writes it. Internal failures are logged
// and reported without detail.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	statusCode, message := Status(err)
	if statusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
	}
	Message(w, logger, statusCode, message)
}

// Status returns the HTTP status and client-safe message for err
func Status(err error) (int, string) {
	var domainErr *domain.DomainError
	errors.As(err, &domainErr)

	switch {
	case domain.IsNotFoundError(err):
		return http.StatusNotFound, domainErr.Message
	case domain.IsValidationError(err):
		return http.StatusBadRequest, domainErr.Message
	case domain.IsDomainError(err, domain.ErrorCodeVaultConflict):
		return http.StatusConflict, domainErr.Message
	case domain.IsDomainError(err, domain.ErrorCodeConfiguration):
		return http.StatusServiceUnavailable, domainErr.Message
	case domain.IsProcessorSide(err):
		return http.StatusBadGateway, "payment processor error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request canceled"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
