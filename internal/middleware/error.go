package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ipek-store/internal/domain"
	"ipek-store/internal/logger"

	"go.uber.org/zap"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	writeError(w, statusCode, http.StatusText(statusCode), message, details)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	json.NewEncoder(w).Encode(response)
}

// StatusForKind maps a business error kind to its HTTP status.
func StatusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound, domain.KindCouponNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindInvalidTransition:
		return http.StatusConflict
	case domain.KindPreconditionFailed,
		domain.KindInsufficientStock,
		domain.KindEmptyCart,
		domain.KindCouponExpired,
		domain.KindCouponNotApplicable,
		domain.KindCouponBelowMinimum,
		domain.KindCouponUsageExceeded:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// RespondWithDomainError writes a business error with its kind as the code.
// Anything that is not a *domain.Error is logged and hidden behind a 500.
func RespondWithDomainError(w http.ResponseWriter, r *http.Request, fallback *zap.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.FromContext(r.Context(), fallback).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		RespondWithError(w, http.StatusInternalServerError, "Beklenmeyen bir hata oluştu")
		return
	}
	writeError(w, StatusForKind(de.Kind), string(de.Kind), de.Message, de.Details)
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	details := make(map[string]interface{})
	details["validation_errors"] = errors

	writeError(w, http.StatusBadRequest, string(domain.KindValidation), "Girilen bilgiler geçersiz", details)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.FromContext(r.Context(), fallback).Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
