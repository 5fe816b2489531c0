package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkdojang/dojang/internal/domain/shared"
	"github.com/tkdojang/dojang/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	respondWithMeta(c, status, data, nil)
}

func respondWithMeta(c *gin.Context, status int, data interface{}, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	c.JSON(status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: c.GetString(requestIDKey),
	})
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: c.GetString(requestIDKey),
	})
}

// respondError maps err to a status code and writes the error envelope.
func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromContext(c.Request.Context()).Error("request failed", logger.Err(err))
		message = http.StatusText(status)
	}
	abortError(c, status, code, message)
}

// classify maps domain error kinds to HTTP statuses. More specific kinds are
// checked first since several wrap a generic validation kind.
func classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsCapacityExceeded(err):
		return http.StatusConflict, "capacity_exceeded"
	case shared.IsDuplicateName(err):
		return http.StatusConflict, "duplicate_name"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "already_exists"
	case shared.IsInvalidName(err):
		return http.StatusUnprocessableEntity, "invalid_name"
	case errors.Is(err, shared.ErrChecksumMismatch):
		return http.StatusUnprocessableEntity, "checksum_mismatch"
	case errors.Is(err, shared.ErrUnsupportedExport):
		return http.StatusUnprocessableEntity, "unsupported_export"
	case errors.Is(err, shared.ErrInvalidExportPayload):
		return http.StatusUnprocessableEntity, "invalid_export"
	case shared.IsStateConflict(err):
		return http.StatusConflict, "invalid_state"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case shared.IsRetryable(err):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// badRequest reports a malformed request body or parameter.
func badRequest(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		abortError(c, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error())
		return
	}
	abortError(c, http.StatusBadRequest, "bad_request", err.Error())
}
