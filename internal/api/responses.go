// Package api provides HTTP handlers and routing for the burn severity job service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Details     []string `json:"details,omitempty"`
	RequestID   string   `json:"request_id,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest       = "BadRequest"
	ErrCodeNotFound         = "NotFound"
	ErrCodeInvalidParameter = "InvalidParameterValue"
	ErrCodeServerError      = "ServerError"
	ErrCodeUnavailable      = "ServiceUnavailable"
)

func writeBody(w http.ResponseWriter, status int, contentType string, v any) error {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response body",
			slog.Int("status", status),
			slog.String("content_type", contentType),
			slog.String("error", err.Error()),
		)
	}
	return err
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return writeBody(w, status, "application/json", v)
}

// WriteGeoJSON is WriteJSON with the application/geo+json media type.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	return writeBody(w, status, "application/geo+json", v)
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	_ = writeBody(w, status, "application/json", ErrorResponse{Code: code, Description: message})
}

// WriteBadRequest writes a 400 with optional per-field details.
func WriteBadRequest(w http.ResponseWriter, message string, details ...string) {
	_ = writeBody(w, http.StatusBadRequest, "application/json", ErrorResponse{
		Code:        ErrCodeBadRequest,
		Description: message,
		Details:     details,
	})
}

// WriteNotFound writes a 404.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInvalidParameter writes a 400 for a well-formed request whose values
// cannot be used.
func WriteInvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// WriteInternalError writes a 500.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeServerError, message)
}

// WriteInternalErrorWithRequestID writes a 500 carrying the request ID.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	_ = writeBody(w, http.StatusInternalServerError, "application/json", ErrorResponse{
		Code:        ErrCodeServerError,
		Description: message,
		RequestID:   requestID,
	})
}

// WriteUnavailable writes a 503.
func WriteUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}
