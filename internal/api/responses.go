// Package api provides HTTP handlers and routing for the Swath Projector
// metadata service.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Standard error codes.
const (
	ErrCodeBadRequest    = "BadRequest"
	ErrCodeNotFound      = "NotFound"
	ErrCodeServerError   = "ServerError"
	ErrCodeUpstreamError = "UpstreamServiceError"
)

// WriteJSON writes a JSON response with the given status code and value.
// If encoding fails, it logs the error.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response",
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	errResp := ErrorResponse{
		Code:        code,
		Description: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		slog.Error("failed to encode error response",
			slog.String("error", err.Error()),
		)
	}
}

// WriteBadRequest writes a 400 response with the BadRequest code.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteNotFound writes a 404 response with the NotFound code.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}
