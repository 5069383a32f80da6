package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError so that all
// responses share one Content-Type and one error shape:
//
//	{"error": "validation_error", "message": "...", "details": ["...", "..."]}
//
// "details" is only present for validation errors and lists every problem
// found in the request, in order.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/template-studio/internal/apperror"
)

// maxBodyBytes caps request bodies. Design documents from the editor are
// large but well under this.
const maxBodyBytes = 5 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string   `json:"error"`             // Machine-readable error type (e.g., "not_found")
	Message string   `json:"message"`           // Human-readable description
	Details []string `json:"details,omitempty"` // Every validation problem, in order
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set BEFORE the body: once Encode writes, the
// headers are on the wire and later changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an application error to its HTTP status and sends it.
//
//	ErrValidation → 400
//	ErrNotFound   → 404
//	ErrConflict   → 409
//	anything else → 500 with a generic message
//
// Storage faults carry the driver error as their cause. It is never sent to
// the client: it may contain SQL or file paths. The service has already
// logged it.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("unexpected error reached the handler", slog.String("error", err.Error()))
		writeInternal(w)
		return
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: appErr.Message,
			Details: appErr.Details,
		})
	case errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: appErr.Message,
		})
	case errors.Is(err, apperror.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: appErr.Message,
		})
	default:
		writeInternal(w)
	}
}

func writeInternal(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeBody reads the request body as untyped JSON for the request
// validators. UseNumber keeps numbers inside the design document as their
// original literals instead of rounding them through float64.
func decodeBody(w http.ResponseWriter, r *http.Request) (any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperror.ValidationFailed("body", "request body is too large")
		}
		return nil, apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	// A second value after the first one is not a single JSON document.
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return body, nil
}
