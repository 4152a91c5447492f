package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError, so every error
// response has the same shape:
//
//	{"error": "not_found", "message": "snippet not found with id abc123"}
//
// and domain errors map to status codes in exactly one place.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/auth"
	"github.com/sakif/snippet-shelf/internal/service"
)

// maxBodyBytes bounds JSON request bodies; snippet bodies are capped at
// ~100KB, so 1MB leaves room for the envelope.
const maxBodyBytes = 1 << 20

// maxImportBytes bounds import uploads.
const maxImportBytes = 16 << 20

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // set for validation errors
}

// writeJSON sends data as JSON with the given status. Headers must be set
// before WriteHeader; anything after it is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to a status code:
//
//	ErrValidation         → 400
//	ErrUnauthorized       → 401
//	ErrForbidden          → 403
//	ErrNotFound           → 404
//	ErrConflict           → 409
//	ErrBackendUnavailable → 503
//
// Anything else is a 500 with a generic message; raw errors can carry SQL or
// file paths and never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	kind := "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrBackendUnavailable):
		status, kind = http.StatusServiceUnavailable, "backend_unavailable"
	}

	writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message, Field: appErr.Field})
}

// decodeJSON reads a single JSON value from the request body into dst.
// Malformed input comes back as a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON for endpoints where no body at all is
// valid. dst is left untouched then, whatever the Content-Length says.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return apperror.ValidationFailed("body", "request body is required")
		}
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// ownerFrom turns the identity OptionalAuth resolved into a snippet owner.
func ownerFrom(r *http.Request) service.Owner {
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		return service.OwnerFrom(id)
	}
	return service.Anonymous()
}
