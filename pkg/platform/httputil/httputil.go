// Package httputil centralizes JSON response writing and request decoding for
// chi handlers so transport concerns stay out of services.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "idsync/pkg/domain-errors"
)

// errorBody is the wire shape of an error response.
type errorBody struct {
	Error       string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error to an HTTP response. Internal errors omit the
// description so implementation detail does not leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}

	// Internal errors omit detail; everything else surfaces message and params.
	var domErr *dErrors.Error
	if errors.As(err, &domErr) && code != dErrors.CodeInternal {
		body.Description = domErr.Message
		body.Params = domErr.Params
	}

	WriteJSON(w, statusFor(code), body)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound, dErrors.CodeSyncNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeSyncIsRunning:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Decode parses the request body into T, writing a 400 response and returning
// ok=false on malformed input.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed request body"))
		return req, false
	}
	return req, true
}
