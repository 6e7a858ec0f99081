package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"council/internal/councilerr"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

// statusFromError maps the council sentinel errors to HTTP status codes
// per the error-kind table: NotFound -> 404, Forbidden -> 403,
// Conflict -> 409, Validation/ConfigMissing -> 400, everything else 500.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, councilerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, councilerr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, councilerr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, councilerr.ErrValidation), errors.Is(err, councilerr.ErrConfigMissing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
