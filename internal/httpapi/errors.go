// Package httpapi exposes the REST surface and mounts the WebSocket bridge.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roach88/kitchensync/internal/engine"
	"github.com/roach88/kitchensync/internal/model"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, jsonError{Error: message, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an engine or store error onto a status code.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteJSONError(w, http.StatusBadRequest, "validation_error", ve.Error())
	case engine.IsRecomputeError(err):
		// The item write went through; only the order's derived state is stale.
		a.logger.Error("order recomputation failed",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		WriteJSONError(w, http.StatusInternalServerError, "recompute_failed", err.Error())
	case model.IsNotFound(err):
		WriteJSONError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		a.logger.Error("request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
