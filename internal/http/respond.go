package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ingresos/internal/core"
	"ingresos/internal/store"
)

// envelope is the wire shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: msg})
}

// writeError maps the domain's error taxonomy onto HTTP statuses: validation
// failures are 400, unknown ids are 404, everything else is a 500 carrying the
// adapter's error code as details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: err.Error()})

	case core.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "category not found"})

	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"url", r.URL.Path,
			"error", err)

		var adapterErr *store.AdapterError
		if errors.As(err, &adapterErr) {
			writeJSON(w, http.StatusInternalServerError, envelope{
				Success: false,
				Error:   "storage operation failed",
				Details: adapterErr.Code,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, envelope{
			Success: false,
			Error:   "internal server error",
		})
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeJSON(w, http.StatusMethodNotAllowed, envelope{Success: false, Error: "method not allowed"})
}

// decodeBody reads a JSON request body into dst, capped at 1MB.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
