package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's failure taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, core.ErrDeviceNotFound),
		errors.Is(err, core.ErrCommandNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrUnknownActuator),
		errors.Is(err, core.ErrInvalidMode),
		errors.Is(err, core.ErrModeNotSupported),
		errors.Is(err, core.ErrInvalidTrigger):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrCommandNotDelivered):
		status = http.StatusConflict
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
