package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"task-tracker/models"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeStoreError maps domain errors to status codes. Anything unexpected is
// logged and reported as 500 without detail.
func writeStoreError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var verr *models.ValidationError
	var aerr *models.AuthError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, models.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
	case errors.As(err, &aerr):
		writeError(w, http.StatusUnauthorized, aerr.Message)
	default:
		log.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
