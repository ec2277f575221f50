package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/helixir/research-catalog/internal/domain"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// messageResponse is a bare confirmation.
type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

// writeDomainError maps domain errors to HTTP status codes.
//
// Constraint violations answer 500 with the raw store message and a hint,
// so a client can tell a missing journal from a duplicate id. Other
// unexpected errors are logged and not leaked.
func writeDomainError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	if err == nil {
		return
	}

	var ce *domain.ConstraintError
	var nf *domain.NotFoundError
	var ve *domain.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &ce):
		logger.Warn().Err(err).Str("constraint", ce.Constraint).Msg("store rejected write")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: ce.Message, Hint: ce.Hint()})
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// withMessage returns the JSON object of v with a "message" member added.
func withMessage(v any, message string) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	out["message"] = message
	return out, nil
}
