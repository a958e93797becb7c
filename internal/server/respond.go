package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/registry"
)

var (
	errUnknownSession = errors.New("unknown session")
	errBadRequest     = errors.New("bad request")
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
	State     string `json:"state,omitempty"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes err with the status its kind maps to.
func Error(w http.ResponseWriter, err error) {
	writeError(w, err, "")
}

func writeError(w http.ResponseWriter, err error, state string) {
	status, code := classify(err)
	JSON(w, status, errorBody{
		Error:     err.Error(),
		Code:      code,
		Retryable: errors.Is(err, agent.ErrPersistenceFailed),
		State:     state,
	})
}

// classify maps the error taxonomy onto HTTP statuses.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, agent.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, agent.ErrPersistenceFailed):
		return http.StatusServiceUnavailable, "persistence_failed"
	case errors.Is(err, agent.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable, "generation_unavailable"
	case errors.Is(err, agent.ErrVisualUnavailable):
		return http.StatusFailedDependency, "visual_unavailable"
	case errors.Is(err, registry.ErrAgentNotFound):
		return http.StatusNotFound, "agent_not_found"
	case errors.Is(err, errUnknownSession):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, agent.ErrUnknownQuestion):
		return http.StatusNotFound, "question_not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}
