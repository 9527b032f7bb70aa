package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "status": "error"})
}

// statusFor maps a domain error kind to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoChanges):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps err to a status and writes it. Internal failures are
// logged and replaced by a generic message.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	var stepErr *domain.StepError
	switch {
	case errors.As(err, &stepErr):
		msg = stepErr.Message
	case status == http.StatusInternalServerError:
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
		msg = "internal server error"
	}
	writeError(w, status, msg)
}
