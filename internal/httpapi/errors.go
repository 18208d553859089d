package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"authgate.org/internal/auth"
	"authgate.org/internal/obs"
	"authgate.org/internal/ratelimit"
)

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// handleServiceError maps the error taxonomy onto HTTP statuses. No
// internal detail crosses this boundary.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, inputMessage(err))
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "email already exists")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrStoreUnavailable), errors.Is(err, ratelimit.ErrStoreUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// handleAuthError collapses every guard rejection into one uniform 401 so
// clients cannot tell which check failed. The distinction survives only
// in metrics and logs.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrStoreUnavailable) {
		// Fail closed on revocation-store outages.
		writeError(w, r, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	obs.AuthFailure(authFailureReason(err))
	w.Header().Set("WWW-Authenticate", `Bearer realm="authgate"`)
	writeError(w, r, http.StatusUnauthorized, "invalid or missing token")
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return "no_token"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, auth.ErrUnknownSubject):
		return "unknown_subject"
	default:
		return "invalid_token"
	}
}

// inputMessage strips the sentinel prefix from validation errors before
// they reach the client.
func inputMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": ")
	if msg == "" || msg == auth.ErrInvalidInput.Error() {
		return "invalid input"
	}
	return msg
}
