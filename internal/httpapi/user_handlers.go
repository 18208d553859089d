package httpapi

import (
	"net/http"
	"strings"
)

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principals, err := a.svc.Users(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]userPayload, 0, len(principals))
	for _, p := range principals {
		out = append(out, principalPayload(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/users/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	principal, err := a.svc.User(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, principalPayload(principal))
}
