package session

import (
	"encoding/json"
	"errors"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

// writeStoreError maps store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	var pe *PermissionError
	var ve *ValidationError
	var be *BackendError
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "missing user context")
	case errors.As(err, &pe):
		writeError(w, http.StatusForbidden, pe.Reason)
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Reason)
	case errors.As(err, &be):
		writeError(w, http.StatusBadGateway, "persistence failure, action not applied")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// currentUser builds the acting user from the identity headers set by the
// gateway (or the JWT middleware in front of this service).
func currentUser(r *http.Request) User {
	u := User{
		ID:   r.Header.Get("X-User-Id"),
		Name: r.Header.Get("X-User-Name"),
	}
	if u.Name == "" {
		u.Name = u.ID
	}
	return u
}
