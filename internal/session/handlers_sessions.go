package session

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Sessions())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, err := s.store.CreateSession(r.Context(), body.Name, u)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// handleJoinSession accepts either an internal session id or a short room
// code; the client states which one it is sending.
func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var body struct {
		SessionID string `json:"sessionId"`
		RoomCode  string `json:"roomCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var target JoinTarget
	switch {
	case strings.TrimSpace(body.SessionID) != "":
		target = BySessionID(strings.TrimSpace(body.SessionID))
	case strings.TrimSpace(body.RoomCode) != "":
		target = ByRoomCode(body.RoomCode)
	default:
		writeError(w, http.StatusBadRequest, "sessionId or roomCode is required")
		return
	}

	sess, err := s.store.JoinSession(r.Context(), target, u)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLeaveSession(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.store.LeaveSession(r.Context(), chi.URLParam(r, "id"), u); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.store.Suggestions(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}
