package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handlePlayPause(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	sessionID := chi.URLParam(r, "id")

	if err := s.store.PlayPause(r.Context(), sessionID, u); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeTransport(w, sessionID)
}

func (s *Server) handleNextSong(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	sessionID := chi.URLParam(r, "id")

	if err := s.store.NextSong(r.Context(), sessionID, u); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeTransport(w, sessionID)
}

func (s *Server) handlePreviousSong(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	sessionID := chi.URLParam(r, "id")

	if err := s.store.PreviousSong(r.Context(), sessionID, u); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeTransport(w, sessionID)
}

func (s *Server) handleSeekTo(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	sessionID := chi.URLParam(r, "id")

	var body struct {
		Position *int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Position == nil {
		writeError(w, http.StatusBadRequest, "position is required")
		return
	}

	if err := s.store.SeekTo(r.Context(), sessionID, *body.Position, u); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeTransport(w, sessionID)
}

func (s *Server) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, err := s.store.Session(sessionID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": s.store.PlayerState(sessionID),
	})
}

func (s *Server) writeTransport(w http.ResponseWriter, sessionID string) {
	sess, err := s.store.Session(sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.transport())
}
