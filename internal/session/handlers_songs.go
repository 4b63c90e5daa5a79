package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	sessionID := chi.URLParam(r, "id")

	var sug SongSuggestion
	if err := json.NewDecoder(r.Body).Decode(&sug); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	song, err := s.store.AddSong(r.Context(), sessionID, sug, u)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

func (s *Server) handleVoteSong(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	sessionID := chi.URLParam(r, "id")
	songID := chi.URLParam(r, "songId")

	if err := s.store.VoteSong(r.Context(), sessionID, songID, u); err != nil {
		writeStoreError(w, err)
		return
	}
	sess, err := s.store.Session(sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleReorderSong moves a song to a new position. The body carries the
// target index; the song's current index is resolved from its id.
func (s *Server) handleReorderSong(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	sessionID := chi.URLParam(r, "id")
	songID := chi.URLParam(r, "songId")

	var body struct {
		ToIndex *int `json:"toIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ToIndex == nil {
		writeError(w, http.StatusBadRequest, "toIndex is required")
		return
	}

	sess, err := s.store.Session(sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	from := sess.songIndex(songID)
	if from < 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := s.store.ReorderSong(r.Context(), sessionID, from, *body.ToIndex, u); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveSong(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	sessionID := chi.URLParam(r, "id")
	songID := chi.URLParam(r, "songId")

	removed, err := s.store.RemoveSong(r.Context(), sessionID, songID, u)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}
