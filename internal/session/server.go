package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	store *Store
}

func NewServer(store *Store) *Server {
	return &Server{store: store}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Get("/sessions", s.handleListSessions)
	r.Post("/sessions", s.handleCreateSession)
	r.Post("/sessions/join", s.handleJoinSession)
	r.Get("/sessions/{id}", s.handleGetSession)
	r.Post("/sessions/{id}/leave", s.handleLeaveSession)

	r.Post("/sessions/{id}/songs", s.handleAddSong)
	r.Post("/sessions/{id}/songs/{songId}/vote", s.handleVoteSong)
	r.Patch("/sessions/{id}/songs/{songId}", s.handleReorderSong)
	r.Delete("/sessions/{id}/songs/{songId}", s.handleRemoveSong)

	// Transport control (host only, enforced by the store)
	r.Post("/sessions/{id}/play", s.handlePlayPause)
	r.Post("/sessions/{id}/next", s.handleNextSong)
	r.Post("/sessions/{id}/previous", s.handlePreviousSong)
	r.Post("/sessions/{id}/seek", s.handleSeekTo)
	r.Get("/sessions/{id}/player", s.handlePlayerState)

	r.Get("/sessions/{id}/messages", s.handleListMessages)
	r.Post("/sessions/{id}/messages", s.handleSendMessage)
	r.Get("/sessions/{id}/suggestions", s.handleSuggestions)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "session-service",
	})
}
