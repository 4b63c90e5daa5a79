package search

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const cacheTTL = 10 * time.Minute

type Provider interface {
	// Name identifies the provider; it namespaces the result cache so
	// providers sharing one Redis never serve each other's results.
	Name() string
	SearchTracks(ctx context.Context, query string, limit int) ([]TrackItem, error)
}

// Server fronts a track provider with a Redis result cache. A nil rdb
// disables caching.
type Server struct {
	provider Provider
	rdb      *redis.Client
}

func NewServer(p Provider, rdb *redis.Client) *Server {
	return &Server{
		provider: p,
		rdb:      rdb,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/search", s.handleSearch)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "session-service",
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("query"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if len(q) > 200 {
		writeError(w, http.StatusBadRequest, "query is too long")
		return
	}

	limitStr := r.URL.Query().Get("limit")
	limit := 10
	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 25 {
			limit = v
		}
	}

	if items, ok := s.cached(r.Context(), q, limit); ok {
		writeJSON(w, http.StatusOK, SearchResponse{Items: items})
		return
	}

	items, err := s.provider.SearchTracks(r.Context(), q, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to query provider")
		return
	}

	s.store(r.Context(), q, limit, items)
	writeJSON(w, http.StatusOK, SearchResponse{Items: items})
}

func (s *Server) cacheKey(q string, limit int) string {
	return "search:" + s.provider.Name() + ":" + strconv.Itoa(limit) + ":" + strings.ToLower(q)
}

func (s *Server) cached(ctx context.Context, q string, limit int) ([]TrackItem, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, s.cacheKey(q, limit)).Result()
	if err != nil {
		return nil, false
	}
	var items []TrackItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *Server) store(ctx context.Context, q string, limit int, items []TrackItem) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, s.cacheKey(q, limit), data, cacheTTL).Err(); err != nil {
		log.Printf("session-service: search cache set: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
