package session

import (
	"sort"
	"strings"
)

const maxSuggestions = 3

// Suggestions picks catalog songs not already in the session's playlist.
// Entries whose artist already appears in the playlist rank first; within
// a rank the catalog order is kept.
func (st *Store) Suggestions(sessionID string) ([]SongSuggestion, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	queued := make(map[string]bool, len(s.Playlist))
	artists := make(map[string]bool, len(s.Playlist))
	for _, song := range s.Playlist {
		queued[strings.ToLower(song.Title)] = true
		artists[strings.ToLower(song.Artist)] = true
	}

	candidates := make([]SongSuggestion, 0, len(st.catalog))
	for _, sug := range st.catalog {
		if !queued[strings.ToLower(sug.Title)] {
			candidates = append(candidates, sug)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return artists[strings.ToLower(candidates[i].Artist)] && !artists[strings.ToLower(candidates[j].Artist)]
	})

	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}
	return candidates, nil
}
