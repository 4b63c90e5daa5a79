package session

import (
	"context"
	"sort"
	"strings"
)

// AddSong appends a song built from the suggestion to the playlist. Any
// member may add; the store assigns the id, addedBy and an empty vote set.
func (st *Store) AddSong(ctx context.Context, sessionID string, sug SongSuggestion, u User) (Song, error) {
	if u.ID == "" {
		return Song{}, ErrNotAuthenticated
	}
	if strings.TrimSpace(sug.Title) == "" {
		return Song{}, validationErr("song title cannot be empty")
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return Song{}, ErrNotFound
	}
	if !s.Member(u.ID) {
		return Song{}, permissionErr("only session members can add songs")
	}

	song := st.songFromSuggestion(sug, u.ID)
	if st.backend != nil {
		if err := st.backend.AddSongToPlaylist(ctx, s.ID, song); err != nil {
			return Song{}, backendErr("add song", err)
		}
	}
	s.Playlist = append(s.Playlist, song)
	s.UpdatedAt = st.now()
	st.systemMessage(s, u.Name+` added "`+song.Title+`" by `+song.Artist+` to the playlist`)

	snap := cloneSession(s)
	go st.publish(context.WithoutCancel(ctx), "song.added", &snap, map[string]any{"songId": song.ID})
	return song, nil
}

// VoteSong toggles the user's vote on a song: vote if absent, un-vote if
// present. Unless the voted song is the one currently playing, the playlist
// is resorted by the vote-driven reordering policy.
func (st *Store) VoteSong(ctx context.Context, sessionID, songID string, u User) error {
	if u.ID == "" {
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(songID) == "" {
		return validationErr("song id is required")
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if !s.Member(u.ID) {
		return permissionErr("only session members can vote")
	}
	idx := s.songIndex(songID)
	if idx < 0 {
		return ErrNotFound
	}

	song := &s.Playlist[idx]
	if song.HasVote(u.ID) {
		votes := song.Votes[:0]
		for _, id := range song.Votes {
			if id != u.ID {
				votes = append(votes, id)
			}
		}
		song.Votes = votes
	} else {
		song.Votes = append(song.Votes, u.ID)
	}

	if idx != s.CurrentSongIndex {
		resortByVotes(s)
	}
	s.UpdatedAt = st.now()

	snap := cloneSession(s)
	go st.publish(context.WithoutCancel(ctx), "song.voted", &snap, map[string]any{"songId": songID, "userId": u.ID})
	return nil
}

// resortByVotes pins the currently-playing song at position 0 and orders
// everything else by descending vote count. Ties keep their previous
// relative order, which makes the resort deterministic. Playlists are
// small, so a full resort per vote is fine.
func resortByVotes(s *Session) {
	if len(s.Playlist) == 0 {
		return
	}
	current := s.Playlist[s.CurrentSongIndex]
	rest := make([]Song, 0, len(s.Playlist)-1)
	for i, song := range s.Playlist {
		if i != s.CurrentSongIndex {
			rest = append(rest, song)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return len(rest[i].Votes) > len(rest[j].Votes)
	})
	s.Playlist = append([]Song{current}, rest...)
	s.CurrentSongIndex = 0
}

// RemoveSong removes a song. Permitted for the host and for the member who
// added the song. Removing an entry before the current song shifts the
// index down; removing the current song clamps the index into the new
// range and resets progress.
func (st *Store) RemoveSong(ctx context.Context, sessionID, songID string, u User) (Song, error) {
	if u.ID == "" {
		return Song{}, ErrNotAuthenticated
	}

	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok {
		st.mu.Unlock()
		return Song{}, ErrNotFound
	}
	idx := s.songIndex(songID)
	if idx < 0 {
		st.mu.Unlock()
		return Song{}, ErrNotFound
	}
	removed := s.Playlist[idx]
	if u.ID != s.HostID && u.ID != removed.AddedBy {
		st.mu.Unlock()
		return Song{}, permissionErr("you don't have permission to remove this song")
	}

	s.Playlist = append(s.Playlist[:idx], s.Playlist[idx+1:]...)
	wasCurrent := idx == s.CurrentSongIndex
	switch {
	case idx < s.CurrentSongIndex:
		s.CurrentSongIndex--
	case wasCurrent:
		if s.CurrentSongIndex > len(s.Playlist)-1 {
			s.CurrentSongIndex = len(s.Playlist) - 1
		}
		if s.CurrentSongIndex < 0 {
			s.CurrentSongIndex = 0
		}
		s.Progress = 0
	}
	s.UpdatedAt = st.now()
	st.systemMessage(s, `"`+removed.Title+`" was removed from the playlist`)

	var loadRef string
	var resume bool
	if wasCurrent {
		if cur, ok := s.CurrentSong(); ok {
			if ref, playable := cur.PlayableRef(); playable {
				loadRef = ref
				resume = s.IsPlaying
			}
		}
	}
	ad := st.adapters[sessionID]
	snap := cloneSession(s)
	st.mu.Unlock()

	if ad != nil && loadRef != "" {
		st.driveAdapter(ad, loadRef, resume)
	}
	go st.publish(context.WithoutCancel(ctx), "song.removed", &snap, map[string]any{"songId": songID})
	return removed, nil
}

// ReorderSong moves the song at fromIndex to toIndex (splice semantics).
// Host only. The current-song index follows the song it referenced.
func (st *Store) ReorderSong(ctx context.Context, sessionID string, fromIndex, toIndex int, u User) error {
	if u.ID == "" {
		return ErrNotAuthenticated
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if u.ID != s.HostID {
		return permissionErr("only the host can reorder the playlist")
	}
	n := len(s.Playlist)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return validationErr("song index out of range")
	}
	if fromIndex == toIndex {
		return nil
	}

	song := s.Playlist[fromIndex]
	s.Playlist = append(s.Playlist[:fromIndex], s.Playlist[fromIndex+1:]...)
	tail := append([]Song{song}, s.Playlist[toIndex:]...)
	s.Playlist = append(s.Playlist[:toIndex], tail...)

	switch cur := s.CurrentSongIndex; {
	case fromIndex == cur:
		s.CurrentSongIndex = toIndex
	case fromIndex < cur && toIndex >= cur:
		s.CurrentSongIndex--
	case fromIndex > cur && toIndex <= cur:
		s.CurrentSongIndex++
	}
	s.UpdatedAt = st.now()

	snap := cloneSession(s)
	go st.publish(context.WithoutCancel(ctx), "playlist.reordered", &snap, nil)
	return nil
}
