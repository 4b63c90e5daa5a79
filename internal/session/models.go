package session

import (
	"time"
)

// User is a session participant. A user appears at most once in a
// session's membership list.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Song is a playlist entry. Identity is the ID; position in the playlist
// slice is the play order. At least one of URL / VideoID must be set for
// the song to be playable through the engine.
type Song struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album,omitempty"`
	Cover    string    `json:"cover,omitempty"`
	Duration int       `json:"duration"` // seconds, authoritative length
	URL      string    `json:"url,omitempty"`
	VideoID  string    `json:"videoId,omitempty"`
	AddedBy  string    `json:"addedBy"`
	Votes    []string  `json:"votes"`
	AddedAt  time.Time `json:"addedAt"`
}

// HasVote reports whether userID already voted for the song.
func (s *Song) HasVote(userID string) bool {
	for _, id := range s.Votes {
		if id == userID {
			return true
		}
	}
	return false
}

// PlayableRef returns the reference handed to the playback engine. The
// external video id wins over a plain URL because only the embed player
// can report real progress.
func (s *Song) PlayableRef() (string, bool) {
	if s.VideoID != "" {
		return s.VideoID, true
	}
	if s.URL != "" {
		return s.URL, true
	}
	return "", false
}

// SongSuggestion is a Song template: everything except the fields the
// store assigns on insertion (id, addedBy, votes).
type SongSuggestion struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Cover    string `json:"cover,omitempty"`
	Duration int    `json:"duration"`
	URL      string `json:"url,omitempty"`
	VideoID  string `json:"videoId,omitempty"`
}

// SystemUserID is the sender of synthesized messages.
const SystemUserID = "system"

// Message is an entry in a session's append-only feed.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a shared listening room. Invariant: whenever the playlist is
// non-empty, 0 <= CurrentSongIndex < len(Playlist); an empty playlist has
// no current song. Only the host may mutate the transport fields
// (IsPlaying, CurrentSongIndex, Progress).
type Session struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	HostID           string    `json:"hostId"`
	RoomCode         string    `json:"roomCode,omitempty"`
	Users            []User    `json:"users"`
	Playlist         []Song    `json:"playlist"`
	CurrentSongIndex int       `json:"currentSongIndex"`
	IsPlaying        bool      `json:"isPlaying"`
	Progress         int       `json:"progress"` // seconds into the current song
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CurrentSong returns the playing entry, or false when the playlist is empty.
func (s *Session) CurrentSong() (Song, bool) {
	if len(s.Playlist) == 0 {
		return Song{}, false
	}
	return s.Playlist[s.CurrentSongIndex], true
}

// Member reports whether userID is in the membership list.
func (s *Session) Member(userID string) bool {
	for _, u := range s.Users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func (s *Session) songIndex(songID string) int {
	for i := range s.Playlist {
		if s.Playlist[i].ID == songID {
			return i
		}
	}
	return -1
}

// JoinTarget identifies the session a user wants to join. Exactly one of
// the two constructors is used; the store never guesses from string shape.
type JoinTarget struct {
	sessionID string
	roomCode  string
}

// BySessionID targets a session by its internal id.
func BySessionID(id string) JoinTarget { return JoinTarget{sessionID: id} }

// ByRoomCode targets a session through its short shareable code.
func ByRoomCode(code string) JoinTarget { return JoinTarget{roomCode: code} }

// Transport is the slice of session state persisted on every transport
// mutation.
type Transport struct {
	CurrentSongIndex int  `json:"currentSongIndex"`
	IsPlaying        bool `json:"isPlaying"`
	Progress         int  `json:"progress"`
}
