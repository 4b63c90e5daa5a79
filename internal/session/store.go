package session

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"session-service/internal/player"
)

// Backend is the persistence surface the store writes through. A nil
// backend means pure in-memory mode. Writes are pessimistic: local state
// only mutates after the backend confirmed.
type Backend interface {
	CreateSession(ctx context.Context, s *Session) error
	FetchActiveSessions(ctx context.Context) ([]Session, error)
	AddUserToSession(ctx context.Context, sessionID string, u User) error
	AddSongToPlaylist(ctx context.Context, sessionID string, song Song) error
	UpdateSessionTransport(ctx context.Context, sessionID string, t Transport) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Store is the single source of truth for sessions: playlist, transport
// and membership. Every mutation validates permissions before touching
// state, persists through the backend, and publishes the updated session
// on the redis broadcast channel.
type Store struct {
	backend Backend
	rdb     *redis.Client
	codes   *roomCodes
	origin  string

	mu       sync.Mutex
	sessions map[string]*Session
	messages map[string][]Message
	adapters map[string]*player.Adapter
	stops    map[string]chan struct{}
	playback map[string]player.Playback
	warned   map[string]bool
	catalog  []SongSuggestion

	now   func() time.Time
	newID func() string
}

func NewStore(backend Backend, rdb *redis.Client) *Store {
	return &Store{
		backend:  backend,
		rdb:      rdb,
		codes:    newRoomCodes(rdb),
		origin:   uuid.NewString(),
		sessions: make(map[string]*Session),
		messages: make(map[string][]Message),
		adapters: make(map[string]*player.Adapter),
		stops:    make(map[string]chan struct{}),
		playback: make(map[string]player.Playback),
		warned:   make(map[string]bool),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetCatalog installs the suggestion catalog used to seed new sessions and
// feed the suggestion selector.
func (st *Store) SetCatalog(catalog []SongSuggestion) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.catalog = append([]SongSuggestion(nil), catalog...)
}

// Restore loads previously persisted sessions into memory, typically at
// startup.
func (st *Store) Restore(ctx context.Context) error {
	if st.backend == nil {
		return nil
	}
	sessions, err := st.backend.FetchActiveSessions(ctx)
	if err != nil {
		return backendErr("fetch sessions", err)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range sessions {
		s := sessions[i]
		if _, ok := st.sessions[s.ID]; ok {
			continue
		}
		st.sessions[s.ID] = &s
		if s.RoomCode != "" {
			st.codes.adopt(s.RoomCode, s.ID)
		}
		if s.IsPlaying {
			st.startLoopLocked(s.ID)
		}
	}
	return nil
}

// CreateSession creates a new session with creator as sole member and host.
func (st *Store) CreateSession(ctx context.Context, name string, creator User) (Session, error) {
	if creator.ID == "" {
		return Session{}, ErrNotAuthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Session{}, validationErr("session name cannot be empty")
	}

	now := st.now()
	s := &Session{
		ID:        st.newID(),
		Name:      name,
		HostID:    creator.ID,
		Users:     []User{creator},
		CreatedAt: now,
		UpdatedAt: now,
	}

	st.mu.Lock()
	for _, sug := range st.seedSuggestions() {
		s.Playlist = append(s.Playlist, st.songFromSuggestion(sug, creator.ID))
	}
	st.mu.Unlock()

	code, err := st.codes.Allocate(ctx, s.ID)
	if err != nil {
		log.Printf("session-service: allocate room code: %v", err)
	} else {
		s.RoomCode = code
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.backend != nil {
		if err := st.backend.CreateSession(ctx, s); err != nil {
			st.codes.Release(ctx, s.RoomCode)
			return Session{}, backendErr("create session", err)
		}
	}
	st.sessions[s.ID] = s
	st.systemMessage(s, `Welcome to "`+name+`" session! Add some songs to the playlist and enjoy the music together.`)

	snap := cloneSession(s)
	go st.publish(context.WithoutCancel(ctx), "session.created", &snap, nil)
	return snap, nil
}

// JoinSession resolves target to a session and adds the user to its
// membership. Joining a session you are already in is idempotent: no
// duplicate membership and no second join message.
func (st *Store) JoinSession(ctx context.Context, target JoinTarget, u User) (Session, error) {
	if u.ID == "" {
		return Session{}, ErrNotAuthenticated
	}

	id := target.sessionID
	if id == "" {
		resolved, ok := st.codes.Resolve(ctx, target.roomCode)
		if !ok {
			return Session{}, ErrNotFound
		}
		id = resolved
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Member(u.ID) {
		return cloneSession(s), nil
	}
	if st.backend != nil {
		if err := st.backend.AddUserToSession(ctx, s.ID, u); err != nil {
			return Session{}, backendErr("join session", err)
		}
	}
	s.Users = append(s.Users, u)
	s.UpdatedAt = st.now()
	st.systemMessage(s, u.Name+" joined the session")

	snap := cloneSession(s)
	go st.publish(context.WithoutCancel(ctx), "session.joined", &snap, map[string]any{"userId": u.ID})
	return snap, nil
}

// LeaveSession removes the user from the session. When the host leaves the
// whole session ends: the progress loop stops, the playback adapter is
// destroyed and the session disappears from the browsable set.
func (st *Store) LeaveSession(ctx context.Context, sessionID string, u User) error {
	if u.ID == "" {
		return ErrNotAuthenticated
	}
	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok {
		st.mu.Unlock()
		return ErrNotFound
	}

	if s.HostID == u.ID {
		if st.backend != nil {
			if err := st.backend.DeleteSession(ctx, s.ID); err != nil {
				st.mu.Unlock()
				return backendErr("end session", err)
			}
		}
		snap := st.teardownLocked(ctx, s)
		st.mu.Unlock()
		go st.publish(context.WithoutCancel(ctx), "session.ended", &snap, nil)
		return nil
	}

	if !s.Member(u.ID) {
		st.mu.Unlock()
		return nil
	}
	users := s.Users[:0]
	for _, member := range s.Users {
		if member.ID != u.ID {
			users = append(users, member)
		}
	}
	s.Users = users
	s.UpdatedAt = st.now()
	st.systemMessage(s, u.Name+" left the session")
	snap := cloneSession(s)
	st.mu.Unlock()

	go st.publish(context.WithoutCancel(ctx), "session.left", &snap, map[string]any{"userId": u.ID})
	return nil
}

// teardownLocked stops the reconciliation loop and destroys the playback
// adapter before the session reference is dropped, so a stray tick can
// never write into a defunct session.
func (st *Store) teardownLocked(ctx context.Context, s *Session) Session {
	st.stopLoopLocked(s.ID)
	if ad := st.adapters[s.ID]; ad != nil {
		if err := ad.Destroy(); err != nil {
			log.Printf("session-service: destroy adapter for %s: %v", s.ID, err)
		}
		delete(st.adapters, s.ID)
	}
	delete(st.playback, s.ID)
	st.codes.Release(ctx, s.RoomCode)
	snap := cloneSession(s)
	delete(st.sessions, s.ID)
	delete(st.messages, s.ID)
	return snap
}

// Sessions returns the browsable set of active sessions.
func (st *Store) Sessions() []Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Session returns a copy of one session.
func (st *Store) Session(sessionID string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return cloneSession(s), nil
}

// Close stops every progress loop and destroys every adapter.
func (st *Store) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id := range st.stops {
		st.stopLoopLocked(id)
	}
	for id, ad := range st.adapters {
		if err := ad.Destroy(); err != nil {
			log.Printf("session-service: destroy adapter for %s: %v", id, err)
		}
		delete(st.adapters, id)
	}
}

func (st *Store) seedSuggestions() []SongSuggestion {
	n := len(st.catalog)
	if n > 2 {
		n = 2
	}
	return st.catalog[:n]
}

func (st *Store) songFromSuggestion(sug SongSuggestion, addedBy string) Song {
	return Song{
		ID:       st.newID(),
		Title:    sug.Title,
		Artist:   sug.Artist,
		Album:    sug.Album,
		Cover:    sug.Cover,
		Duration: sug.Duration,
		URL:      sug.URL,
		VideoID:  sug.VideoID,
		AddedBy:  addedBy,
		Votes:    []string{},
		AddedAt:  st.now(),
	}
}

// persistTransport writes the transport fields through the backend.
// Callers hold the store lock.
func (st *Store) persistTransport(ctx context.Context, s *Session, t Transport) error {
	if st.backend == nil {
		return nil
	}
	if err := st.backend.UpdateSessionTransport(ctx, s.ID, t); err != nil {
		return backendErr("update transport", err)
	}
	return nil
}

func cloneSession(s *Session) Session {
	out := *s
	out.Users = append([]User(nil), s.Users...)
	out.Playlist = make([]Song, len(s.Playlist))
	for i, song := range s.Playlist {
		song.Votes = append([]string(nil), song.Votes...)
		out.Playlist[i] = song
	}
	return out
}
