package session

import (
	"context"
	"log"

	"session-service/internal/player"
)

// restartThreshold: PreviousSong restarts the current song instead of
// moving back when more than this many seconds have played.
const restartThreshold = 3

func (s *Session) transport() Transport {
	return Transport{
		CurrentSongIndex: s.CurrentSongIndex,
		IsPlaying:        s.IsPlaying,
		Progress:         s.Progress,
	}
}

// PlayPause flips the playing flag. Host only.
func (st *Store) PlayPause(ctx context.Context, sessionID string, u User) error {
	if u.ID == "" {
		return ErrNotAuthenticated
	}

	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok {
		st.mu.Unlock()
		return ErrNotFound
	}
	if u.ID != s.HostID {
		st.mu.Unlock()
		return permissionErr("only the host can control playback")
	}

	next := s.transport()
	next.IsPlaying = !s.IsPlaying
	if err := st.persistTransport(ctx, s, next); err != nil {
		st.mu.Unlock()
		return err
	}
	s.IsPlaying = next.IsPlaying
	s.UpdatedAt = st.now()
	if s.IsPlaying {
		st.startLoopLocked(sessionID)
	} else {
		st.stopLoopLocked(sessionID)
	}

	ad := st.adapters[sessionID]
	play := s.IsPlaying
	_, hasSong := s.CurrentSong()
	snap := cloneSession(s)
	st.mu.Unlock()

	if ad != nil && hasSong {
		var err error
		if play {
			err = ad.Play()
		} else {
			err = ad.Pause()
		}
		if err != nil {
			log.Printf("session-service: play/pause adapter: %v", err)
		}
	}
	go st.publish(context.WithoutCancel(ctx), "player.state_changed", &snap, nil)
	return nil
}

// NextSong advances to the next playlist entry, wrapping at the end.
// Host only; a playlist with one or zero songs is a no-op.
func (st *Store) NextSong(ctx context.Context, sessionID string, u User) error {
	return st.skip(ctx, sessionID, u, +1)
}

// PreviousSong either restarts the current song (when more than three
// seconds in) or moves to the previous entry, wrapping to the end.
func (st *Store) PreviousSong(ctx context.Context, sessionID string, u User) error {
	return st.skip(ctx, sessionID, u, -1)
}

func (st *Store) skip(ctx context.Context, sessionID string, u User, dir int) error {
	if u.ID == "" {
		return ErrNotAuthenticated
	}

	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok {
		st.mu.Unlock()
		return ErrNotFound
	}
	if u.ID != s.HostID {
		st.mu.Unlock()
		return permissionErr("only the host can control playback")
	}
	if len(s.Playlist) <= 1 {
		st.mu.Unlock()
		return nil
	}

	next := s.transport()
	next.Progress = 0
	if dir < 0 && s.Progress > restartThreshold {
		// Restart in place instead of moving the index.
	} else {
		n := len(s.Playlist)
		next.CurrentSongIndex = ((s.CurrentSongIndex+dir)%n + n) % n
	}
	if err := st.persistTransport(ctx, s, next); err != nil {
		st.mu.Unlock()
		return err
	}
	s.CurrentSongIndex = next.CurrentSongIndex
	s.Progress = 0
	s.UpdatedAt = st.now()

	ad := st.adapters[sessionID]
	var loadRef string
	var resume bool
	if cur, ok := s.CurrentSong(); ok {
		if ref, playable := cur.PlayableRef(); playable {
			loadRef = ref
			resume = s.IsPlaying
		}
	}
	snap := cloneSession(s)
	st.mu.Unlock()

	if ad != nil && loadRef != "" {
		st.driveAdapter(ad, loadRef, resume)
	}
	go st.publish(context.WithoutCancel(ctx), "player.state_changed", &snap, nil)
	return nil
}

// SeekTo sets the progress position. Host only.
func (st *Store) SeekTo(ctx context.Context, sessionID string, seconds int, u User) error {
	if u.ID == "" {
		return ErrNotAuthenticated
	}
	if seconds < 0 {
		return validationErr("seek position cannot be negative")
	}

	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok {
		st.mu.Unlock()
		return ErrNotFound
	}
	if u.ID != s.HostID {
		st.mu.Unlock()
		return permissionErr("only the host can control playback")
	}

	next := s.transport()
	next.Progress = seconds
	if err := st.persistTransport(ctx, s, next); err != nil {
		st.mu.Unlock()
		return err
	}
	s.Progress = seconds
	s.UpdatedAt = st.now()
	ad := st.adapters[sessionID]
	snap := cloneSession(s)
	st.mu.Unlock()

	if ad != nil {
		if err := ad.Seek(seconds); err != nil {
			log.Printf("session-service: seek adapter: %v", err)
		}
	}
	go st.publish(context.WithoutCancel(ctx), "player.state_changed", &snap, nil)
	return nil
}

// AttachPlayer gives the session a playback engine. Host only. Any
// previously attached adapter is destroyed first; an adapter is never
// shared across sessions. Initialization runs in the background, and the
// current song plus the playing intent are queued across the readiness
// boundary.
func (st *Store) AttachPlayer(ctx context.Context, sessionID string, factory player.EngineFactory, u User) (*player.Adapter, error) {
	if u.ID == "" {
		return nil, ErrNotAuthenticated
	}

	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok {
		st.mu.Unlock()
		return nil, ErrNotFound
	}
	if u.ID != s.HostID {
		st.mu.Unlock()
		return nil, permissionErr("only the host can attach a player")
	}

	if old := st.adapters[sessionID]; old != nil {
		if err := old.Destroy(); err != nil {
			log.Printf("session-service: destroy previous adapter: %v", err)
		}
	}

	ad := player.NewAdapter(factory)
	ad.OnStateChange = func(p player.Playback) { st.setPlayback(sessionID, p) }
	ad.OnTrackEnd = func() { st.advance(context.Background(), sessionID) }
	ad.OnError = func(err error) { st.handleAdapterError(sessionID, err) }
	st.adapters[sessionID] = ad
	st.playback[sessionID] = player.PlaybackLoading

	var loadRef string
	var resume bool
	if cur, ok := s.CurrentSong(); ok {
		if ref, playable := cur.PlayableRef(); playable {
			loadRef = ref
			resume = s.IsPlaying
		}
	}
	st.mu.Unlock()

	go func() {
		if err := ad.Initialize(context.WithoutCancel(ctx)); err != nil {
			log.Printf("session-service: initialize player for %s: %v", sessionID, err)
			st.detachFailedAdapter(sessionID, ad)
		}
	}()
	if loadRef != "" {
		st.driveAdapter(ad, loadRef, resume)
	}
	return ad, nil
}

func (st *Store) driveAdapter(ad *player.Adapter, ref string, play bool) {
	if err := ad.Load(ref); err != nil {
		log.Printf("session-service: load adapter: %v", err)
		return
	}
	var err error
	if play {
		err = ad.Play()
	} else {
		err = ad.Pause()
	}
	if err != nil {
		log.Printf("session-service: drive adapter: %v", err)
	}
}

// detachFailedAdapter drops an adapter whose engine never came up, so the
// progress loop runs on the simulated clock instead of waiting on a dead
// engine forever. A newer adapter attached in the meantime stays.
func (st *Store) detachFailedAdapter(sessionID string, ad *player.Adapter) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.adapters[sessionID] != ad {
		return
	}
	delete(st.adapters, sessionID)
	delete(st.playback, sessionID)
}

func (st *Store) setPlayback(sessionID string, p player.Playback) {
	st.mu.Lock()
	st.playback[sessionID] = p
	st.mu.Unlock()
}

// PlayerState reports the playback condition the adapter last delivered
// for the session. Sessions without an adapter derive it from the playing
// flag.
func (st *Store) PlayerState(sessionID string) player.Playback {
	st.mu.Lock()
	defer st.mu.Unlock()
	if p, ok := st.playback[sessionID]; ok {
		return p
	}
	if s, ok := st.sessions[sessionID]; ok && s.IsPlaying {
		return player.PlaybackPlaying
	}
	return player.PlaybackPaused
}

// advance moves to the next song without a permission check. It backs the
// simulated clock, the engine's end-of-track callback and the error-skip
// path. A host NextSong racing an end-of-track callback can double
// advance; both land on a valid index.
func (st *Store) advance(ctx context.Context, sessionID string) {
	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok || len(s.Playlist) == 0 {
		st.mu.Unlock()
		return
	}
	s.CurrentSongIndex = (s.CurrentSongIndex + 1) % len(s.Playlist)
	s.Progress = 0
	s.UpdatedAt = st.now()
	if err := st.persistTransport(ctx, s, s.transport()); err != nil {
		// Internal path: nothing to surface the error to, keep going.
		log.Printf("session-service: persist transport on advance: %v", err)
	}

	ad := st.adapters[sessionID]
	var loadRef string
	var resume bool
	if cur, ok := s.CurrentSong(); ok {
		if ref, playable := cur.PlayableRef(); playable {
			loadRef = ref
			resume = s.IsPlaying
		}
	}
	snap := cloneSession(s)
	st.mu.Unlock()

	if ad != nil && loadRef != "" {
		st.driveAdapter(ad, loadRef, resume)
	}
	go st.publish(context.WithoutCancel(ctx), "player.state_changed", &snap, nil)
}

// handleAdapterError treats an engine failure as a skip signal: warn once
// per song, then move on rather than leave the session stuck.
func (st *Store) handleAdapterError(sessionID string, err error) {
	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok {
		st.mu.Unlock()
		return
	}
	cur, hasSong := s.CurrentSong()
	if !hasSong {
		st.mu.Unlock()
		return
	}
	key := sessionID + "/" + cur.ID
	if st.warned[key] {
		st.mu.Unlock()
		return
	}
	st.warned[key] = true
	st.systemMessage(s, `Playback failed for "`+cur.Title+`", skipping to the next song`)
	skip := len(s.Playlist) > 1
	st.mu.Unlock()

	log.Printf("session-service: player error in %s: %v", sessionID, err)
	if skip {
		st.advance(context.Background(), sessionID)
	}
}
