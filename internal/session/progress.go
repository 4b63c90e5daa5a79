package session

import (
	"context"
	"log"
	"time"

	"session-service/internal/player"
)

// tickInterval is the reconciliation period.
const tickInterval = time.Second

// startLoopLocked starts the progress reconciliation loop for a session.
// The loop is owned by the store and tied to the session's lifecycle:
// started on entering the playing state, stopped on leaving it and on
// teardown. Callers hold the store lock.
func (st *Store) startLoopLocked(sessionID string) {
	if _, running := st.stops[sessionID]; running {
		return
	}
	stop := make(chan struct{})
	st.stops[sessionID] = stop
	go st.runLoop(sessionID, stop)
}

func (st *Store) stopLoopLocked(sessionID string) {
	if stop, running := st.stops[sessionID]; running {
		delete(st.stops, sessionID)
		close(stop)
	}
}

func (st *Store) runLoop(sessionID string, stop <-chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			st.tick(context.Background(), sessionID)
		}
	}
}

// tick performs one reconciliation step. With an adapter attached and
// playing, the engine's playhead is ground truth and is copied into the
// session. Without one, progress is a simulated clock: one second per
// tick, advancing to the next song when the stored duration elapses.
func (st *Store) tick(ctx context.Context, sessionID string) {
	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok || !s.IsPlaying {
		st.mu.Unlock()
		return
	}

	if ad := st.adapters[sessionID]; ad != nil {
		if !ad.Ready() || st.playback[sessionID] != player.PlaybackPlaying {
			st.mu.Unlock()
			return
		}
		st.mu.Unlock()
		pos, err := ad.CurrentTime()
		if err != nil {
			log.Printf("session-service: read playhead for %s: %v", sessionID, err)
			return
		}
		st.mu.Lock()
		if s, ok := st.sessions[sessionID]; ok && s.IsPlaying {
			s.Progress = pos
			s.UpdatedAt = st.now()
		}
		st.mu.Unlock()
		return
	}

	cur, hasSong := s.CurrentSong()
	if !hasSong {
		st.mu.Unlock()
		return
	}
	s.Progress++
	if cur.Duration > 0 && s.Progress >= cur.Duration {
		st.mu.Unlock()
		st.advance(ctx, sessionID)
		return
	}
	s.UpdatedAt = st.now()
	st.mu.Unlock()
}
