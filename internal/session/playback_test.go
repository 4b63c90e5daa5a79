package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"session-service/internal/player"
)

func TestAttachPlayerHostOnly(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")
	if _, err := st.JoinSession(context.Background(), BySessionID(s.ID), guest); err != nil {
		t.Fatalf("join: %v", err)
	}

	factory := func(ctx context.Context, events chan<- player.Event) (player.Engine, error) {
		return &fakeEngine{}, nil
	}
	_, err := st.AttachPlayer(context.Background(), s.ID, factory, guest)
	var pe *PermissionError
	if !errors.As(err, &pe) {
		t.Errorf("err = %v, want PermissionError", err)
	}
	if _, err := st.AttachPlayer(context.Background(), "missing", factory, host); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAttachPlayerQueuesCurrentSongUntilReady(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")
	mustAddSong(t, st, s.ID, "A", "a", 100, host)

	eng := &fakeEngine{}
	gate := make(chan struct{})
	factory := func(ctx context.Context, events chan<- player.Event) (player.Engine, error) {
		<-gate
		return eng, nil
	}

	ad, err := st.AttachPlayer(context.Background(), s.ID, factory, host)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	// The engine is still booting: nothing may have reached it yet.
	if got := eng.opList(); len(got) != 0 {
		t.Fatalf("ops before ready = %v, want none", got)
	}

	close(gate)
	waitReady(t, ad)

	// The queued load for the current song and the paused intent flush in
	// call order once the boot completes.
	deadline := time.Now().Add(time.Second)
	for {
		ops := eng.opList()
		if len(ops) >= 2 {
			if ops[0] != "load vid-A" || ops[1] != "pause" {
				t.Fatalf("ops = %v, want [load vid-A pause]", ops)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("queued ops never flushed, got %v", ops)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitReady(t *testing.T, ad *player.Adapter) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !ad.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("adapter never became ready")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAttachPlayerReplacesPreviousAdapter(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")
	mustAddSong(t, st, s.ID, "A", "a", 100, host)

	first := &fakeEngine{}
	ad1, err := st.AttachPlayer(context.Background(), s.ID, func(ctx context.Context, events chan<- player.Event) (player.Engine, error) {
		return first, nil
	}, host)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	waitReady(t, ad1)

	second := &fakeEngine{}
	ad2, err := st.AttachPlayer(context.Background(), s.ID, func(ctx context.Context, events chan<- player.Event) (player.Engine, error) {
		return second, nil
	}, host)
	if err != nil {
		t.Fatalf("re-attach: %v", err)
	}
	waitReady(t, ad2)

	if err := ad1.Play(); !errors.Is(err, player.ErrDestroyed) {
		t.Errorf("old adapter Play = %v, want ErrDestroyed", err)
	}
	ops := first.opList()
	if len(ops) == 0 || ops[len(ops)-1] != "close" {
		t.Errorf("old engine ops = %v, want a trailing close", ops)
	}
}

func TestSkipDrivesEngine(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")
	mustAddSong(t, st, s.ID, "A", "a", 100, host)
	mustAddSong(t, st, s.ID, "B", "b", 100, host)
	eng := &fakeEngine{}
	attachReadyEngine(t, st, s.ID, eng)

	if err := st.PlayPause(context.Background(), s.ID, host); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := st.NextSong(context.Background(), s.ID, host); err != nil {
		t.Fatalf("next: %v", err)
	}

	ops := eng.opList()
	var sawLoad, sawPlay bool
	for _, op := range ops {
		if op == "load vid-B" {
			sawLoad = true
		}
		if sawLoad && op == "play" {
			sawPlay = true
		}
	}
	if !sawLoad || !sawPlay {
		t.Errorf("ops = %v, want load vid-B followed by play", ops)
	}
}

func TestTrackEndAdvancesSession(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")
	mustAddSong(t, st, s.ID, "A", "a", 100, host)
	mustAddSong(t, st, s.ID, "B", "b", 100, host)

	st.advance(context.Background(), s.ID)
	after, _ := st.Session(s.ID)
	if after.CurrentSongIndex != 1 {
		t.Errorf("index = %d, want 1", after.CurrentSongIndex)
	}

	// Advancing off the tail wraps back to the head.
	st.advance(context.Background(), s.ID)
	after, _ = st.Session(s.ID)
	if after.CurrentSongIndex != 0 {
		t.Errorf("index = %d, want 0 after wrap", after.CurrentSongIndex)
	}
}

func TestAdapterErrorSkipsAndWarnsOnce(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")
	mustAddSong(t, st, s.ID, "A", "a", 100, host)
	mustAddSong(t, st, s.ID, "B", "b", 100, host)

	st.handleAdapterError(s.ID, errors.New("video unavailable"))

	after, _ := st.Session(s.ID)
	if after.CurrentSongIndex != 1 {
		t.Errorf("index = %d, want 1 (skipped the broken song)", after.CurrentSongIndex)
	}
	msgs, _ := st.Messages(s.ID)
	last := msgs[len(msgs)-1]
	if last.UserID != SystemUserID || !strings.Contains(last.Text, `Playback failed for "A"`) {
		t.Errorf("last message = %+v, want a playback warning for A", last)
	}
}

func TestAdapterErrorWithSingleSongDoesNotLoop(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")
	mustAddSong(t, st, s.ID, "A", "a", 100, host)

	st.handleAdapterError(s.ID, errors.New("video unavailable"))
	st.handleAdapterError(s.ID, errors.New("video unavailable"))

	after, _ := st.Session(s.ID)
	if after.CurrentSongIndex != 0 {
		t.Errorf("index = %d, want 0 (nowhere to skip)", after.CurrentSongIndex)
	}
	msgs, _ := st.Messages(s.ID)
	warnings := 0
	for _, m := range msgs {
		if strings.Contains(m.Text, "Playback failed") {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("warnings = %d, want exactly 1 per song", warnings)
	}
}

func TestPlayerStateFallsBackToPlayingFlag(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")
	mustAddSong(t, st, s.ID, "A", "a", 100, host)

	if got := st.PlayerState(s.ID); got != player.PlaybackPaused {
		t.Errorf("state = %q, want paused", got)
	}
	if err := st.PlayPause(context.Background(), s.ID, host); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := st.PlayerState(s.ID); got != player.PlaybackPlaying {
		t.Errorf("state = %q, want playing", got)
	}

	st.setPlayback(s.ID, player.PlaybackLoading)
	if got := st.PlayerState(s.ID); got != player.PlaybackLoading {
		t.Errorf("state = %q, want the adapter-reported loading", got)
	}
}
