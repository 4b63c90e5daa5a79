package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	mu  sync.Mutex
	ops []string

	position int
	duration int
	playErr  error
}

func (e *stubEngine) record(op string) {
	e.mu.Lock()
	e.ops = append(e.ops, op)
	e.mu.Unlock()
}

func (e *stubEngine) Load(ref string) error { e.record("load " + ref); return nil }
func (e *stubEngine) Play() error           { e.record("play"); return e.playErr }
func (e *stubEngine) Pause() error          { e.record("pause"); return nil }
func (e *stubEngine) Seek(seconds int) error {
	e.record("seek")
	e.mu.Lock()
	e.position = seconds
	e.mu.Unlock()
	return nil
}
func (e *stubEngine) CurrentTime() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position, nil
}
func (e *stubEngine) Duration() (int, error) { return e.duration, nil }
func (e *stubEngine) Close() error           { e.record("close"); return nil }

func (e *stubEngine) opList() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ops...)
}

func instantFactory(eng *stubEngine) EngineFactory {
	return func(ctx context.Context, events chan<- Event) (Engine, error) {
		return eng, nil
	}
}

func TestInitializeFlushesQueuedOpsInOrder(t *testing.T) {
	eng := &stubEngine{}
	gate := make(chan struct{})
	a := NewAdapter(func(ctx context.Context, events chan<- Event) (Engine, error) {
		<-gate
		return eng, nil
	})

	initDone := make(chan error, 1)
	go func() { initDone <- a.Initialize(context.Background()) }()

	// Issue operations while the engine is still booting. None may error
	// and none may reach the engine yet.
	require.NoError(t, a.Load("song-1"))
	require.NoError(t, a.Seek(10))
	require.NoError(t, a.Play())
	assert.Empty(t, eng.opList())

	close(gate)
	require.NoError(t, <-initDone)

	assert.Equal(t, []string{"load song-1", "seek", "play"}, eng.opList())
}

func TestInitializeIdempotent(t *testing.T) {
	eng := &stubEngine{}
	a := NewAdapter(instantFactory(eng))

	require.NoError(t, a.Initialize(context.Background()))
	require.NoError(t, a.Initialize(context.Background()))
	assert.True(t, a.Ready())
}

func TestInitializeFailureResetsAdapter(t *testing.T) {
	boom := errors.New("script blocked")
	calls := 0
	var failErr error
	a := NewAdapter(func(ctx context.Context, events chan<- Event) (Engine, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return &stubEngine{}, nil
	})
	a.OnError = func(err error) { failErr = err }

	err := a.Initialize(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, failErr, boom)
	assert.False(t, a.Ready())
	assert.Equal(t, PlaybackError, a.State())

	// A later Initialize can still bring the adapter up.
	require.NoError(t, a.Initialize(context.Background()))
	assert.True(t, a.Ready())
}

func TestOpsAfterReadyHitEngineDirectly(t *testing.T) {
	eng := &stubEngine{}
	a := NewAdapter(instantFactory(eng))
	require.NoError(t, a.Initialize(context.Background()))

	require.NoError(t, a.Load("song-2"))
	require.NoError(t, a.Pause())
	assert.Equal(t, []string{"load song-2", "pause"}, eng.opList())
}

func TestReadsRequireReadiness(t *testing.T) {
	a := NewAdapter(instantFactory(&stubEngine{position: 42, duration: 180}))

	_, err := a.CurrentTime()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = a.Duration()
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, a.Initialize(context.Background()))

	pos, err := a.CurrentTime()
	require.NoError(t, err)
	assert.Equal(t, 42, pos)
	dur, err := a.Duration()
	require.NoError(t, err)
	assert.Equal(t, 180, dur)
}

func TestDestroyDropsQueueAndClosesEngine(t *testing.T) {
	eng := &stubEngine{}
	gate := make(chan struct{})
	a := NewAdapter(func(ctx context.Context, events chan<- Event) (Engine, error) {
		<-gate
		return eng, nil
	})

	initDone := make(chan error, 1)
	go func() { initDone <- a.Initialize(context.Background()) }()
	require.NoError(t, a.Load("song-1"))

	require.NoError(t, a.Destroy())
	close(gate)

	// Initialize lost the race: the engine it built is released and the
	// queued load never runs.
	assert.ErrorIs(t, <-initDone, ErrDestroyed)
	assert.Equal(t, []string{"close"}, eng.opList())

	assert.ErrorIs(t, a.Play(), ErrDestroyed)
	assert.ErrorIs(t, a.Load("x"), ErrDestroyed)
	_, err := a.CurrentTime()
	assert.ErrorIs(t, err, ErrDestroyed)
	require.NoError(t, a.Destroy())
}

func TestReinitializeAfterDestroy(t *testing.T) {
	eng := &stubEngine{}
	a := NewAdapter(instantFactory(eng))

	require.NoError(t, a.Initialize(context.Background()))
	require.NoError(t, a.Destroy())
	require.NoError(t, a.Initialize(context.Background()))
	assert.True(t, a.Ready())
	require.NoError(t, a.Play())
}

func TestEngineEventsDriveCallbacks(t *testing.T) {
	var events chan<- Event
	a := NewAdapter(func(ctx context.Context, ch chan<- Event) (Engine, error) {
		events = ch
		return &stubEngine{}, nil
	})

	var mu sync.Mutex
	var states []Playback
	ended := 0
	var errs []error
	a.OnStateChange = func(p Playback) { mu.Lock(); states = append(states, p); mu.Unlock() }
	a.OnTrackEnd = func() { mu.Lock(); ended++; mu.Unlock() }
	a.OnError = func(err error) { mu.Lock(); errs = append(errs, err); mu.Unlock() }

	require.NoError(t, a.Initialize(context.Background()))

	events <- Event{Playback: PlaybackPlaying}
	events <- Event{Playback: PlaybackPlaying} // duplicate, must not re-fire
	events <- Event{Ended: true}
	events <- Event{Err: errors.New("decode failure")}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 1 && ended == 1 && len(errs) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, PlaybackPlaying, states[0])
	mu.Unlock()
	assert.Equal(t, PlaybackError, a.State())
}
