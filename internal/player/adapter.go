package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Playback is the condition the underlying engine reports. It can diverge
// from the session's isPlaying flag while a track is buffering.
type Playback string

const (
	PlaybackPlaying Playback = "playing"
	PlaybackPaused  Playback = "paused"
	PlaybackLoading Playback = "loading"
	PlaybackError   Playback = "error"
)

const (
	stateUninitialized = iota
	stateInitializing
	stateReady
	stateDestroyed
)

var (
	// ErrDestroyed is returned by every playback operation after Destroy.
	ErrDestroyed = errors.New("player: adapter destroyed")
	// ErrNotReady is returned by read operations that cannot be queued.
	ErrNotReady = errors.New("player: engine not ready")
)

// Event is emitted by an Engine as the external player changes condition.
type Event struct {
	Playback Playback
	Ended    bool
	Err      error
}

// Engine is the provider-facing surface of an embeddable media player.
// Implementations wrap whatever callback-driven boot sequence the provider
// has; the Adapter only talks to a constructed, usable engine.
type Engine interface {
	Load(ref string) error
	Play() error
	Pause() error
	Seek(seconds int) error
	CurrentTime() (int, error)
	Duration() (int, error)
	Close() error
}

// EngineFactory builds an Engine. The factory owns the provider's script
// loading and player construction; it may block until the player is usable.
// Provider-side events (state changes, end of track, errors) are delivered
// on the events channel for the lifetime of the engine.
type EngineFactory func(ctx context.Context, events chan<- Event) (Engine, error)

// Adapter wraps an Engine behind an explicit readiness state machine:
// uninitialized -> initializing -> ready -> destroyed. Operations issued
// before the engine is ready are queued and flushed in call order once
// Initialize completes, so callers never see the provider's boot sequence.
type Adapter struct {
	factory EngineFactory

	// Callbacks are invoked from the event loop goroutine. Set them before
	// calling Initialize.
	OnStateChange func(Playback)
	OnTrackEnd    func()
	OnError       func(error)

	mu       sync.Mutex
	state    int
	engine   Engine
	pending  []func(Engine) error
	playback Playback
	done     chan struct{}
}

func NewAdapter(factory EngineFactory) *Adapter {
	return &Adapter{
		factory:  factory,
		playback: PlaybackPaused,
	}
}

// Initialize constructs the engine. It is idempotent while the adapter is
// initializing or ready, and may be called again after Destroy to bring up
// a fresh engine.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	switch a.state {
	case stateInitializing, stateReady:
		a.mu.Unlock()
		return nil
	}
	a.state = stateInitializing
	a.playback = PlaybackLoading
	events := make(chan Event, 16)
	done := make(chan struct{})
	a.done = done
	a.mu.Unlock()

	eng, err := a.factory(ctx, events)
	if err != nil {
		a.mu.Lock()
		a.state = stateUninitialized
		a.playback = PlaybackError
		a.pending = nil
		a.mu.Unlock()
		a.fireError(fmt.Errorf("player: initialize: %w", err))
		return fmt.Errorf("player: initialize: %w", err)
	}

	a.mu.Lock()
	if a.state == stateDestroyed {
		// Destroy raced the factory; release the engine we just built.
		a.mu.Unlock()
		_ = eng.Close()
		return ErrDestroyed
	}
	a.engine = eng
	a.state = stateReady
	a.playback = PlaybackPaused
	queued := a.pending
	a.pending = nil
	a.mu.Unlock()

	go a.consume(events, done)

	// Flush operations queued across the readiness boundary, in call order.
	for _, op := range queued {
		if err := op(eng); err != nil {
			a.fireError(err)
		}
	}
	return nil
}

// do runs op against the engine, or queues it until the engine is ready.
func (a *Adapter) do(op func(Engine) error) error {
	a.mu.Lock()
	switch a.state {
	case stateDestroyed:
		a.mu.Unlock()
		return ErrDestroyed
	case stateReady:
		eng := a.engine
		a.mu.Unlock()
		return op(eng)
	default:
		a.pending = append(a.pending, op)
		a.mu.Unlock()
		return nil
	}
}

// Load points the engine at a new playable reference.
func (a *Adapter) Load(ref string) error {
	return a.do(func(e Engine) error {
		if err := e.Load(ref); err != nil {
			return fmt.Errorf("player: load %q: %w", ref, err)
		}
		return nil
	})
}

func (a *Adapter) Play() error {
	return a.do(func(e Engine) error { return e.Play() })
}

func (a *Adapter) Pause() error {
	return a.do(func(e Engine) error { return e.Pause() })
}

func (a *Adapter) Seek(seconds int) error {
	return a.do(func(e Engine) error { return e.Seek(seconds) })
}

// CurrentTime reads the engine's playhead. Unlike the write operations it
// cannot be queued; callers poll it only once the adapter is ready.
func (a *Adapter) CurrentTime() (int, error) {
	a.mu.Lock()
	switch a.state {
	case stateDestroyed:
		a.mu.Unlock()
		return 0, ErrDestroyed
	case stateReady:
		eng := a.engine
		a.mu.Unlock()
		return eng.CurrentTime()
	default:
		a.mu.Unlock()
		return 0, ErrNotReady
	}
}

func (a *Adapter) Duration() (int, error) {
	a.mu.Lock()
	switch a.state {
	case stateDestroyed:
		a.mu.Unlock()
		return 0, ErrDestroyed
	case stateReady:
		eng := a.engine
		a.mu.Unlock()
		return eng.Duration()
	default:
		a.mu.Unlock()
		return 0, ErrNotReady
	}
}

func (a *Adapter) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == stateReady
}

// State reports the last playback condition delivered by the engine.
func (a *Adapter) State() Playback {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playback
}

// Destroy releases the engine. Queued operations are dropped and every
// later playback call fails with ErrDestroyed until a fresh Initialize.
func (a *Adapter) Destroy() error {
	a.mu.Lock()
	if a.state == stateDestroyed {
		a.mu.Unlock()
		return nil
	}
	eng := a.engine
	done := a.done
	a.engine = nil
	a.pending = nil
	a.state = stateDestroyed
	a.playback = PlaybackPaused
	a.done = nil
	a.mu.Unlock()

	if done != nil {
		close(done)
	}
	if eng != nil {
		return eng.Close()
	}
	return nil
}

func (a *Adapter) consume(events <-chan Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev := <-events:
			a.dispatch(ev)
		}
	}
}

func (a *Adapter) dispatch(ev Event) {
	if ev.Err != nil {
		a.mu.Lock()
		a.playback = PlaybackError
		a.mu.Unlock()
		a.fireError(ev.Err)
		return
	}
	if ev.Ended {
		if a.OnTrackEnd != nil {
			a.OnTrackEnd()
		}
		return
	}
	a.mu.Lock()
	changed := a.playback != ev.Playback
	a.playback = ev.Playback
	cb := a.OnStateChange
	a.mu.Unlock()
	if changed && cb != nil {
		cb(ev.Playback)
	}
}

func (a *Adapter) fireError(err error) {
	if a.OnError != nil {
		a.OnError(err)
	}
}
