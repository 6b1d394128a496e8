// Package bridge manages third-party embeddable player instances, keyed
// by media identifier. It loads the player runtime once, constructs at
// most one hidden player per identifier, and exposes a minimal transport
// surface plus an event subscription channel.
//
// Absence of a player is never an error: transport calls on an unknown
// identifier are no-ops and time reads return zeros.
package bridge

import (
	"context"
	"sync"
	"time"
)

// PlayerState is the native state code reported by an underlying player.
type PlayerState int

const (
	StateUnstarted PlayerState = iota
	StatePlaying
	StatePaused
	StateBuffering
	StateEnded
)

// String returns the state name.
func (s PlayerState) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// EventType discriminates bridge events.
type EventType int

const (
	// EventReady fires once when a player finishes initializing.
	EventReady EventType = iota
	// EventState carries a native state code change.
	EventState
)

// Event is delivered to subscribers of a media identifier.
type Event struct {
	Type  EventType
	State PlayerState
}

// Player is one underlying third-party player instance.
type Player interface {
	Play()
	Pause()
	SeekTo(pos time.Duration)
	// Times returns the current position and duration, zeros when the
	// player is not yet reporting valid values.
	Times() (pos, dur time.Duration)
	Close() error
}

// Runtime abstracts the third-party player runtime. Load is the one-time
// setup shared by every player; NewPlayer constructs one hidden player
// bound to a media identifier, delivering its events through onEvent.
type Runtime interface {
	Load(ctx context.Context) error
	NewPlayer(ctx context.Context, mediaID string, onEvent func(Event)) (Player, error)
}

// Registry owns all player instances for one process. Construct it
// explicitly and inject it; it is not an ambient global.
type Registry struct {
	runtime Runtime

	mu      sync.Mutex
	entries map[string]*entry
	loaded  bool
	loadErr error
	closed  bool
}

type entry struct {
	mediaID string
	started bool

	// ready is closed once initialization settles; readyErr is set
	// before the close and never written afterwards.
	ready    chan struct{}
	readyErr error

	player Player

	subs    map[int]func(Event)
	nextSub int
}

// NewRegistry creates a registry driving players through runtime.
func NewRegistry(runtime Runtime) *Registry {
	return &Registry{
		runtime: runtime,
		entries: make(map[string]*entry),
	}
}

// Ensure lazily constructs the player for mediaID and waits for it to
// become ready. It is idempotent: concurrent callers for the same
// identifier share one initialization, and at most one player ever
// exists per identifier for the registry lifetime.
//
// Initialization is never aborted once started; cancelling ctx only
// stops waiting for it.
func (r *Registry) Ensure(ctx context.Context, mediaID string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return context.Canceled
	}
	e := r.entryLocked(mediaID)
	if !e.started {
		e.started = true
		go r.initPlayer(e)
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ready:
		return e.readyErr
	}
}

// entryLocked returns the entry for mediaID, creating the skeleton if
// needed. The entry is registered before anyone can observe it
// half-built. Caller holds r.mu.
func (r *Registry) entryLocked(mediaID string) *entry {
	e := r.entries[mediaID]
	if e == nil {
		e = &entry{
			mediaID: mediaID,
			ready:   make(chan struct{}),
			subs:    make(map[int]func(Event)),
		}
		r.entries[mediaID] = e
	}
	return e
}

// initPlayer performs the one-time runtime load and player construction.
// Runs detached from any caller context: a slow load outlives the
// request that triggered it.
func (r *Registry) initPlayer(e *entry) {
	ctx := context.Background()

	r.mu.Lock()
	loaded, loadErr := r.loaded, r.loadErr
	r.mu.Unlock()

	if !loaded {
		loadErr = r.runtime.Load(ctx)
		r.mu.Lock()
		r.loaded, r.loadErr = true, loadErr
		r.mu.Unlock()
	}
	if loadErr != nil {
		r.settle(e, nil, loadErr)
		return
	}

	p, err := r.runtime.NewPlayer(ctx, e.mediaID, func(ev Event) {
		r.dispatch(e, ev)
	})
	r.settle(e, p, err)
}

// settle records the initialization outcome and notifies waiters and
// subscribers.
func (r *Registry) settle(e *entry, p Player, err error) {
	r.mu.Lock()
	e.player = p
	e.readyErr = err
	closed := r.closed
	r.mu.Unlock()
	close(e.ready)

	if closed && p != nil {
		_ = p.Close()
		return
	}
	if err == nil {
		r.dispatch(e, Event{Type: EventReady})
	}
}

// dispatch fans an event out to the entry's subscribers.
// Callbacks run outside the registry lock.
func (r *Registry) dispatch(e *entry, ev Event) {
	r.mu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribe registers fn for events of mediaID and returns an
// unsubscribe function. Subscribing does not start initialization.
func (r *Registry) Subscribe(mediaID string, fn func(Event)) func() {
	r.mu.Lock()
	e := r.entryLocked(mediaID)
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(e.subs, id)
		r.mu.Unlock()
	}
}

// Play forwards to the player for mediaID, no-op if absent or unready.
func (r *Registry) Play(mediaID string) {
	if p := r.playerFor(mediaID); p != nil {
		p.Play()
	}
}

// Pause forwards to the player for mediaID, no-op if absent or unready.
func (r *Registry) Pause(mediaID string) {
	if p := r.playerFor(mediaID); p != nil {
		p.Pause()
	}
}

// SeekTo forwards to the player for mediaID, no-op if absent or unready.
func (r *Registry) SeekTo(mediaID string, pos time.Duration) {
	if p := r.playerFor(mediaID); p != nil {
		p.SeekTo(pos)
	}
}

// Times returns the position and duration for mediaID, zeros if the
// player is absent or not yet reporting valid values.
func (r *Registry) Times(mediaID string) (pos, dur time.Duration) {
	if p := r.playerFor(mediaID); p != nil {
		return p.Times()
	}
	return 0, 0
}

func (r *Registry) playerFor(mediaID string) Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[mediaID]
	if e == nil {
		return nil
	}
	return e.player
}

// Close tears down every constructed player. Entries still initializing
// are closed when their initialization settles.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	players := make([]Player, 0, len(r.entries))
	for _, e := range r.entries {
		if e.player != nil {
			players = append(players, e.player)
		}
	}
	r.mu.Unlock()

	for _, p := range players {
		_ = p.Close()
	}
	return nil
}
