// Package playback owns the process-wide now-playing state and the
// at-most-one-active-source invariant.
package playback

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/lguern/mixtape/internal/media"
	"github.com/lguern/mixtape/internal/playlist"
	"github.com/lguern/mixtape/internal/source"
)

// DefaultPollInterval is the position/end-of-track refresh cadence for
// sources that must be polled.
const DefaultPollInterval = 500 * time.Millisecond

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	mu sync.Mutex

	resolver     SourceResolver
	queue        *playlist.Queue
	pollInterval time.Duration

	// generation tags each RequestPlay. An activation that settles
	// after a newer request started is discarded wholesale, so a slow
	// initialization can never resurrect a stale item.
	generation uint64

	active  source.Source
	current *media.Item
	playing bool
	loading bool

	// watchStop stops the watcher bound to the current activation.
	watchStop chan struct{}

	subs   []*Subscription
	subsMu sync.RWMutex

	done   chan struct{}
	closed bool
}

// New creates a playback coordinator. pollInterval <= 0 uses
// DefaultPollInterval.
func New(resolver SourceResolver, q *playlist.Queue, pollInterval time.Duration) Service {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &serviceImpl{
		resolver:     resolver,
		queue:        q,
		pollInterval: pollInterval,
		done:         make(chan struct{}),
	}
}

// RequestPlay is the single entry point widgets use to play an item.
// The previously active source is deactivated synchronously, in call
// order; activation of the new source settles asynchronously and its
// effects are dropped if a newer request has started by then.
func (s *serviceImpl) RequestPlay(item media.Item) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	prev := s.stateLocked()
	s.deactivateLocked()
	// The old source must not be reachable while the new one loads:
	// a Toggle during the suspension would resurrect it.
	s.active = nil
	s.playing = false
	s.loading = true
	s.mu.Unlock()
	s.publishState(prev)

	go s.activate(gen, item)
}

// activate resolves and starts the source for item, then commits the
// outcome unless a newer request superseded this one.
func (s *serviceImpl) activate(gen uint64, item media.Item) {
	src := s.resolver.Resolve(item)

	// Adapters are shared between items. A request that is already
	// superseded must not touch one at all.
	if !s.stillCurrent(gen) {
		return
	}

	err := src.Activate(context.Background(), item)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		active := s.active
		s.mu.Unlock()
		// Superseded: never let a late activation end up audible. The
		// winning request may have committed this same shared adapter;
		// pausing it then would silence the current item while the
		// coordinator still reports it playing.
		if src != active {
			src.Deactivate()
		}
		return
	}

	prevState := s.stateLocked()
	prevItem := s.current
	prevIndex := s.queue.CurrentIndex()

	s.active = src
	it := item
	s.current = &it
	// A failed activation still records the item: the UI shows it
	// loaded but paused, and Toggle is the retry affordance.
	s.playing = err == nil
	s.loading = false

	queueChanged := false
	if idx := s.queue.IndexOf(item); idx >= 0 {
		queueChanged = idx != prevIndex
		s.queue.JumpTo(idx)
	} else {
		s.queue.Replace(item)
		queueChanged = true
	}
	index := s.queue.CurrentIndex()
	items := s.queue.Items()

	s.startWatchLocked(gen, src)
	s.mu.Unlock()

	s.publishState(prevState)
	if prevItem == nil || !prevItem.Same(item) || prevIndex != index {
		s.each(func(sub *Subscription) {
			sub.sendItem(ItemChange{
				Previous:      prevItem,
				Current:       &it,
				PreviousIndex: prevIndex,
				Index:         index,
			})
		})
	}
	if queueChanged {
		s.each(func(sub *Subscription) {
			sub.sendQueue(QueueChange{Items: items, Index: index})
		})
	}
	if err != nil {
		s.each(func(sub *Subscription) {
			sub.sendError(ErrorEvent{Operation: "play", ItemID: item.ID, Err: err})
		})
	}
}

// Toggle flips play/pause on the current item; no-op when idle or while
// an activation is in flight.
func (s *serviceImpl) Toggle() {
	s.mu.Lock()
	if s.closed || s.current == nil || s.active == nil {
		s.mu.Unlock()
		return
	}
	prev := s.stateLocked()
	s.active.Toggle()
	s.playing = !s.playing
	s.mu.Unlock()
	s.publishState(prev)
}

// PauseAll deactivates the current source unconditionally. It is both
// the user-facing pause and the first step of RequestPlay.
func (s *serviceImpl) PauseAll() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prev := s.stateLocked()
	s.deactivateLocked()
	s.playing = false
	s.mu.Unlock()
	s.publishState(prev)
}

// Stop is an alias of PauseAll that keeps the current item and queue
// for resume. Distinct stop semantics (position reset) are pending
// product clarification.
func (s *serviceImpl) Stop() {
	s.PauseAll()
}

// SeekBy moves the active source by delta; no-op when none is active.
func (s *serviceImpl) SeekBy(delta time.Duration) {
	s.mu.Lock()
	src := s.active
	s.mu.Unlock()
	if src == nil {
		return
	}
	src.SeekBy(delta)
	pos := src.Position()
	s.each(func(sub *Subscription) { sub.sendPosition(pos) })
}

// SeekTo moves the active source to pos; no-op when none is active.
func (s *serviceImpl) SeekTo(pos time.Duration) {
	s.mu.Lock()
	src := s.active
	s.mu.Unlock()
	if src == nil {
		return
	}
	src.SeekTo(pos)
	newPos := src.Position()
	s.each(func(sub *Subscription) { sub.sendPosition(newPos) })
}

// Next plays the following queue entry. Clamped: no-op at the end and
// on empty or singleton queues.
func (s *serviceImpl) Next() {
	s.playNeighbor((*playlist.Queue).Next)
}

// Previous plays the preceding queue entry. Clamped: no-op at the start
// and on empty or singleton queues.
func (s *serviceImpl) Previous() {
	s.playNeighbor((*playlist.Queue).Previous)
}

func (s *serviceImpl) playNeighbor(move func(*playlist.Queue) *media.Item) {
	s.mu.Lock()
	if s.closed || s.queue.Len() <= 1 {
		s.mu.Unlock()
		return
	}
	item := move(s.queue)
	if item == nil {
		s.mu.Unlock()
		return
	}
	it := *item
	s.mu.Unlock()
	s.RequestPlay(it)
}

// ReplaceQueue installs a new queue and starts playing its first item.
func (s *serviceImpl) ReplaceQueue(items ...media.Item) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	first := s.queue.Replace(items...)
	index := s.queue.CurrentIndex()
	snapshot := s.queue.Items()
	s.mu.Unlock()

	s.each(func(sub *Subscription) {
		sub.sendQueue(QueueChange{Items: snapshot, Index: index})
	})
	if first != nil {
		s.RequestPlay(*first)
	}
}

// deactivateLocked stops the watcher for the current activation and
// pauses the active source. Caller holds s.mu.
func (s *serviceImpl) deactivateLocked() {
	if s.watchStop != nil {
		close(s.watchStop)
		s.watchStop = nil
	}
	if s.active != nil {
		s.active.Deactivate()
	}
}

// State returns the coordinator state.
func (s *serviceImpl) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *serviceImpl) stateLocked() State {
	switch {
	case s.current == nil:
		return Idle
	case s.playing:
		return LoadedPlaying
	default:
		return LoadedPaused
	}
}

// IsPlaying returns true iff the active source is in a playing state.
func (s *serviceImpl) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// IsLoading returns true while a RequestPlay activation is in flight.
func (s *serviceImpl) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Current returns a copy of the current item, nil when idle.
func (s *serviceImpl) Current() *media.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	item := *s.current
	return &item
}

// Position returns the active source position, 0 when none.
func (s *serviceImpl) Position() time.Duration {
	s.mu.Lock()
	src := s.active
	s.mu.Unlock()
	if src == nil {
		return 0
	}
	return src.Position()
}

// Duration returns the active source duration, 0 when none.
func (s *serviceImpl) Duration() time.Duration {
	s.mu.Lock()
	src := s.active
	s.mu.Unlock()
	if src == nil {
		return 0
	}
	return src.Duration()
}

// QueueItems returns a copy of the queue.
func (s *serviceImpl) QueueItems() []media.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Items()
}

// QueueIndex returns the queue cursor (-1 if none).
func (s *serviceImpl) QueueIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.CurrentIndex()
}

// QueueLen returns the number of queued items.
func (s *serviceImpl) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// QueueHasNext reports whether Next would move.
func (s *serviceImpl) QueueHasNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len() > 1 && s.queue.HasNext()
}

// QueueHasPrevious reports whether Previous would move.
func (s *serviceImpl) QueueHasPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len() > 1 && s.queue.HasPrevious()
}

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

// each runs fn for every subscriber outside the state lock.
func (s *serviceImpl) each(fn func(*Subscription)) {
	s.subsMu.RLock()
	subs := slices.Clone(s.subs)
	s.subsMu.RUnlock()
	for _, sub := range subs {
		fn(sub)
	}
}

// publishState emits a StateChange if the state moved away from prev.
func (s *serviceImpl) publishState(prev State) {
	s.mu.Lock()
	cur := s.stateLocked()
	s.mu.Unlock()
	if cur == prev {
		return
	}
	s.each(func(sub *Subscription) {
		sub.sendState(StateChange{Previous: prev, Current: cur})
	})
}

// Close shuts down the coordinator and deactivates any active source.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.deactivateLocked()
	s.active = nil
	close(s.done)
	s.mu.Unlock()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return nil
}
