package source

import (
	"context"
	"sync"
	"time"

	"github.com/lguern/mixtape/internal/bridge"
	"github.com/lguern/mixtape/internal/media"
)

// Embed adapts one embedded-video media identifier to the Source
// contract through the bridge registry. The underlying third-party
// player is shared by every adapter for the same identifier and is only
// ever paused, never torn down, on deactivation.
type Embed struct {
	registry *bridge.Registry
	mediaID  string

	mu    sync.Mutex
	state bridge.PlayerState

	unsubscribe func()
}

// NewEmbed creates the adapter for mediaID and starts tracking its
// native state.
func NewEmbed(registry *bridge.Registry, mediaID string) *Embed {
	e := &Embed{
		registry: registry,
		mediaID:  mediaID,
		state:    bridge.StateUnstarted,
	}
	e.unsubscribe = registry.Subscribe(mediaID, e.onEvent)
	return e
}

func (e *Embed) onEvent(ev bridge.Event) {
	if ev.Type != bridge.EventState {
		return
	}
	e.mu.Lock()
	e.state = ev.State
	e.mu.Unlock()
}

func (e *Embed) nativeState() bridge.PlayerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Activate ensures the underlying player exists, then requests play.
func (e *Embed) Activate(ctx context.Context, _ media.Item) error {
	if err := e.registry.Ensure(ctx, e.mediaID); err != nil {
		return err
	}
	e.registry.Play(e.mediaID)
	return nil
}

// Deactivate pauses the underlying player, keeping it cached.
func (e *Embed) Deactivate() {
	e.registry.Pause(e.mediaID)
}

// Toggle flips play/pause based on the tracked native state.
func (e *Embed) Toggle() {
	if e.nativeState() == bridge.StatePlaying {
		e.registry.Pause(e.mediaID)
		return
	}
	e.registry.Play(e.mediaID)
}

// Playing reports whether the underlying player is natively playing.
func (e *Embed) Playing() bool {
	return e.nativeState() == bridge.StatePlaying
}

// Ended reports whether the underlying player reached end of media.
// There is no cross-backend push for this; the coordinator polls it.
func (e *Embed) Ended() bool {
	return e.nativeState() == bridge.StateEnded
}

// SeekBy moves by delta, clamped to [0, duration].
func (e *Embed) SeekBy(delta time.Duration) {
	pos, _ := e.registry.Times(e.mediaID)
	e.SeekTo(pos + delta)
}

// SeekTo moves to pos, clamped to [0, duration]. While the player is
// not yet reporting a duration there is nothing to clamp against, so
// the seek is ignored.
func (e *Embed) SeekTo(pos time.Duration) {
	_, dur := e.registry.Times(e.mediaID)
	if dur <= 0 {
		return
	}
	e.registry.SeekTo(e.mediaID, min(max(pos, 0), dur))
}

// Position returns the underlying player position, 0 if unknown.
func (e *Embed) Position() time.Duration {
	pos, _ := e.registry.Times(e.mediaID)
	return pos
}

// Duration returns the underlying media duration, 0 if unknown.
func (e *Embed) Duration() time.Duration {
	_, dur := e.registry.Times(e.mediaID)
	return dur
}

// Release drops the adapter's event subscription. The underlying player
// stays cached in the registry.
func (e *Embed) Release() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

var (
	_ Source      = (*Embed)(nil)
	_ EndReporter = (*Embed)(nil)
)
