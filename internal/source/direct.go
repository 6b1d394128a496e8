package source

import (
	"context"
	"time"

	"github.com/lguern/mixtape/internal/media"
	"github.com/lguern/mixtape/internal/player"
)

// Direct adapts the in-process audio engine to the Source contract.
// All direct-audio items share one engine; activating an item loads its
// resource into it.
type Direct struct {
	engine player.Interface
}

// NewDirect wraps the audio engine.
func NewDirect(engine player.Interface) *Direct {
	return &Direct{engine: engine}
}

// Activate loads and plays the item's resource.
func (d *Direct) Activate(_ context.Context, item media.Item) error {
	return d.engine.Play(item.ID)
}

// Deactivate pauses the engine; the loaded stream is kept.
func (d *Direct) Deactivate() {
	d.engine.Pause()
}

// Toggle flips play/pause on the engine.
func (d *Direct) Toggle() {
	d.engine.Toggle()
}

// Playing reports whether the engine is natively playing.
func (d *Direct) Playing() bool {
	return d.engine.State() == player.Playing
}

// SeekBy moves by delta; the engine clamps to the stream.
func (d *Direct) SeekBy(delta time.Duration) {
	d.engine.Seek(delta)
}

// SeekTo moves to pos; the engine clamps to the stream.
func (d *Direct) SeekTo(pos time.Duration) {
	d.engine.SeekTo(pos)
}

// Position returns the engine position.
func (d *Direct) Position() time.Duration {
	return d.engine.Position()
}

// Duration returns the engine duration.
func (d *Direct) Duration() time.Duration {
	return d.engine.Duration()
}

// FinishedChan surfaces the engine's native end-of-track push.
func (d *Direct) FinishedChan() <-chan struct{} {
	return d.engine.FinishedChan()
}

var (
	_ Source   = (*Direct)(nil)
	_ Finisher = (*Direct)(nil)
)
