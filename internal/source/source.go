// Package source normalizes the two playback backends behind one
// transport contract consumed by the playback coordinator.
//
// The coordinator is the only caller of Activate/Deactivate; widgets
// never reach a backend directly, which is what keeps the
// at-most-one-active invariant enforceable in a single place.
package source

import (
	"context"
	"time"

	"github.com/lguern/mixtape/internal/media"
)

// Source is the capability contract both backends satisfy. Every method
// is mandatory; a backend that is not ready yet answers with no-ops and
// zero values instead of errors.
type Source interface {
	// Activate prepares the backing resource and requests playback.
	// It returns once playback has been requested, not necessarily
	// once audio is audible.
	Activate(ctx context.Context, item media.Item) error
	// Deactivate pauses the backing resource without destroying any
	// cached backend state.
	Deactivate()
	// Toggle flips play/pause based on the backend's native state.
	Toggle()
	// Playing reports whether the backend is natively playing.
	Playing() bool
	// SeekBy moves by delta, clamped to [0, duration].
	SeekBy(delta time.Duration)
	// SeekTo moves to pos, clamped to [0, duration].
	SeekTo(pos time.Duration)
	// Position is the best-effort current position, 0 if unknown.
	Position() time.Duration
	// Duration is the best-effort total duration, 0 if unknown.
	Duration() time.Duration
}

// Finisher is implemented by sources whose backend pushes an
// end-of-track notification.
type Finisher interface {
	FinishedChan() <-chan struct{}
}

// EndReporter is implemented by sources whose end of track can only be
// observed by polling native state.
type EndReporter interface {
	Ended() bool
}
