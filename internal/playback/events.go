package playback

import (
	"time"

	"github.com/lguern/mixtape/internal/media"
)

// StateChange is emitted when the coordinator state changes.
type StateChange struct {
	Previous State
	Current  State
}

// ItemChange is emitted when playback settles on a different item.
//
// Emitted by RequestPlay (and therefore Next/Previous and automatic
// advance on end of track) once activation settles. A RequestPlay
// superseded by a newer one never emits: the stale activation's effects
// are discarded wholesale.
type ItemChange struct {
	Previous      *media.Item
	Current       *media.Item
	PreviousIndex int
	Index         int
}

// PositionChange is emitted on seeks and on poll ticks while an
// embedded source is active.
type PositionChange struct {
	Position time.Duration
}

// QueueChange is emitted when the queue contents change.
type QueueChange struct {
	Items []media.Item
	Index int
}

// ErrorEvent is emitted when an activation fails. RequestPlay never
// returns the error to its caller; this event and the LoadedPaused
// state are the only ways a failure is surfaced.
type ErrorEvent struct {
	Operation string // e.g. "play"
	ItemID    string
	Err       error
}
