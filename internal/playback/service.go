package playback

import (
	"time"

	"github.com/lguern/mixtape/internal/media"
	"github.com/lguern/mixtape/internal/source"
)

// Service is the process-wide now-playing coordinator. It owns the
// current item, the play flag, the queue and its cursor, and enforces
// that at most one source is ever active.
//
// No operation returns a playback error: activation failures are
// absorbed into the LoadedPaused state and an ErrorEvent.
type Service interface {
	// Playback control
	RequestPlay(item media.Item) // single entry point widgets use
	Toggle()
	PauseAll()
	Stop() // alias of PauseAll; current item and queue are preserved
	SeekBy(delta time.Duration)
	SeekTo(pos time.Duration)
	Next()
	Previous()

	// Queue control
	ReplaceQueue(items ...media.Item)

	// State queries
	State() State
	IsPlaying() bool
	IsLoading() bool
	Current() *media.Item
	Position() time.Duration
	Duration() time.Duration

	// Queue queries
	QueueItems() []media.Item
	QueueIndex() int
	QueueLen() int
	QueueHasNext() bool
	QueueHasPrevious() bool

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}

// SourceResolver creates or returns the cached source adapter for an
// item. Adapters for the same embedded media identifier must share one
// underlying player.
type SourceResolver interface {
	Resolve(item media.Item) source.Source
}
