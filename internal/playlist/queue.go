// Package playlist holds the ordered play queue consumed by the playback
// coordinator.
package playlist

import (
	"slices"

	"github.com/lguern/mixtape/internal/media"
)

// Queue is an insertion-ordered sequence of items with a cursor.
// The cursor is -1 when nothing has been selected yet; otherwise it is
// always a valid index. Navigation clamps at both ends (no wraparound).
type Queue struct {
	items        []media.Item
	currentIndex int
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{currentIndex: -1}
}

// Current returns the item under the cursor, or nil if none.
func (q *Queue) Current() *media.Item {
	if q.currentIndex < 0 || q.currentIndex >= len(q.items) {
		return nil
	}
	item := q.items[q.currentIndex]
	return &item
}

// CurrentIndex returns the cursor position (-1 if none).
func (q *Queue) CurrentIndex() int {
	return q.currentIndex
}

// Len returns the number of items in the queue.
func (q *Queue) Len() int {
	return len(q.items)
}

// IsEmpty returns true if the queue has no items.
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}

// Items returns a copy of all items in the queue.
func (q *Queue) Items() []media.Item {
	return slices.Clone(q.items)
}

// HasNext returns true if there is an item after the cursor.
func (q *Queue) HasNext() bool {
	return q.currentIndex < len(q.items)-1
}

// HasPrevious returns true if there is an item before the cursor.
func (q *Queue) HasPrevious() bool {
	return q.currentIndex > 0
}

// Next advances the cursor and returns the new current item.
// Returns nil without moving when already at the last item.
func (q *Queue) Next() *media.Item {
	if !q.HasNext() {
		return nil
	}
	q.currentIndex++
	return q.Current()
}

// Previous moves the cursor back and returns the new current item.
// Returns nil without moving when already at the first item.
func (q *Queue) Previous() *media.Item {
	if !q.HasPrevious() {
		return nil
	}
	q.currentIndex--
	return q.Current()
}

// JumpTo sets the cursor to index and returns the item there,
// or nil if the index is out of range.
func (q *Queue) JumpTo(index int) *media.Item {
	if index < 0 || index >= len(q.items) {
		return nil
	}
	q.currentIndex = index
	return q.Current()
}

// IndexOf returns the position of the first item referencing the same
// playable unit, or -1 if absent.
func (q *Queue) IndexOf(item media.Item) int {
	return slices.IndexFunc(q.items, item.Same)
}

// Add appends items without moving the cursor.
func (q *Queue) Add(items ...media.Item) {
	q.items = append(q.items, items...)
}

// Replace clears the queue, adds items and sets the cursor to 0.
// Returns the first item, or nil when called with nothing.
func (q *Queue) Replace(items ...media.Item) *media.Item {
	q.items = q.items[:0]
	q.currentIndex = -1
	if len(items) == 0 {
		return nil
	}
	q.items = append(q.items, items...)
	q.currentIndex = 0
	return q.Current()
}

// Clear removes all items and resets the cursor.
func (q *Queue) Clear() {
	q.items = nil
	q.currentIndex = -1
}
