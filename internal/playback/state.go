package playback

// State is the coordinator state machine.
//
// Transitions:
//   - Idle → LoadedPlaying: successful RequestPlay
//   - Idle → LoadedPaused: failed RequestPlay (item recorded, not playing)
//   - Loaded* → LoadedPlaying: Toggle, RequestPlay, Next, Previous
//   - LoadedPlaying → LoadedPaused: Toggle, PauseAll, Stop
//
// There is no terminal state; the coordinator lives for the process
// session.
type State int

const (
	// Idle means nothing has ever been played.
	Idle State = iota
	// LoadedPaused means an item is current but not playing. This is
	// also where a failed activation lands: the item stays loaded so
	// the user can retry with Toggle.
	LoadedPaused
	// LoadedPlaying means the current item's source is active.
	LoadedPlaying
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case LoadedPaused:
		return "Paused"
	case LoadedPlaying:
		return "Playing"
	default:
		return "Unknown"
	}
}

// IsLoaded returns true when an item is current.
func (s State) IsLoaded() bool {
	return s == LoadedPaused || s == LoadedPlaying
}
