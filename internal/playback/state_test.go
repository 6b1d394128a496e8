package playback

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "Idle"},
		{LoadedPaused, "Paused"},
		{LoadedPlaying, "Playing"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestState_IsLoaded(t *testing.T) {
	if Idle.IsLoaded() {
		t.Error("Idle.IsLoaded() = true")
	}
	if !LoadedPaused.IsLoaded() || !LoadedPlaying.IsLoaded() {
		t.Error("loaded states should report IsLoaded")
	}
}
