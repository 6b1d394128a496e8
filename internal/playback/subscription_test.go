package playback

import (
	"testing"
	"time"
)

func TestSubscription_NonBlockingWhenFull(t *testing.T) {
	sub := newSubscription()

	// Fill the buffer and keep sending; none of these may block.
	for i := range eventBufferSize + 5 {
		sub.sendPosition(time.Duration(i) * time.Second)
	}

	// Only the buffered events survive.
	count := 0
	for {
		select {
		case <-sub.PositionChanged:
			count++
			continue
		default:
		}
		break
	}
	if count != eventBufferSize {
		t.Errorf("buffered events = %d, want %d", count, eventBufferSize)
	}
}

func TestSubscription_DoneClosedOnClose(t *testing.T) {
	sub := newSubscription()
	sub.close()

	select {
	case <-sub.Done:
	default:
		t.Error("Done not closed")
	}
}

func TestSubscription_EventChannelsIndependent(t *testing.T) {
	sub := newSubscription()

	sub.sendState(StateChange{Previous: Idle, Current: LoadedPlaying})
	sub.sendError(ErrorEvent{Operation: "play", ItemID: "x"})

	select {
	case e := <-sub.StateChanged:
		if e.Current != LoadedPlaying {
			t.Errorf("state event = %+v", e)
		}
	default:
		t.Error("state event missing")
	}
	select {
	case e := <-sub.Error:
		if e.ItemID != "x" {
			t.Errorf("error event = %+v", e)
		}
	default:
		t.Error("error event missing")
	}
	select {
	case <-sub.ItemChanged:
		t.Error("unexpected item event")
	default:
	}
}
