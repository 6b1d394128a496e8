package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/lguern/mixtape/internal/media"
	"github.com/lguern/mixtape/internal/playlist"
	"github.com/lguern/mixtape/internal/source"
)

// fakeSource is a controllable source adapter for coordinator tests.
type fakeSource struct {
	mu sync.Mutex

	playing     bool
	activations int
	deactivated int
	activateErr error
	// release, when non-nil, blocks Activate until closed.
	release chan struct{}

	pos, dur time.Duration
}

func (f *fakeSource) Activate(_ context.Context, _ media.Item) error {
	f.mu.Lock()
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.activations++
	if f.activateErr != nil {
		return f.activateErr
	}
	f.playing = true
	return nil
}

func (f *fakeSource) Deactivate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated++
	f.playing = false
}

func (f *fakeSource) Toggle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = !f.playing
}

func (f *fakeSource) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeSource) SeekBy(delta time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = min(max(f.pos+delta, 0), f.dur)
}

func (f *fakeSource) SeekTo(pos time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = min(max(pos, 0), f.dur)
}

func (f *fakeSource) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeSource) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dur
}

func (f *fakeSource) stats() (activations, deactivated int, playing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activations, f.deactivated, f.playing
}

// finisherSource pushes end-of-track like the direct-audio adapter.
type finisherSource struct {
	fakeSource
	finishedCh chan struct{}
}

func newFinisherSource() *finisherSource {
	return &finisherSource{finishedCh: make(chan struct{}, 1)}
}

func (f *finisherSource) FinishedChan() <-chan struct{} { return f.finishedCh }

func (f *finisherSource) finish() { f.finishedCh <- struct{}{} }

// endedSource reports end of track only by polling, like the embedded
// adapter.
type endedSource struct {
	fakeSource
	endedMu sync.Mutex
	ended   bool
}

func (e *endedSource) Ended() bool {
	e.endedMu.Lock()
	defer e.endedMu.Unlock()
	return e.ended
}

func (e *endedSource) setEnded(v bool) {
	e.endedMu.Lock()
	e.ended = v
	e.endedMu.Unlock()
}

// fakeResolver maps item keys to prepared sources.
type fakeResolver struct {
	mu      sync.Mutex
	sources map[string]source.Source
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{sources: make(map[string]source.Source)}
}

func (r *fakeResolver) add(key string, s source.Source) {
	r.mu.Lock()
	r.sources[key] = s
	r.mu.Unlock()
}

func (r *fakeResolver) Resolve(item media.Item) source.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sources[item.ID]
	if s == nil {
		s = &fakeSource{}
		r.sources[item.ID] = s
	}
	return s
}

func directItem(id string) media.Item {
	return media.Item{Kind: media.KindDirectAudio, ID: id}
}

func embedItem(id string) media.Item {
	return media.Item{Kind: media.KindEmbeddedVideo, ID: id}
}

func newTestService(r SourceResolver) Service {
	return New(r, playlist.New(), 0)
}

func TestRequestPlay_Success(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		src := &fakeSource{}
		r.add("track-1.mp3", src)
		svc := newTestService(r)
		defer svc.Close()

		svc.RequestPlay(directItem("track-1.mp3"))
		synctest.Wait()

		if cur := svc.Current(); cur == nil || cur.ID != "track-1.mp3" {
			t.Fatalf("Current() = %v, want track-1.mp3", cur)
		}
		if !svc.IsPlaying() {
			t.Error("IsPlaying() = false, want true")
		}
		if svc.State() != LoadedPlaying {
			t.Errorf("State() = %v, want Playing", svc.State())
		}
		if svc.QueueLen() != 1 || svc.QueueIndex() != 0 {
			t.Errorf("queue = len %d index %d, want singleton at 0", svc.QueueLen(), svc.QueueIndex())
		}
	})
}

func TestRequestPlay_FailureAbsorbedIntoPausedState(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		src := &fakeSource{activateErr: errors.New("boom")}
		r.add("bad.mp3", src)
		svc := newTestService(r)
		defer svc.Close()
		sub := svc.Subscribe()

		svc.RequestPlay(directItem("bad.mp3"))
		synctest.Wait()

		// Item is recorded as loaded-but-paused, never an error return.
		if cur := svc.Current(); cur == nil || cur.ID != "bad.mp3" {
			t.Fatalf("Current() = %v, want bad.mp3", cur)
		}
		if svc.IsPlaying() {
			t.Error("IsPlaying() = true, want false after failed activation")
		}
		if svc.State() != LoadedPaused {
			t.Errorf("State() = %v, want Paused", svc.State())
		}

		select {
		case e := <-sub.Error:
			if e.Operation != "play" || e.ItemID != "bad.mp3" {
				t.Errorf("ErrorEvent = %+v", e)
			}
		default:
			t.Error("expected an ErrorEvent")
		}
	})
}

func TestRequestPlay_DeactivatesPreviousSource(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		first := &fakeSource{}
		second := &fakeSource{}
		r.add("a", first)
		r.add("b", second)
		svc := newTestService(r)
		defer svc.Close()

		svc.RequestPlay(embedItem("a"))
		synctest.Wait()
		svc.RequestPlay(directItem("b"))
		synctest.Wait()

		_, deact, playing := first.stats()
		if deact == 0 {
			t.Error("previous source was not deactivated")
		}
		if playing {
			t.Error("previous source still playing")
		}
		if !second.Playing() {
			t.Error("new source not playing")
		}
		if cur := svc.Current(); cur == nil || cur.ID != "b" {
			t.Errorf("Current() = %v, want b", cur)
		}
	})
}

func TestRequestPlay_StaleActivationDiscarded(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		slow := &fakeSource{release: make(chan struct{})}
		fast := &fakeSource{}
		r.add("slow", slow)
		r.add("fast", fast)
		svc := newTestService(r)
		defer svc.Close()

		svc.RequestPlay(embedItem("slow"))
		synctest.Wait() // slow activation is now parked
		svc.RequestPlay(directItem("fast"))
		synctest.Wait()

		if cur := svc.Current(); cur == nil || cur.ID != "fast" {
			t.Fatalf("Current() = %v, want fast", cur)
		}

		// The slow activation settles late; its effects must be dropped
		// and its source left deactivated.
		close(slow.release)
		synctest.Wait()

		if cur := svc.Current(); cur == nil || cur.ID != "fast" {
			t.Errorf("Current() = %v after stale settle, want fast", cur)
		}
		if !svc.IsPlaying() {
			t.Error("IsPlaying() = false after stale settle")
		}
		_, deact, playing := slow.stats()
		if playing {
			t.Error("stale source ended up playing")
		}
		if deact == 0 {
			t.Error("stale source was not deactivated on settle")
		}
		if !fast.Playing() {
			t.Error("winning source not playing")
		}
	})
}

// sharedAdapter mimics the factory's shared direct adapter: every item
// activates through the same instance, and activation of one chosen
// item can be parked.
type sharedAdapter struct {
	fakeSource
	slowID  string
	proceed chan struct{}
}

func (a *sharedAdapter) Activate(ctx context.Context, item media.Item) error {
	if item.ID == a.slowID {
		<-a.proceed
	}
	return a.fakeSource.Activate(ctx, item)
}

type sharedResolver struct {
	src *sharedAdapter
}

func (r *sharedResolver) Resolve(media.Item) source.Source { return r.src }

func TestRequestPlay_StaleSettleOnSharedAdapter(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		shared := &sharedAdapter{slowID: "slow", proceed: make(chan struct{})}
		svc := New(&sharedResolver{src: shared}, playlist.New(), 0)
		defer svc.Close()

		svc.RequestPlay(directItem("slow"))
		synctest.Wait() // slow activation parked inside the adapter
		svc.RequestPlay(directItem("fast"))
		synctest.Wait()

		if cur := svc.Current(); cur == nil || cur.ID != "fast" {
			t.Fatalf("Current() = %v, want fast", cur)
		}
		if !svc.IsPlaying() || !shared.Playing() {
			t.Fatal("winning request not playing before stale settle")
		}

		// The stale activation settles on the SAME adapter the winner
		// committed. It must not pause it out from under the winner.
		close(shared.proceed)
		synctest.Wait()

		if !svc.IsPlaying() {
			t.Error("IsPlaying() = false after stale settle")
		}
		if !shared.Playing() {
			t.Error("stale settle paused the adapter the winning request owns")
		}
		if cur := svc.Current(); cur == nil || cur.ID != "fast" {
			t.Errorf("Current() = %v after stale settle, want fast", cur)
		}
		_, deact, _ := shared.stats()
		if deact != 0 {
			t.Errorf("shared adapter deactivated %d times, want 0", deact)
		}
	})
}

func TestRequestPlay_ItemAlreadyInQueueKeepsQueue(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		svc := newTestService(r)
		defer svc.Close()

		svc.ReplaceQueue(directItem("x"), directItem("y"), directItem("z"))
		synctest.Wait()

		svc.RequestPlay(directItem("z"))
		synctest.Wait()

		if svc.QueueLen() != 3 {
			t.Errorf("QueueLen() = %d, want 3 (queue preserved)", svc.QueueLen())
		}
		if svc.QueueIndex() != 2 {
			t.Errorf("QueueIndex() = %d, want 2", svc.QueueIndex())
		}
	})
}

func TestToggle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		src := &fakeSource{}
		r.add("t", src)
		svc := newTestService(r)
		defer svc.Close()

		// No-op when idle
		svc.Toggle()
		if svc.State() != Idle {
			t.Errorf("State() = %v, want Idle", svc.State())
		}

		svc.RequestPlay(directItem("t"))
		synctest.Wait()

		svc.Toggle()
		if svc.IsPlaying() {
			t.Error("IsPlaying() = true after toggle, want false")
		}
		if src.Playing() {
			t.Error("source still natively playing after toggle")
		}

		svc.Toggle()
		if !svc.IsPlaying() {
			t.Error("IsPlaying() = false after second toggle, want true")
		}
	})
}

func TestToggle_NoOpWhileActivationInFlight(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		old := &fakeSource{}
		slow := &fakeSource{release: make(chan struct{})}
		r.add("old", old)
		r.add("slow", slow)
		svc := newTestService(r)
		defer svc.Close()

		svc.RequestPlay(directItem("old"))
		synctest.Wait()
		svc.RequestPlay(embedItem("slow"))
		synctest.Wait()

		// Toggling mid-load must not resurrect the deactivated source.
		svc.Toggle()
		if old.Playing() {
			t.Error("old source resurrected by toggle during load")
		}

		close(slow.release)
		synctest.Wait()
		if !slow.Playing() {
			t.Error("new source not playing after settle")
		}
	})
}

func TestPauseAllAndStop_PreserveCurrentAndQueue(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		svc := newTestService(r)
		defer svc.Close()

		svc.ReplaceQueue(directItem("x"), directItem("y"))
		synctest.Wait()

		svc.PauseAll()
		if svc.IsPlaying() {
			t.Error("IsPlaying() = true after PauseAll")
		}
		if svc.Current() == nil {
			t.Error("Current() = nil after PauseAll, want preserved")
		}

		svc.Stop()
		if svc.Current() == nil || svc.QueueLen() != 2 {
			t.Error("Stop() must preserve current item and queue")
		}
		if svc.State() != LoadedPaused {
			t.Errorf("State() = %v, want Paused", svc.State())
		}
	})
}

func TestNextPrevious_ClampedNoWraparound(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		svc := newTestService(r)
		defer svc.Close()

		svc.ReplaceQueue(directItem("x"), directItem("y"), directItem("z"))
		synctest.Wait()
		svc.Next()
		synctest.Wait()

		if svc.QueueIndex() != 1 {
			t.Fatalf("QueueIndex() = %d, want 1", svc.QueueIndex())
		}

		svc.Next()
		synctest.Wait()
		if cur := svc.Current(); cur == nil || cur.ID != "z" || svc.QueueIndex() != 2 {
			t.Fatalf("after Next: current %v index %d, want z at 2", cur, svc.QueueIndex())
		}
		if !svc.IsPlaying() {
			t.Error("IsPlaying() = false after Next")
		}

		// Clamped at the end: state unchanged.
		svc.Next()
		synctest.Wait()
		if cur := svc.Current(); cur == nil || cur.ID != "z" || svc.QueueIndex() != 2 {
			t.Errorf("Next at end moved: current %v index %d", cur, svc.QueueIndex())
		}

		svc.Previous()
		synctest.Wait()
		svc.Previous()
		synctest.Wait()
		if svc.QueueIndex() != 0 {
			t.Fatalf("QueueIndex() = %d, want 0", svc.QueueIndex())
		}

		// Clamped at the start.
		svc.Previous()
		synctest.Wait()
		if svc.QueueIndex() != 0 {
			t.Errorf("Previous at start moved to %d", svc.QueueIndex())
		}
	})
}

func TestNextPrevious_NoOpOnSingletonQueue(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		src := &fakeSource{}
		r.add("only", src)
		svc := newTestService(r)
		defer svc.Close()

		svc.RequestPlay(directItem("only"))
		synctest.Wait()
		before, _, _ := src.stats()

		svc.Next()
		svc.Previous()
		synctest.Wait()

		after, _, _ := src.stats()
		if after != before {
			t.Errorf("navigation on singleton queue re-activated: %d -> %d", before, after)
		}
	})
}

func TestSeek_NoOpWhenIdle(t *testing.T) {
	r := newFakeResolver()
	svc := newTestService(r)
	defer svc.Close()

	svc.SeekBy(10 * time.Second)
	svc.SeekTo(5 * time.Second)

	if svc.Position() != 0 {
		t.Errorf("Position() = %v, want 0", svc.Position())
	}
}

func TestSeek_DelegatesAndClamps(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		src := &fakeSource{dur: 120 * time.Second}
		r.add("s", src)
		svc := newTestService(r)
		defer svc.Close()

		svc.RequestPlay(directItem("s"))
		synctest.Wait()

		svc.SeekTo(-5 * time.Second)
		if got := svc.Position(); got != 0 {
			t.Errorf("Position() = %v after SeekTo(-5s), want 0", got)
		}

		svc.SeekTo(500 * time.Second)
		if got := svc.Position(); got != 120*time.Second {
			t.Errorf("Position() = %v after SeekTo(500s), want 120s", got)
		}
	})
}

func TestFinishedPush_AdvancesQueue(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		first := newFinisherSource()
		r.add("x", first)
		svc := newTestService(r)
		defer svc.Close()

		svc.ReplaceQueue(directItem("x"), directItem("y"))
		synctest.Wait()

		first.finish()
		synctest.Wait()

		if cur := svc.Current(); cur == nil || cur.ID != "y" {
			t.Fatalf("Current() = %v after finish, want y", cur)
		}
		if !svc.IsPlaying() {
			t.Error("IsPlaying() = false after auto-advance")
		}
	})
}

func TestFinishedPush_LastItemSettlesPaused(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		only := newFinisherSource()
		r.add("x", only)
		svc := newTestService(r)
		defer svc.Close()

		svc.RequestPlay(directItem("x"))
		synctest.Wait()

		only.finish()
		synctest.Wait()

		if svc.IsPlaying() {
			t.Error("IsPlaying() = true after last track finished")
		}
		if cur := svc.Current(); cur == nil || cur.ID != "x" {
			t.Errorf("Current() = %v, want x preserved", cur)
		}
	})
}

func TestPolledEnd_AdvancesQueue(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		first := &endedSource{}
		r.add("v1", first)
		svc := newTestService(r)
		defer svc.Close()

		svc.ReplaceQueue(embedItem("v1"), embedItem("v2"))
		synctest.Wait()

		first.setEnded(true)
		time.Sleep(DefaultPollInterval + 50*time.Millisecond)
		synctest.Wait()

		if cur := svc.Current(); cur == nil || cur.ID != "v2" {
			t.Fatalf("Current() = %v after polled end, want v2", cur)
		}
	})
}

func TestPolling_StopsOnDeactivation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		first := &endedSource{}
		r.add("v1", first)
		svc := newTestService(r)
		defer svc.Close()

		svc.ReplaceQueue(embedItem("v1"), embedItem("v2"))
		synctest.Wait()
		svc.PauseAll()

		// An end observed after deactivation must not advance anything:
		// the watcher bound to the activation is gone.
		first.setEnded(true)
		time.Sleep(2 * DefaultPollInterval)
		synctest.Wait()

		if cur := svc.Current(); cur == nil || cur.ID != "v1" {
			t.Errorf("Current() = %v, want v1 (no advance after deactivation)", cur)
		}
		if svc.IsPlaying() {
			t.Error("IsPlaying() = true, want false")
		}
	})
}

func TestAtMostOneActive_AcrossRequests(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		sources := []*fakeSource{{}, {}, {}}
		r.add("a", sources[0])
		r.add("b", sources[1])
		r.add("c", sources[2])
		svc := newTestService(r)
		defer svc.Close()

		for _, id := range []string{"a", "b", "c", "b", "a"} {
			svc.RequestPlay(directItem(id))
			synctest.Wait()

			playing := 0
			for _, src := range sources {
				if src.Playing() {
					playing++
				}
			}
			if playing > 1 {
				t.Fatalf("%d sources playing after RequestPlay(%s), want at most 1", playing, id)
			}
		}
	})
}

func TestClose_StopsEverything(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		r := newFakeResolver()
		src := &fakeSource{}
		r.add("x", src)
		svc := newTestService(r)

		svc.RequestPlay(directItem("x"))
		synctest.Wait()

		sub := svc.Subscribe()
		if err := svc.Close(); err != nil {
			t.Fatalf("Close() = %v", err)
		}
		<-sub.Done

		if src.Playing() {
			t.Error("source still playing after Close")
		}

		// Operations after Close are no-ops.
		svc.RequestPlay(directItem("x"))
		synctest.Wait()
		if svc.IsPlaying() {
			t.Error("RequestPlay after Close had effect")
		}
	})
}
