package playback

import (
	"time"

	"github.com/lguern/mixtape/internal/source"
)

// startWatchLocked starts the watcher goroutine for a fresh activation.
// Caller holds s.mu.
func (s *serviceImpl) startWatchLocked(gen uint64, src source.Source) {
	stop := make(chan struct{})
	s.watchStop = stop
	go s.watch(gen, src, stop)
}

// watch follows one activation until it is stopped or superseded. It
// relays pushed end-of-track notifications, and polls position and
// native state for sources without a push channel. The loop exits as
// soon as its activation is no longer current, so a deactivated source
// never keeps a timer alive.
func (s *serviceImpl) watch(gen uint64, src source.Source, stop chan struct{}) {
	var finished <-chan struct{}
	if f, ok := src.(source.Finisher); ok {
		finished = f.FinishedChan()
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-s.done:
			return
		case <-finished:
			s.handleFinished(gen)
			return
		case <-ticker.C:
			if !s.stillCurrent(gen) {
				return
			}
			pos := src.Position()
			s.each(func(sub *Subscription) { sub.sendPosition(pos) })
			if er, ok := src.(source.EndReporter); ok && er.Ended() {
				s.handleFinished(gen)
				return
			}
		}
	}
}

func (s *serviceImpl) stillCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.generation
}

// handleFinished reacts to the current item ending: advance to the next
// queue entry when there is one, otherwise settle into LoadedPaused.
func (s *serviceImpl) handleFinished(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	if s.queue.HasNext() {
		next := *s.queue.Next()
		s.mu.Unlock()
		s.RequestPlay(next)
		return
	}
	prev := s.stateLocked()
	s.playing = false
	s.watchStop = nil // this watcher is exiting
	s.mu.Unlock()
	s.publishState(prev)
}
