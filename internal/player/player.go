// Package player is the direct-audio engine: it decodes a streamable
// resource (local file or http URL) and plays it through the shared
// speaker.
package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

const sampleRate = beep.SampleRate(44100)

var speakerOnce sync.Once

// Player plays one directly streamable audio resource at a time.
// All methods are safe for concurrent use.
type Player struct {
	mu sync.Mutex

	state      State
	ctrl       *beep.Ctrl
	streamer   beep.StreamSeekCloser
	format     beep.Format
	closer     func() error
	resource   string
	finishedCh chan struct{}
}

// New creates a stopped engine.
func New() *Player {
	return &Player{
		state:      Stopped,
		finishedCh: make(chan struct{}, 1),
	}
}

// Play stops any current playback and starts the given resource.
// The resource is a local path or an http(s) URL; format is derived
// from its extension (mp3, flac, wav, ogg).
func (p *Player) Play(resource string) error {
	p.Stop()

	src, err := openResource(resource)
	if err != nil {
		return err
	}

	streamer, format, err := decode(src, resource)
	if err != nil {
		src.Close()
		return fmt.Errorf("decode %s: %w", resource, err)
	}

	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	})
	if initErr != nil {
		streamer.Close()
		src.Close()
		return initErr
	}

	p.mu.Lock()
	p.streamer = streamer
	p.format = format
	p.closer = src.Close
	p.resource = resource
	p.ctrl = &beep.Ctrl{Streamer: resampled(streamer, format), Paused: false}
	p.state = Playing

	// Drain any stale finish signal from the previous track.
	select {
	case <-p.finishedCh:
	default:
	}

	ctrl := p.ctrl
	p.mu.Unlock()

	// The callback fires inside the speaker mixer; hop to a goroutine so
	// signalFinished can take p.mu without holding the speaker lock.
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		go p.signalFinished(ctrl)
	})))

	return nil
}

// resampled adapts the decoded stream to the speaker sample rate.
func resampled(s beep.Streamer, format beep.Format) beep.Streamer {
	if format.SampleRate == sampleRate {
		return s
	}
	return beep.Resample(4, format.SampleRate, sampleRate, s)
}

// signalFinished reports natural end of track. Ignored when the engine
// has already moved on to another stream.
func (p *Player) signalFinished(ctrl *beep.Ctrl) {
	p.mu.Lock()
	stale := p.ctrl != ctrl
	if !stale {
		p.state = Stopped
	}
	p.mu.Unlock()
	if stale {
		return
	}
	select {
	case p.finishedCh <- struct{}{}:
	default:
	}
}

// State returns the current engine state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Resource returns the resource currently loaded ("" when stopped).
func (p *Player) Resource() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resource
}

// FinishedChan returns the channel signalled when a track ends on its own.
func (p *Player) FinishedChan() <-chan struct{} {
	return p.finishedCh
}
