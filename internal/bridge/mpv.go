package bridge

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	socketDialTimeout = 10 * time.Second
	mediaLoadTimeout  = 60 * time.Second
)

// MPVConfig configures the mpv-backed player runtime.
type MPVConfig struct {
	// Binary is the mpv executable name or path. Defaults to "mpv".
	Binary string
	// SocketDir is where IPC sockets are created. Defaults to the
	// system temp directory.
	SocketDir string
}

func (c MPVConfig) withDefaults() MPVConfig {
	if c.Binary == "" {
		c.Binary = "mpv"
	}
	if c.SocketDir == "" {
		c.SocketDir = os.TempDir()
	}
	return c
}

// mpvRuntime drives hidden mpv processes as embeddable players. The
// media identifier is resolved through mpv's ytdl hook, so the process
// plays only the audio track of the embedded video.
type mpvRuntime struct {
	cfg MPVConfig
}

// NewMPVRuntime creates a Runtime backed by mpv subprocesses.
func NewMPVRuntime(cfg MPVConfig) Runtime {
	return &mpvRuntime{cfg: cfg.withDefaults()}
}

// Load verifies the mpv binary is available. This is the one-time
// runtime setup shared by all players.
func (r *mpvRuntime) Load(_ context.Context) error {
	if _, err := exec.LookPath(r.cfg.Binary); err != nil {
		return fmt.Errorf("embed player runtime unavailable: %w", err)
	}
	return os.MkdirAll(r.cfg.SocketDir, 0o755)
}

// NewPlayer spawns one hidden mpv process bound to mediaID, paused, and
// waits for the media to load.
func (r *mpvRuntime) NewPlayer(ctx context.Context, mediaID string, onEvent func(Event)) (Player, error) {
	sock := filepath.Join(r.cfg.SocketDir,
		fmt.Sprintf("mixtape-%d-%s.sock", os.Getpid(), sanitizeID(mediaID)))

	cmd := exec.Command(r.cfg.Binary,
		"--no-video",
		"--really-quiet",
		"--no-terminal",
		"--pause",
		"--keep-open=yes",
		"--ytdl-format=bestaudio/best",
		"--input-ipc-server="+sock,
		"ytdl://"+mediaID,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start embed player: %w", err)
	}

	p := &mpvPlayer{
		mediaID:  mediaID,
		cmd:      cmd,
		sock:     sock,
		onEvent:  onEvent,
		paused:   true,
		state:    StateUnstarted,
		loadedCh: make(chan struct{}),
	}

	conn, err := dialWithRetry(ctx, sock)
	if err != nil {
		p.kill()
		return nil, fmt.Errorf("connect embed player: %w", err)
	}
	p.conn = newIPCConn(conn, p.handleIPCEvent)

	if err := p.init(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// dialWithRetry polls the IPC socket until mpv has created it.
func dialWithRetry(ctx context.Context, sock string) (net.Conn, error) {
	deadline := time.Now().Add(socketDialTimeout)
	for {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// mpvPlayer is one hidden mpv process addressed over JSON IPC.
type mpvPlayer struct {
	mediaID string
	cmd     *exec.Cmd
	sock    string
	conn    *ipcConn
	onEvent func(Event)

	mu     sync.Mutex
	paused bool
	eof    bool
	state  PlayerState

	loadedCh chan struct{}
	loaded   sync.Once
}

// init subscribes to the properties that drive state events and waits
// for the media to finish loading.
func (p *mpvPlayer) init(ctx context.Context) error {
	if err := p.conn.observe(1, "pause"); err != nil {
		return err
	}
	if err := p.conn.observe(2, "eof-reached"); err != nil {
		return err
	}

	select {
	case <-p.loadedCh:
		return nil
	case <-p.conn.Done():
		return fmt.Errorf("embed player exited while loading %s", p.mediaID)
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mediaLoadTimeout):
		return fmt.Errorf("embed player timed out loading %s", p.mediaID)
	}
}

// handleIPCEvent translates raw mpv events into bridge state events.
func (p *mpvPlayer) handleIPCEvent(msg ipcMessage) {
	switch msg.Event {
	case "file-loaded":
		p.loaded.Do(func() { close(p.loadedCh) })
	case "property-change":
		p.handlePropertyChange(msg)
	case "end-file":
		p.updateState(func() { p.eof = true })
	}
}

func (p *mpvPlayer) handlePropertyChange(msg ipcMessage) {
	switch msg.Name {
	case "pause":
		paused := string(msg.Data) == "true"
		p.updateState(func() { p.paused = paused })
	case "eof-reached":
		eof := string(msg.Data) == "true"
		p.updateState(func() { p.eof = eof })
	}
}

// updateState applies a mutation and emits a state event on change.
func (p *mpvPlayer) updateState(mutate func()) {
	p.mu.Lock()
	mutate()
	next := p.deriveStateLocked()
	changed := next != p.state
	p.state = next
	p.mu.Unlock()

	if changed && p.onEvent != nil {
		p.onEvent(Event{Type: EventState, State: next})
	}
}

func (p *mpvPlayer) deriveStateLocked() PlayerState {
	switch {
	case p.eof:
		return StateEnded
	case p.paused:
		// Before the first unpause the player is merely cued.
		if p.state == StateUnstarted {
			return StateUnstarted
		}
		return StatePaused
	default:
		return StatePlaying
	}
}

// Play starts or resumes playback. A player that reached end of media
// restarts from the beginning.
func (p *mpvPlayer) Play() {
	p.mu.Lock()
	restart := p.eof
	p.eof = false
	p.mu.Unlock()

	if restart {
		_, _ = p.conn.command("seek", 0, "absolute")
	}
	_ = p.conn.setProperty("pause", false)
}

// Pause pauses playback. The process and its cached media stay alive.
func (p *mpvPlayer) Pause() {
	_ = p.conn.setProperty("pause", true)
}

// SeekTo moves to an absolute position.
func (p *mpvPlayer) SeekTo(pos time.Duration) {
	_, _ = p.conn.command("seek", pos.Seconds(), "absolute")
}

// Times reads position and duration, zeros when not yet reporting.
func (p *mpvPlayer) Times() (pos, dur time.Duration) {
	posSec := p.conn.getFloat("time-pos")
	durSec := p.conn.getFloat("duration")
	return time.Duration(posSec * float64(time.Second)),
		time.Duration(durSec * float64(time.Second))
}

// Close quits the mpv process and removes its socket.
func (p *mpvPlayer) Close() error {
	_, _ = p.conn.command("quit")
	err := p.conn.Close()
	p.kill()
	return err
}

func (p *mpvPlayer) kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
	}
	_ = os.Remove(p.sock)
}

var _ Player = (*mpvPlayer)(nil)
