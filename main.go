package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/lguern/mixtape/internal/bridge"
	"github.com/lguern/mixtape/internal/config"
	"github.com/lguern/mixtape/internal/errmsg"
	"github.com/lguern/mixtape/internal/media"
	"github.com/lguern/mixtape/internal/mpris"
	"github.com/lguern/mixtape/internal/notify"
	"github.com/lguern/mixtape/internal/playback"
	"github.com/lguern/mixtape/internal/player"
	"github.com/lguern/mixtape/internal/playlist"
	"github.com/lguern/mixtape/internal/source"
	"github.com/lguern/mixtape/internal/stderr"
	"github.com/lguern/mixtape/internal/ui/playerbar"
	"github.com/lguern/mixtape/internal/ui/render"
)

type keymap struct {
	Up     key.Binding
	Down   key.Binding
	Play   key.Binding
	All    key.Binding
	Toggle key.Binding
	Stop   key.Binding
	Next   key.Binding
	Prev   key.Binding
	Back   key.Binding
	Fwd    key.Binding
	Quit   key.Binding
}

var keys = keymap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Play:   key.NewBinding(key.WithKeys("enter")),
	All:    key.NewBinding(key.WithKeys("a")),
	Toggle: key.NewBinding(key.WithKeys(" ")),
	Stop:   key.NewBinding(key.WithKeys("s")),
	Next:   key.NewBinding(key.WithKeys("n")),
	Prev:   key.NewBinding(key.WithKeys("b")),
	Back:   key.NewBinding(key.WithKeys("left")),
	Fwd:    key.NewBinding(key.WithKeys("right")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

type tickMsg time.Time

type itemChangedMsg playback.ItemChange
type playbackErrorMsg playback.ErrorEvent

type model struct {
	items    []media.Item
	cursor   int
	service  playback.Service
	sub      *playback.Subscription
	notifier notify.Notifier
	notifyOn bool
	seekStep time.Duration
	lastErr  string
	notifID  uint32
	width    int
	height   int
}

func initialModel(cfg *config.Config, items []media.Item) (model, error) {
	engine := player.New()
	registry := bridge.NewRegistry(bridge.NewMPVRuntime(bridge.MPVConfig{
		Binary:    cfg.Embed.Player,
		SocketDir: cfg.Embed.SocketDir,
	}))
	svc := playback.New(source.NewFactory(engine, registry), playlist.New(), cfg.PollInterval())

	notifier, err := notify.New()
	if err != nil {
		notifier = nil
	}

	return model{
		items:    items,
		service:  svc,
		sub:      svc.Subscribe(),
		notifier: notifier,
		notifyOn: cfg.NotificationsEnabled(),
		seekStep: cfg.SeekStep(),
	}, nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.listen())
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listen forwards coordinator events into the bubbletea loop.
func (m model) listen() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		select {
		case e := <-sub.ItemChanged:
			return itemChangedMsg(e)
		case e := <-sub.Error:
			return playbackErrorMsg(e)
		case <-sub.Done:
			return nil
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tick()

	case itemChangedMsg:
		if m.notifyOn && m.notifier != nil && msg.Current != nil {
			id, err := m.notifier.Notify(notify.Notification{
				Title:      "Now playing",
				Body:       msg.Current.DisplayTitle(),
				Timeout:    3000,
				ReplacesID: m.notifID,
				Urgency:    notify.UrgencyLow,
			})
			if err == nil {
				m.notifID = id
			}
		}
		return m, m.listen()

	case playbackErrorMsg:
		m.lastErr = errmsg.FormatWith(errmsg.OpPlaybackStart, msg.ItemID, msg.Err)
		return m, m.listen()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.service.Close()
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Play):
		if m.cursor < len(m.items) {
			m.lastErr = ""
			m.service.RequestPlay(m.items[m.cursor])
		}
	case key.Matches(msg, keys.All):
		if len(m.items) > 0 {
			m.lastErr = ""
			m.service.ReplaceQueue(m.items...)
		}
	case key.Matches(msg, keys.Toggle):
		m.service.Toggle()
	case key.Matches(msg, keys.Stop):
		m.service.Stop()
	case key.Matches(msg, keys.Next):
		m.service.Next()
	case key.Matches(msg, keys.Prev):
		m.service.Previous()
	case key.Matches(msg, keys.Back):
		m.service.SeekBy(-m.seekStep)
	case key.Matches(msg, keys.Fwd):
		m.service.SeekBy(m.seekStep)
	}
	return m, nil
}

var (
	cursorStyle  = lipgloss.NewStyle().Bold(true)
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func (m model) View() string {
	var b strings.Builder

	for i, item := range m.items {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		line := prefix + render.Truncate(item.DisplayTitle(), max(m.width-10, 10))
		line = render.Row(line, dimStyle.Render(item.Kind.String())+" ", max(m.width-2, 20))
		switch st := playerbar.NewStateFor(m.service, item); {
		case st.Loaded:
			line = currentStyle.Render(line)
		case i == m.cursor:
			line = cursorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if m.lastErr != "" {
		b.WriteString(errStyle.Render(m.lastErr) + "\n")
	}

	if bar := playerbar.NewState(m.service).Render(m.width); bar != "" {
		b.WriteString(bar)
	}

	return b.String()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpInitialize, err))
		os.Exit(1)
	}

	if err := stderr.Start(); err == nil {
		defer stderr.Stop()
	}

	items := lo.Map(os.Args[1:], func(arg string, _ int) media.Item {
		return media.FromString(arg)
	})
	if len(items) == 0 {
		stderr.WriteOriginal("usage: mixtape <path|url|media-id> [...]\n")
		os.Exit(2)
	}

	m, err := initialModel(cfg, items)
	if err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpInitialize, err))
		os.Exit(1)
	}

	var mprisAdapter *mpris.Adapter
	if cfg.MprisEnabled() {
		if a, err := mpris.New(m.service); err == nil {
			mprisAdapter = a
		}
	}
	defer func() {
		if mprisAdapter != nil {
			_ = mprisAdapter.Close()
		}
		_ = m.service.Close()
	}()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		stderr.WriteOriginal(errmsg.Format(errmsg.OpInitialize, err) + "\n")
		os.Exit(1)
	}
}
