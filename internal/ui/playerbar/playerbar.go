// Package playerbar renders the persistent transport bar. It holds no
// playback state of its own: a State is built from the coordinator on
// every render.
package playerbar

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lguern/mixtape/internal/media"
	"github.com/lguern/mixtape/internal/playback"
	"github.com/lguern/mixtape/internal/ui/render"
)

// State holds everything needed to render the transport bar.
type State struct {
	Loaded   bool
	Playing  bool
	Loading  bool
	Title    string
	Kind     string // "direct-audio" or "embedded-video"
	Position time.Duration
	Duration time.Duration
}

// Height is the total bar height (top border + content + bottom border).
const Height = 3

// NewState reads the coordinator into a renderable snapshot.
// Returns an empty State when nothing has ever been played.
func NewState(svc playback.Service) State {
	item := svc.Current()
	if item == nil && !svc.IsLoading() {
		return State{}
	}

	s := State{
		Loaded:   true,
		Playing:  svc.IsPlaying(),
		Loading:  svc.IsLoading(),
		Position: svc.Position(),
		Duration: svc.Duration(),
	}
	if item != nil {
		s.Title = item.DisplayTitle()
		s.Kind = item.Kind.String()
	}
	return s
}

// NewStateFor is like NewState but for a specific item, used by inline
// item widgets that only light up when their item is current.
func NewStateFor(svc playback.Service, item media.Item) State {
	cur := svc.Current()
	if cur == nil || !cur.Same(item) {
		return State{}
	}
	return NewState(svc)
}

// Render returns the transport bar string for the given width.
// Returns empty string when nothing is loaded.
func (s State) Render(width int) string {
	if !s.Loaded {
		return ""
	}

	// Calculate available width (subtract border and padding)
	innerWidth := max(width-6, 0)

	status := playSymbol
	if !s.Playing {
		status = pauseSymbol
	}
	if s.Loading {
		status = loadingSymbol
	}

	title := s.Title
	if title == "" {
		title = "Unknown Item"
	}

	timeStr := fmt.Sprintf("%s / %s", formatDuration(s.Position), formatDuration(s.Duration))
	kind := kindLabelStyle.Render(s.Kind)

	separator := "   "
	fixed := lipgloss.Width(status) + 2 + lipgloss.Width(timeStr) +
		lipgloss.Width(kind) + 2*lipgloss.Width(separator)
	minBarWidth := 10

	availableForTitle := innerWidth - fixed - minBarWidth - lipgloss.Width(separator)
	styledTitle := titleStyle.Render(render.Truncate(title, max(availableForTitle, 0)))

	barWidth := innerWidth - fixed - lipgloss.Width(styledTitle)
	bar := renderProgress(s.Position, s.Duration, max(barWidth, 0))

	content := status + "  " + styledTitle + separator + bar + separator + timeStr + " " + kind
	return barStyle.Width(width - 2).Render(" " + content)
}

// formatDuration renders m:ss (or h:mm:ss past the hour).
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
