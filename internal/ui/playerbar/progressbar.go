package playerbar

import (
	"strings"
	"time"
)

var (
	filledBlock = "▓"
	emptyBlock  = "░"
)

// renderProgress renders a block-style progress bar: ▓▓▓▓▓░░░░░
func renderProgress(position, duration time.Duration, width int) string {
	if width <= 0 {
		return ""
	}
	var ratio float64
	if duration > 0 {
		ratio = float64(position) / float64(duration)
	}
	filled := min(int(float64(width)*ratio), width)
	return strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)
}
