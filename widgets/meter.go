package widgets

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderMeter draws a horizontal bar width cells wide with frac of it
// filled. frac is clamped to [0,1].
func RenderMeter(width int, frac float64, full, empty rune, fill, track lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	if frac < 0 || math.IsNaN(frac) {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	n := int(frac*float64(width) + 0.5)
	on := lipgloss.NewStyle().Foreground(fill).Render(strings.Repeat(string(full), n))
	off := lipgloss.NewStyle().Foreground(track).Render(strings.Repeat(string(empty), width-n))
	return on + off
}
