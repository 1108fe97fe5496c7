package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	LEDOn  rune // ● lit indicator
	LEDOff rune // ○ dark indicator

	// Hold meter
	MeterFull  rune // █ elapsed
	MeterEmpty rune // ░ remaining

	// Launchpad mirror
	Solid rune // ■ pad with a function
	Empty rune // □ unused pad
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			LEDOn:  '●',
			LEDOff: '○',

			MeterFull:  '█',
			MeterEmpty: '░',

			Solid: '■',
			Empty: '□',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleSurface = 0.1 // dark purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

// Style helpers

func (t *Theme) Surface() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSurface))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// LED renders an indicator in its own color, or the dark symbol in the
// muted color when rgb is black.
func (t *Theme) LED(rgb [3]uint8) string {
	if rgb == ([3]uint8{}) {
		return lipgloss.NewStyle().Foreground(t.Muted()).Render(string(t.Symbols.LEDOff))
	}
	return lipgloss.NewStyle().Foreground(rgbToLipgloss(rgb)).Render(string(t.Symbols.LEDOn))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
