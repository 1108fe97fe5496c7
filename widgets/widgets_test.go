package widgets

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestRenderMeterCounts(t *testing.T) {
	tests := []struct {
		frac       float64
		full, rest int
	}{
		{0, 0, 10},
		{0.5, 5, 5},
		{1, 10, 0},
		{3, 10, 0},
		{-1, 0, 10},
	}
	for _, tt := range tests {
		out := RenderMeter(10, tt.frac, '#', '.', lipgloss.Color("#ffffff"), lipgloss.Color("#000000"))
		if got := strings.Count(out, "#"); got != tt.full {
			t.Errorf("frac %v: %d full cells, want %d", tt.frac, got, tt.full)
		}
		if got := strings.Count(out, "."); got != tt.rest {
			t.Errorf("frac %v: %d empty cells, want %d", tt.frac, got, tt.rest)
		}
	}
	if RenderMeter(0, 1, '#', '.', "", "") != "" {
		t.Error("zero width should render nothing")
	}
}

func TestRenderPadGridShape(t *testing.T) {
	var grid [8][8][3]uint8
	side := [8][3]uint8{}
	out := RenderPadGrid(grid, &side)
	lines := strings.Split(out, "\n")
	if len(lines) != 8 {
		t.Fatalf("%d lines, want 8", len(lines))
	}
	if got := strings.Count(lines[0], "■"); got != 9 {
		t.Errorf("%d pads in a row, want 9", got)
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{{
		Title: "Gate",
		Keys:  []KeyBinding{{Key: "l", Desc: "learn"}, {Key: "b", Desc: "bypass"}},
	}})
	want := "Gate\n  l            learn\n  b            bypass"
	if out != want {
		t.Errorf("RenderKeyHelp =\n%s\nwant\n%s", out, want)
	}
}
