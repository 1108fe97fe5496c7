package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"midigate/gate"
	"midigate/midi"
	"midigate/theme"
	"midigate/widgets"
)

// knobStep is how far one key press turns the hold knob
const knobStep = 0.05

// Sources is what the footer reports on. Any field may be nil.
type Sources struct {
	Devices *midi.DeviceManager
	Notes   *midi.NoteQueue
	Audio   FrameCounter
}

// FrameCounter reports processed audio frames
type FrameCounter interface {
	Frames() uint64
}

type Model struct {
	Unit    *gate.Unit
	Panel   *gate.Panel
	Sources Sources
	Theme   *theme.Theme

	refresh  time.Duration
	status   gate.Status
	devices  []string
	quitting bool
}

type tickMsg time.Time

// NewModel builds the front panel. Keys feed panel so they take the same
// path as hardware buttons; the control loop applies them on its next step.
func NewModel(unit *gate.Unit, panel *gate.Panel, src Sources, th *theme.Theme, refreshHz int) Model {
	if refreshHz <= 0 {
		refreshHz = 30
	}
	m := Model{
		Unit:    unit,
		Panel:   panel,
		Sources: src,
		Theme:   th,
		refresh: time.Second / time.Duration(refreshHz),
	}
	m.poll()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case " ", "o":
			m.Panel.Press(gate.ButtonOpen)

		case "l":
			m.Panel.Press(gate.ButtonLearn)

		case "b":
			m.Panel.Press(gate.ButtonBypass)

		case "+", "=", "right":
			m.Panel.NudgeKnob(knobStep)

		case "-", "_", "left":
			m.Panel.NudgeKnob(-knobStep)
		}

	case tickMsg:
		m.poll()
		return m, m.tick()
	}

	return m, nil
}

func (m *Model) poll() {
	m.status = m.Unit.Status()
	m.devices = m.devices[:0]
	if m.Sources.Devices == nil {
		return
	}
	for id, c := range m.Sources.Devices.Controllers() {
		m.devices = append(m.devices, fmt.Sprintf("%s (%s)", id, c.Type()))
	}
	sort.Strings(m.devices)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := m.status
	th := m.Theme

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(th.FG())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(fmt.Sprintf("midigate  %-5s", st.Mode)))
	out.WriteString("  ")
	out.WriteString(th.LED(st.Display.LED1.RGB()))
	out.WriteString(" ")
	out.WriteString(th.LED(st.Display.LED2.RGB()))
	if st.Bypassed {
		out.WriteString("  " + warnStyle.Render("BYPASS"))
	}
	out.WriteString("\n\n")

	gateState := "closed"
	if st.Open {
		gateState = "open"
	}
	out.WriteString(labelStyle.Render(fmt.Sprintf("gate    %-6s  trigger %s", gateState, st.Target)))
	out.WriteString("\n")

	out.WriteString(labelStyle.Render(fmt.Sprintf("hold    %4.0f ms  ", st.OpenMs)))
	out.WriteString(widgets.RenderMeter(24, st.OpenMs/st.MaxOpenMs, th.Symbols.MeterFull, th.Symbols.MeterEmpty, th.Accent(), th.Surface()))
	out.WriteString("\n")

	elapsed := 0.0
	if st.Open && st.Running && st.OpenMs > 0 {
		elapsed = st.ElapsedMs / st.OpenMs
	}
	out.WriteString(labelStyle.Render(fmt.Sprintf("elapsed %4.0f ms  ", st.ElapsedMs)))
	out.WriteString(widgets.RenderMeter(24, elapsed, th.Symbols.MeterFull, th.Symbols.MeterEmpty, th.Success(), th.Surface()))
	out.WriteString("\n\n")

	grid, side := midi.Layout(st.Display, m.Panel.Knob())
	out.WriteString(widgets.RenderPadGrid(grid, &side))
	out.WriteString("\n")
	out.WriteString(widgets.RenderLegendItem(grid[0][0], "open", "pad 1 or space"))
	out.WriteString("\n")
	out.WriteString(widgets.RenderLegendItem(grid[0][1], "learn", "pad 2 or l"))
	out.WriteString("\n")
	out.WriteString(widgets.RenderLegendItem(grid[0][2], "bypass", "pad 3 or b"))
	out.WriteString("\n\n")

	if len(m.devices) == 0 {
		out.WriteString(dimStyle.Render("no MIDI controllers"))
	} else {
		out.WriteString(dimStyle.Render("controllers: " + strings.Join(m.devices, ", ")))
	}
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.footer()))
	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(keyHelp)))

	return out.String()
}

func (m Model) footer() string {
	s := m.status.Stats
	line := fmt.Sprintf("notes %d  opens %d  closes %d  learned %d", s.Notes, s.Opens, s.Closes, s.Learned)
	if m.Sources.Notes != nil {
		line += fmt.Sprintf("  dropped %d", m.Sources.Notes.Dropped())
	}
	if m.Sources.Audio != nil {
		line += fmt.Sprintf("  frames %d", m.Sources.Audio.Frames())
	}
	return line
}

var keyHelp = []widgets.KeySection{{
	Keys: []widgets.KeyBinding{
		{Key: "space/o", Desc: "open gate"},
		{Key: "l", Desc: "learn trigger"},
		{Key: "b", Desc: "bypass"},
		{Key: "+/-", Desc: "hold time"},
		{Key: "q", Desc: "quit"},
	},
}}
