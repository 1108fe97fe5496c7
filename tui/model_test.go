package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"midigate/gate"
	"midigate/midi"
	"midigate/theme"
)

type frames uint64

func (f frames) Frames() uint64 { return uint64(f) }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel() (Model, *gate.Unit, *gate.Panel) {
	u := gate.NewUnit(gate.NewClockCounter(0))
	u.Start()
	p := gate.NewPanel(0.1)
	src := Sources{Notes: midi.NewNoteQueue(4), Audio: frames(96)}
	return NewModel(u, p, src, theme.New(theme.Plasma), 0), u, p
}

func TestKeysPressPanelButtons(t *testing.T) {
	m, u, p := newTestModel()

	m.Update(key("l"))
	m.Update(key("b"))
	if !p.Edge(gate.ButtonLearn) || !p.Edge(gate.ButtonBypass) {
		t.Fatal("keys should latch panel edges")
	}
	m.Update(key("o"))
	u.Step(p, nil)
	if !u.Snapshot().Open {
		t.Error("o should open the gate on the next step")
	}
}

func TestKeysTurnKnob(t *testing.T) {
	m, _, p := newTestModel()
	m.Update(key("+"))
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if got := p.Knob(); got < 0.199 || got > 0.201 {
		t.Errorf("knob = %f, want 0.2", got)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if got := p.Knob(); got < 0.149 || got > 0.151 {
		t.Errorf("knob = %f, want 0.15", got)
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel()
	next, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if next.View() != "" {
		t.Error("view should be empty after quit")
	}
}

func TestTickRefreshesStatus(t *testing.T) {
	m, u, _ := newTestModel()
	u.ToggleLearn()
	next, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next refresh")
	}
	view := next.View()
	for _, want := range []string{"LEARN", "trigger ch1 C4", "frames 96", "dropped 0", "no MIDI controllers"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}
