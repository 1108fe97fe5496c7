package midi

import (
	"context"
	"testing"
	"time"

	"midigate/gate"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSurfacePadsDrivePanel(t *testing.T) {
	panel := gate.NewPanel(0.1)
	s := NewSurface(panel, NewNoteQueue(8))
	lp := newFakeController("lp", ControllerLaunchpad)
	s.Attach(lp)
	defer lp.Close()

	lp.pads <- PadEvent{Row: 0, Col: 1, Velocity: 100}
	waitFor(t, "learn edge", func() bool { return panel.Edge(gate.ButtonLearn) })

	lp.pads <- PadEvent{Row: 0, Col: 2, Velocity: 100}
	waitFor(t, "bypass edge", func() bool { return panel.Edge(gate.ButtonBypass) })

	lp.pads <- PadEvent{Row: knobRow, Col: 3, Velocity: 100}
	waitFor(t, "knob move", func() bool { return panel.Knob() == 0.5 })
	waitFor(t, "knob row redraw", func() bool {
		return lp.led(knobRow, 3) == knobOn && lp.led(knobRow, 4) == knobOff
	})

	lp.pads <- PadEvent{Row: 0, Col: 0, Velocity: 100}
	waitFor(t, "open edge", func() bool { return panel.Edge(gate.ButtonOpen) })
}

func TestSurfaceShowsIndicators(t *testing.T) {
	s := NewSurface(gate.NewPanel(0.25), NewNoteQueue(8))
	s.Show(gate.Display{LED1: gate.Red, LED2: gate.Off})

	lp := newFakeController("lp", ControllerLaunchpad)
	s.Attach(lp)
	defer lp.Close()

	if lp.led(0, 7) != gate.Red.RGB() || lp.led(0, 0) != labelOpen {
		t.Errorf("attach did not draw layout: led1 %v open %v", lp.led(0, 7), lp.led(0, 0))
	}
	if lp.led(knobRow, 1) != knobOn || lp.led(knobRow, 2) != knobOff {
		t.Error("knob row should show 2 of 8 lit for 0.25")
	}

	s.Show(gate.Display{LED1: gate.Blue, LED2: gate.Blue})
	if lp.led(0, 7) != gate.Blue.RGB() || lp.led(0, 8) != gate.Blue.RGB() {
		t.Errorf("indicators = %v %v, want blue", lp.led(0, 7), lp.led(0, 8))
	}

	s.Detach("lp")
	s.Show(gate.Display{LED1: gate.Green})
	if lp.led(0, 7) != gate.Blue.RGB() {
		t.Error("detached launchpad still rendered")
	}
}

func TestSurfaceRoutesKeyboardNotes(t *testing.T) {
	q := NewNoteQueue(8)
	s := NewSurface(gate.NewPanel(0), q)
	kb := newFakeController("keys", ControllerKeyboard)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan DeviceEvent, 1)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, events)
		close(done)
	}()
	events <- DeviceEvent{Type: DeviceConnected, Controller: kb, ID: "keys"}

	e := gate.NoteEvent{Type: gate.EventNoteOn, Channel: 1, Note: 60, Velocity: 100}
	kb.notes <- e
	waitFor(t, "queued note", func() bool { return q.Len() == 1 })
	if got, _ := q.Next(); got != e {
		t.Errorf("queued %s, want %s", got, e)
	}
	if kb.led(0, 7) != ([3]uint8{}) {
		t.Error("keyboard should not get LED output")
	}

	cancel()
	kb.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestLayout(t *testing.T) {
	grid, side := Layout(gate.Display{LED1: gate.Green, LED2: gate.Red}, 0.5)
	if grid[0][0] != labelOpen || grid[0][1] != labelLearn || grid[0][2] != labelBypass {
		t.Error("button pads not labelled")
	}
	if grid[0][7] != gate.Green.RGB() || side[0] != gate.Red.RGB() {
		t.Errorf("indicators = %v %v", grid[0][7], side[0])
	}
	if grid[knobRow][3] != knobOn || grid[knobRow][4] != knobOff {
		t.Error("knob row should show 4 of 8 lit for 0.5")
	}
}
