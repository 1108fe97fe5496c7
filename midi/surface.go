package midi

import (
	"context"
	"sync"

	"midigate/debug"
	"midigate/gate"
)

// Launchpad layout. Row 0 is the bottom row of the grid.
var (
	padOpen   = [2]int{0, 0}
	padLearn  = [2]int{0, 1}
	padBypass = [2]int{0, 2}
	padLED1   = [2]int{0, 7}
	padLED2   = [2]int{0, 8}
)

// knobRow holds eight pads that set the hold knob to (col+1)/8.
const knobRow = 7

var (
	labelOpen   = [3]uint8{255, 255, 255}
	labelLearn  = [3]uint8{40, 60, 120}
	labelBypass = [3]uint8{180, 60, 60}
	knobOn      = [3]uint8{255, 200, 0}
	knobOff     = [3]uint8{0, 0, 0}
)

// Surface routes connected controllers into the unit's inputs: Launchpad
// pads become panel presses and knob moves, keyboard notes go to the
// note queue. It is also a gate.DisplaySink that mirrors the two
// indicators onto every Launchpad.
type Surface struct {
	panel *gate.Panel
	notes *NoteQueue

	mu      sync.Mutex
	pads    map[string]Controller
	display gate.Display
	wg      sync.WaitGroup
}

func NewSurface(panel *gate.Panel, notes *NoteQueue) *Surface {
	return &Surface{
		panel: panel,
		notes: notes,
		pads:  make(map[string]Controller),
	}
}

// Run attaches and detaches controllers as device events arrive. It
// returns when ctx is done or events is closed, after its forwarders exit.
func (s *Surface) Run(ctx context.Context, events <-chan DeviceEvent) {
	defer s.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case DeviceConnected:
				s.Attach(ev.Controller)
			case DeviceDisconnected:
				s.Detach(ev.ID)
			}
		}
	}
}

// Attach starts forwarding c's input. Forwarders exit when c is closed.
func (s *Surface) Attach(c Controller) {
	if c.Type() == ControllerLaunchpad {
		s.mu.Lock()
		s.pads[c.ID()] = c
		d := s.display
		s.mu.Unlock()
		s.drawLayout(c, d)
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		for p := range c.PadEvents() {
			s.handlePad(p)
		}
	}()
	go func() {
		defer s.wg.Done()
		for e := range c.NoteEvents() {
			if !s.notes.Push(e) {
				debug.LogEvery(100, "midi", "note queue full, %d dropped", s.notes.Dropped())
			}
		}
	}()
}

// Detach stops rendering to the controller with id.
func (s *Surface) Detach(id string) {
	s.mu.Lock()
	delete(s.pads, id)
	s.mu.Unlock()
}

// Show implements gate.DisplaySink.
func (s *Surface) Show(d gate.Display) {
	s.mu.Lock()
	s.display = d
	pads := s.launchpads()
	s.mu.Unlock()

	for _, c := range pads {
		showIndicators(c, d)
	}
}

func (s *Surface) handlePad(p PadEvent) {
	switch {
	case p.Row == padOpen[0] && p.Col == padOpen[1]:
		s.panel.Press(gate.ButtonOpen)
	case p.Row == padLearn[0] && p.Col == padLearn[1]:
		s.panel.Press(gate.ButtonLearn)
	case p.Row == padBypass[0] && p.Col == padBypass[1]:
		s.panel.Press(gate.ButtonBypass)
	case p.Row == knobRow && p.Col < 8:
		s.panel.SetKnob(float64(p.Col+1) / 8)
		s.mu.Lock()
		pads := s.launchpads()
		s.mu.Unlock()
		for _, c := range pads {
			drawKnob(c, s.panel.Knob())
		}
	}
}

// launchpads must be called with s.mu held.
func (s *Surface) launchpads() []Controller {
	out := make([]Controller, 0, len(s.pads))
	for _, c := range s.pads {
		out = append(out, c)
	}
	return out
}

func (s *Surface) drawLayout(c Controller, d gate.Display) {
	grid, side := Layout(d, s.panel.Knob())
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			setLED(c, [2]int{row, col}, grid[row][col])
		}
		setLED(c, [2]int{row, 8}, side[row])
	}
}

// Layout is the whole Launchpad picture for a display state and knob
// position: grid[row][col] plus the side column.
func Layout(d gate.Display, knob float64) (grid [8][8][3]uint8, side [8][3]uint8) {
	put := func(pad [2]int, rgb [3]uint8) {
		if pad[1] == 8 {
			side[pad[0]] = rgb
		} else {
			grid[pad[0]][pad[1]] = rgb
		}
	}
	put(padOpen, labelOpen)
	put(padLearn, labelLearn)
	put(padBypass, labelBypass)
	put(padLED1, d.LED1.RGB())
	put(padLED2, d.LED2.RGB())
	lit := knobLit(knob)
	for col := 0; col < 8; col++ {
		if col < lit {
			grid[knobRow][col] = knobOn
		}
	}
	return grid, side
}

func showIndicators(c Controller, d gate.Display) {
	setLED(c, padLED1, d.LED1.RGB())
	setLED(c, padLED2, d.LED2.RGB())
}

// drawKnob lights the knob row up to the column nearest v.
func drawKnob(c Controller, v float64) {
	lit := knobLit(v)
	for col := 0; col < 8; col++ {
		rgb := knobOff
		if col < lit {
			rgb = knobOn
		}
		setLED(c, [2]int{knobRow, col}, rgb)
	}
}

func knobLit(v float64) int {
	return int(v*8 + 0.5)
}

func setLED(c Controller, pad [2]int, rgb [3]uint8) {
	if err := c.SetLEDRGB(pad[0], pad[1], rgb, ChannelStatic); err != nil {
		debug.LogEvery(50, "midi", "led %s (%d,%d): %v", c.ID(), pad[0], pad[1], err)
	}
}
