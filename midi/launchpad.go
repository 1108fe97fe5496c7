package midi

import (
	"fmt"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"midigate/debug"
	"midigate/gate"
)

// Novation SysEx header for the Launchpad X
var lpHeader = []byte{0x00, 0x20, 0x29, 0x02, 0x0C}

// LaunchpadController handles a Novation Launchpad X used as a control surface
type LaunchpadController struct {
	id       string
	send     func(msg gomidi.Message) error
	stopFunc func()
	sent     atomic.Uint64

	padChan  chan PadEvent
	noteChan chan gate.NoteEvent
}

// NewLaunchpadController opens the ports and switches the device to Programmer mode
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	var send func(msg gomidi.Message) error
	if outPort != nil {
		s, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		send = s
	}
	lp := newLaunchpad(id, send)

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, lp.handle, gomidi.HandleError(func(err error) {
			debug.Error("midi", "launchpad listener", err, "device", id)
		}))
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}
	return lp, nil
}

func newLaunchpad(id string, send func(msg gomidi.Message) error) *LaunchpadController {
	lp := &LaunchpadController{
		id:       id,
		send:     send,
		padChan:  make(chan PadEvent, 32),
		noteChan: make(chan gate.NoteEvent),
	}
	if send != nil {
		// Programmer mode: F0 00 20 29 02 0C 0E 01 F7
		lp.sysex(0x0E, 0x01)
		// Brightness to maximum
		lp.sysex(0x08, 0x7F)
	}
	return lp
}

func (lp *LaunchpadController) sysex(cmd byte, data ...byte) {
	msg := append(append(append([]byte{}, lpHeader...), cmd), data...)
	if err := lp.send(gomidi.SysEx(msg)); err != nil {
		debug.Error("midi", "launchpad sysex", err, "device", lp.id, "cmd", cmd)
	}
}

// handle turns grid notes and top-row CCs into pad presses. Releases are dropped.
func (lp *LaunchpadController) handle(msg gomidi.Message, timestampms int32) {
	var channel, key, value uint8
	row, col := -1, -1
	switch {
	case msg.GetNoteOn(&channel, &key, &value) && value > 0:
		row, col = noteToRowCol(key)
	case msg.GetControlChange(&channel, &key, &value) && value > 0:
		row, col = ccToRowCol(key)
	}
	if row < 0 {
		return
	}
	select {
	case lp.padChan <- PadEvent{Row: row, Col: col, Velocity: value}:
	default:
		debug.LogEvery(50, "midi", "launchpad %s: pad channel full", lp.id)
	}
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) PadEvents() <-chan PadEvent {
	return lp.padChan
}

// NoteEvents never delivers; the grid is a control surface, not a note source.
func (lp *LaunchpadController) NoteEvents() <-chan gate.NoteEvent {
	return lp.noteChan
}

func (lp *LaunchpadController) SetLEDRGB(row, col int, rgb [3]uint8, channel uint8) error {
	if lp.send == nil {
		return nil
	}
	lp.sent.Add(1)
	return lp.send(gomidi.NoteOn(channel, rowColToNote(row, col), mapRGBToLaunchpad(rgb)))
}

// SetLEDBatch sends a run of LED updates, stopping at the first send error
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	for _, u := range updates {
		if err := lp.SetLEDRGB(u.Row, u.Col, u.Color, u.Channel); err != nil {
			return err
		}
	}
	if n := lp.sent.Load(); n%100 < uint64(len(updates)) {
		debug.Log("midi", "launchpad %s: %d LED sends", lp.id, n)
	}
	return nil
}

// Sent reports how many LED messages have gone out
func (lp *LaunchpadController) Sent() uint64 {
	return lp.sent.Load()
}

// mapRGBToLaunchpad finds the nearest Launchpad X palette color for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	// {velocity, R, G, B}
	palette := [][4]uint8{
		{ColorOff, 0, 0, 0},
		{ColorRed, 255, 0, 0},
		{ColorDimRed, 180, 60, 60},
		{9, 255, 100, 0},  // orange
		{13, 255, 200, 0}, // yellow
		{ColorDimGreen, 0, 100, 0},
		{ColorGreen, 0, 255, 0},
		{37, 0, 200, 200}, // cyan
		{ColorDimBlue, 40, 60, 120},
		{ColorBlue, 0, 0, 255},
		{49, 150, 0, 200}, // purple
		{ColorBrightWhite, 255, 255, 255},
	}

	best := ColorOff
	bestDist := 1 << 30
	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range palette {
		dr, dg, db := r-int(p[1]), g-int(p[2]), b-int(p[3])
		if dist := dr*dr + dg*dg + db*db; dist < bestDist {
			bestDist = dist
			best = p[0]
		}
	}
	return best
}

// Close blanks the grid and stops listening
func (lp *LaunchpadController) Close() error {
	if lp.send != nil {
		var updates []LEDUpdate
		for row := 0; row < 9; row++ {
			for col := 0; col < 9; col++ {
				if row == 8 && col == 8 {
					continue // no LED at 8,8
				}
				updates = append(updates, LEDUpdate{Row: row, Col: col})
			}
		}
		if err := lp.SetLEDBatch(updates); err != nil {
			debug.Error("midi", "launchpad clear", err, "device", lp.id)
		}
	}
	if lp.stopFunc != nil {
		lp.stopFunc()
	}
	close(lp.padChan)
	close(lp.noteChan)
	return nil
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 = notes 19, 29, ... 89
// Top row:   Row 8 = CC 91-98

func rowColToNote(row, col int) uint8 {
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	return -1, -1
}
