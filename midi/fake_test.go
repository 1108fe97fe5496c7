package midi

import (
	"sync"

	"midigate/gate"
)

type fakeController struct {
	id    string
	kind  ControllerType
	pads  chan PadEvent
	notes chan gate.NoteEvent

	mu     sync.Mutex
	leds   map[[2]int][3]uint8
	closed bool
}

func newFakeController(id string, kind ControllerType) *fakeController {
	return &fakeController{
		id:    id,
		kind:  kind,
		pads:  make(chan PadEvent, 8),
		notes: make(chan gate.NoteEvent, 8),
		leds:  make(map[[2]int][3]uint8),
	}
}

func (f *fakeController) ID() string { return f.id }
func (f *fakeController) Type() ControllerType { return f.kind }
func (f *fakeController) PadEvents() <-chan PadEvent { return f.pads }
func (f *fakeController) NoteEvents() <-chan gate.NoteEvent { return f.notes }

func (f *fakeController) SetLEDRGB(row, col int, rgb [3]uint8, channel uint8) error {
	f.mu.Lock()
	f.leds[[2]int{row, col}] = rgb
	f.mu.Unlock()
	return nil
}

func (f *fakeController) led(row, col int) [3]uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leds[[2]int{row, col}]
}

func (f *fakeController) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.pads)
		close(f.notes)
	}
	return nil
}

func (f *fakeController) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
