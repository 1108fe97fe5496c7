package midi

import "midigate/gate"

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

func (t ControllerType) String() string {
	switch t {
	case ControllerLaunchpad:
		return "launchpad"
	case ControllerKeyboard:
		return "keyboard"
	}
	return "unknown"
}

// PadEvent is sent when a pad/button is pressed on a grid controller
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Input events from the controller
	PadEvents() <-chan PadEvent       // For grid controllers (Launchpad)
	NoteEvents() <-chan gate.NoteEvent // For keyboards

	// Output to the controller
	SetLEDRGB(row, col int, rgb [3]uint8, channel uint8) error

	// Lifecycle
	Close() error
}

// LEDUpdate is one pad color change
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8
	Channel  uint8
}

// Launchpad X color palette (velocity values 0-127)
// See Programmer's Reference Manual for full palette
const (
	ColorOff         uint8 = 0
	ColorRed         uint8 = 5
	ColorDimRed      uint8 = 7
	ColorGreen       uint8 = 21
	ColorDimGreen    uint8 = 19
	ColorBlue        uint8 = 45
	ColorDimBlue     uint8 = 43
	ColorBrightWhite uint8 = 119

	// ChannelStatic is the solid-color LED channel for SetLEDRGB
	ChannelStatic uint8 = 0
)
