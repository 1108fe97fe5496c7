package gate

// Color is an abstract indicator color; renderers map it to hardware.
type Color uint8

const (
	Off Color = iota
	Red
	Green
	Blue
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	}
	return "off"
}

// RGB returns full-brightness components for c.
func (c Color) RGB() [3]uint8 {
	switch c {
	case Red:
		return [3]uint8{255, 0, 0}
	case Green:
		return [3]uint8{0, 255, 0}
	case Blue:
		return [3]uint8{0, 0, 255}
	}
	return [3]uint8{0, 0, 0}
}

// Display is the state of the two panel indicators.
type Display struct {
	LED1, LED2 Color
}

func (d Display) String() string {
	return d.LED1.String() + "/" + d.LED2.String()
}

// Project maps unit state to the indicators:
//
//	Gate, bypassed       red   red
//	Gate, open           green off
//	Gate, closed         red   off
//	MidiLearn            blue  blue
//	Boot                 off   off
func Project(mode Mode, open, bypassed bool) Display {
	switch mode {
	case Gate:
		switch {
		case bypassed:
			return Display{Red, Red}
		case open:
			return Display{Green, Off}
		default:
			return Display{Red, Off}
		}
	case MidiLearn:
		return Display{Blue, Blue}
	}
	return Display{Off, Off}
}

// DisplaySink renders a display state. Show is called from the control
// loop only when the display changes and must not block for long.
type DisplaySink interface {
	Show(d Display)
}
