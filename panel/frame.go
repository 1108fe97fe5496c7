package panel

import (
	"errors"
	"sync/atomic"
)

const (
	SOF0 = 0xAA
	SOF1 = 0x55

	CmdDisplay  = 0x10 // host -> panel: [led1 R G B][led2 R G B][seq]
	CmdControls = 0x20 // panel -> host: [buttons][knob]

	maxPayload = 32
)

// Button bits in a controls report. A set bit is a debounced rising edge.
const (
	BitOpen   = 1 << 0
	BitLearn  = 1 << 1
	BitBypass = 1 << 2
)

var ErrShortPayload = errors.New("panel: short payload")

// Frame is one decoded packet.
type Frame struct {
	Cmd     byte
	Payload []byte
}

// Encode builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][payload...][CKS]
//
// LEN counts CMD plus payload; CKS is the XOR of LEN, CMD and payload.
func Encode(cmd byte, payload []byte) []byte {
	length := byte(len(payload) + 1)
	cks := length ^ cmd
	for _, b := range payload {
		cks ^= b
	}
	out := make([]byte, 0, len(payload)+5)
	out = append(out, SOF0, SOF1, length, cmd)
	out = append(out, payload...)
	return append(out, cks)
}

// DisplayFrame carries both indicator colors.
type DisplayFrame struct {
	LED1, LED2 [3]uint8
	Seq        byte
}

func (f DisplayFrame) Encode() []byte {
	p := []byte{f.LED1[0], f.LED1[1], f.LED1[2], f.LED2[0], f.LED2[1], f.LED2[2], f.Seq}
	return Encode(CmdDisplay, p)
}

// ControlsReport is the panel's button and knob state.
type ControlsReport struct {
	Buttons byte
	Knob    byte // 0..255 maps to 0..1
}

func ParseControls(f Frame) (ControlsReport, error) {
	if len(f.Payload) < 2 {
		return ControlsReport{}, ErrShortPayload
	}
	return ControlsReport{Buttons: f.Payload[0], Knob: f.Payload[1]}, nil
}

func (r ControlsReport) Encode() []byte {
	return Encode(CmdControls, []byte{r.Buttons, r.Knob})
}

type decodeState int

const (
	waitSOF0 decodeState = iota
	waitSOF1
	waitLen
	readBody
)

// Decoder reassembles frames from a byte stream, resyncing on bad
// lengths and checksums.
type Decoder struct {
	state  decodeState
	length int
	body   []byte // CMD + payload + CKS
	bad    atomic.Uint64
}

// Feed consumes b and returns every complete, valid frame in it.
func (d *Decoder) Feed(b []byte) []Frame {
	var frames []Frame
	for _, c := range b {
		frames = d.step(c, frames)
	}
	return frames
}

func (d *Decoder) step(c byte, frames []Frame) []Frame {
	switch d.state {
	case waitSOF0:
		if c == SOF0 {
			d.state = waitSOF1
		}
	case waitSOF1:
		switch c {
		case SOF1:
			d.state = waitLen
		case SOF0:
			// stay: a repeated SOF0 may start the real frame
		default:
			d.state = waitSOF0
		}
	case waitLen:
		if c == 0 || c > maxPayload+1 {
			d.bad.Add(1)
			d.state = waitSOF0
			if c == SOF0 {
				d.state = waitSOF1
			}
			return frames
		}
		d.length = int(c)
		d.body = d.body[:0]
		d.state = readBody
	case readBody:
		d.body = append(d.body, c)
		if len(d.body) < d.length+1 {
			return frames
		}
		d.state = waitSOF0
		if f, ok := d.check(); ok {
			return append(frames, f)
		}
		d.bad.Add(1)
		// A truncated frame may have swallowed the start of the next one.
		rest := append([]byte(nil), d.body...)
		for _, r := range rest {
			frames = d.step(r, frames)
		}
	}
	return frames
}

func (d *Decoder) check() (Frame, bool) {
	cks := byte(d.length)
	for _, c := range d.body[:d.length] {
		cks ^= c
	}
	if cks != d.body[d.length] {
		return Frame{}, false
	}
	payload := append([]byte(nil), d.body[1:d.length]...)
	return Frame{Cmd: d.body[0], Payload: payload}, true
}

// Bad counts frames dropped for length or checksum errors.
func (d *Decoder) Bad() uint64 { return d.bad.Load() }
