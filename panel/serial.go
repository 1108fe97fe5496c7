package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"midigate/debug"
	"midigate/gate"
)

const DefaultBaud = 115200

// readTimeout bounds each Read so Run notices cancellation.
const readTimeout = 100 * time.Millisecond

// Serial is a hardware front panel on a serial line. It renders the
// indicators (gate.DisplaySink) and feeds button edges and the knob into
// a gate.Panel.
type Serial struct {
	port     io.ReadWriteCloser
	controls *gate.Panel

	mu        sync.Mutex
	seq       byte
	closeOnce sync.Once
	dec       Decoder

	// last knob reported, so other inputs can move the knob between reports
	knob     byte
	knobSeen bool
}

// Open opens the named serial device at the given baud rate.
func Open(name string, baud int, controls *gate.Panel) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	debug.Event("panel", "port opened", "device", name, "baud", baud)
	return New(p, controls), nil
}

// New wraps an already open port.
func New(port io.ReadWriteCloser, controls *gate.Panel) *Serial {
	return &Serial{port: port, controls: controls}
}

// Ports lists serial devices on this machine.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Show implements gate.DisplaySink.
func (s *Serial) Show(d gate.Display) {
	s.mu.Lock()
	f := DisplayFrame{LED1: d.LED1.RGB(), LED2: d.LED2.RGB(), Seq: s.seq}
	s.seq++
	s.mu.Unlock()

	if _, err := s.port.Write(f.Encode()); err != nil {
		debug.Error("panel", "write display", err, "seq", f.Seq)
	}
}

// Run reads control reports until ctx is done or the port fails.
func (s *Serial) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	buf := make([]byte, 64)
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			for _, f := range s.dec.Feed(buf[:n]) {
				s.apply(f)
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read panel: %w", err)
		}
	}
}

func (s *Serial) apply(f Frame) {
	if f.Cmd != CmdControls {
		debug.Log("panel", "ignoring cmd 0x%02X", f.Cmd)
		return
	}
	r, err := ParseControls(f)
	if err != nil {
		debug.Error("panel", "controls report", err)
		return
	}
	if r.Buttons&BitOpen != 0 {
		s.controls.Press(gate.ButtonOpen)
	}
	if r.Buttons&BitLearn != 0 {
		s.controls.Press(gate.ButtonLearn)
	}
	if r.Buttons&BitBypass != 0 {
		s.controls.Press(gate.ButtonBypass)
	}
	if !s.knobSeen || r.Knob != s.knob {
		s.knob, s.knobSeen = r.Knob, true
		s.controls.SetKnob(float64(r.Knob) / 255)
	}
}

// BadFrames counts corrupted frames received.
func (s *Serial) BadFrames() uint64 { return s.dec.Bad() }

func (s *Serial) Close() error {
	var err error
	s.closeOnce.Do(func() {
		debug.Log("panel", "closing port")
		err = s.port.Close()
	})
	return err
}
