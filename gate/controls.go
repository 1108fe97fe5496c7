package gate

import (
	"math"
	"sync/atomic"
)

// Button identifies a front-panel control that produces edges
type Button uint8

const (
	ButtonOpen   Button = iota // manual test trigger
	ButtonLearn                // toggles MidiLearn
	ButtonBypass               // toggles bypass

	numButtons
)

func (b Button) String() string {
	switch b {
	case ButtonOpen:
		return "open"
	case ButtonLearn:
		return "learn"
	case ButtonBypass:
		return "bypass"
	}
	return "unknown"
}

// Controls is polled once per control tick. Edge reports a debounced
// rising edge since the previous poll.
type Controls interface {
	Knob() float64
	Edge(b Button) bool
}

// NoteSource yields queued note events until it is empty.
type NoteSource interface {
	Next() (NoteEvent, bool)
}

// Panel is a Controls fed from other goroutines: key presses, Launchpad
// pads, serial reports. Presses latch until the control loop reads them,
// so several presses between two ticks count once.
type Panel struct {
	edges [numButtons]atomic.Bool
	knob  atomic.Uint64 // float64 bits
}

// NewPanel returns a panel with the knob at v.
func NewPanel(knob float64) *Panel {
	p := &Panel{}
	p.SetKnob(knob)
	return p
}

func (p *Panel) Press(b Button) {
	if b < numButtons {
		p.edges[b].Store(true)
	}
}

func (p *Panel) Edge(b Button) bool {
	if b >= numButtons {
		return false
	}
	return p.edges[b].Swap(false)
}

// SetKnob stores v clamped to [0,1].
func (p *Panel) SetKnob(v float64) {
	p.knob.Store(math.Float64bits(clamp01(v)))
}

// NudgeKnob moves the knob by delta and returns the new position.
func (p *Panel) NudgeKnob(delta float64) float64 {
	for {
		old := p.knob.Load()
		v := clamp01(math.Float64frombits(old) + delta)
		if p.knob.CompareAndSwap(old, math.Float64bits(v)) {
			return v
		}
	}
}

func (p *Panel) Knob() float64 {
	return math.Float64frombits(p.knob.Load())
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
