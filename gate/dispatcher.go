package gate

import "fmt"

// EventType is the kind of a decoded MIDI message
type EventType uint8

const (
	EventOther EventType = iota
	EventNoteOn
	EventNoteOff
	EventControlChange
)

func (t EventType) String() string {
	switch t {
	case EventNoteOn:
		return "NoteOn"
	case EventNoteOff:
		return "NoteOff"
	case EventControlChange:
		return "CC"
	}
	return "Other"
}

// NoteEvent is an already-decoded MIDI message. Channel is the 0-based
// channel from the status byte.
type NoteEvent struct {
	Type     EventType
	Channel  int
	Note     uint8
	Velocity uint8
}

func (e NoteEvent) String() string {
	return fmt.Sprintf("%s{ch:%d, note:%d, vel:%d}", e.Type, e.Channel, e.Note, e.Velocity)
}

// Strikes reports whether e is a note-on with positive velocity. A zero
// velocity note-on is a note-off by convention.
func (e NoteEvent) Strikes() bool {
	return e.Type == EventNoteOn && e.Velocity > 0
}

// Target is the channel/note pair that opens the gate
type Target struct {
	Channel int
	Note    uint8
}

// DefaultTarget is the trigger before anything has been learned.
var DefaultTarget = Target{Channel: 1, Note: 60}

func (t Target) Matches(e NoteEvent) bool {
	return e.Channel == t.Channel && e.Note == t.Note
}

func (t Target) String() string {
	return fmt.Sprintf("ch%d %s", t.Channel, NoteName(t.Note))
}

// Outcome is what a dispatched note did
type Outcome uint8

const (
	Ignored Outcome = iota
	Opened
	Learned
)

func (o Outcome) String() string {
	switch o {
	case Opened:
		return "opened"
	case Learned:
		return "learned"
	}
	return "ignored"
}

// Dispatcher routes note events to the timer or the learn commit,
// depending on the mode it is handed.
type Dispatcher struct {
	modes  *ModeController
	timer  *Timer
	target Target
}

func NewDispatcher(modes *ModeController, timer *Timer, target Target) *Dispatcher {
	return &Dispatcher{modes: modes, timer: timer, target: target}
}

// Handle processes one event. Anything that is not a striking note-on is
// dropped, as are non-matching notes in Gate mode.
func (d *Dispatcher) Handle(mode Mode, e NoteEvent) Outcome {
	if !e.Strikes() {
		return Ignored
	}

	switch mode {
	case Gate:
		if d.target.Matches(e) && d.timer.Open(mode) {
			return Opened
		}
	case MidiLearn:
		d.Commit(Target{Channel: e.Channel, Note: e.Note})
		return Learned
	}
	return Ignored
}

// Commit arms a new target and returns to Gate mode. The gate is not opened.
func (d *Dispatcher) Commit(t Target) {
	d.target = t
	d.modes.Fire(TriggerCommit)
}

func (d *Dispatcher) Target() Target { return d.target }

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName formats a MIDI note number, 60 = C4.
func NoteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note/12)-1)
}
