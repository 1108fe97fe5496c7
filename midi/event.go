package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"midigate/gate"
)

// Decode converts a raw MIDI message into the event type the gate core
// consumes. Control changes carry the controller number in Note and the
// value in Velocity; anything else decodes as gate.EventOther.
func Decode(msg gomidi.Message) gate.NoteEvent {
	var channel, a, b uint8
	switch {
	case msg.GetNoteOn(&channel, &a, &b):
		return gate.NoteEvent{Type: gate.EventNoteOn, Channel: int(channel), Note: a, Velocity: b}
	case msg.GetNoteOff(&channel, &a, &b):
		return gate.NoteEvent{Type: gate.EventNoteOff, Channel: int(channel), Note: a, Velocity: b}
	case msg.GetControlChange(&channel, &a, &b):
		return gate.NoteEvent{Type: gate.EventControlChange, Channel: int(channel), Note: a, Velocity: b}
	}
	return gate.NoteEvent{Type: gate.EventOther}
}
