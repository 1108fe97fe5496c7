package midi

import (
	"sync/atomic"

	"midigate/gate"
)

// DefaultQueueSize holds well over one control tick of dense playing.
const DefaultQueueSize = 256

// NoteQueue carries decoded events from MIDI listener goroutines to the
// control loop. Push never blocks; events beyond capacity are dropped and
// counted.
type NoteQueue struct {
	ch      chan gate.NoteEvent
	dropped atomic.Uint64
}

func NewNoteQueue(size int) *NoteQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &NoteQueue{ch: make(chan gate.NoteEvent, size)}
}

// Push enqueues e, reporting false if the queue was full.
func (q *NoteQueue) Push(e gate.NoteEvent) bool {
	select {
	case q.ch <- e:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Next implements gate.NoteSource.
func (q *NoteQueue) Next() (gate.NoteEvent, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return gate.NoteEvent{}, false
	}
}

func (q *NoteQueue) Len() int { return len(q.ch) }

func (q *NoteQueue) Dropped() uint64 { return q.dropped.Load() }
