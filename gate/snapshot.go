package gate

import "sync/atomic"

// Snapshot is the state the audio path needs, read as one value.
type Snapshot struct {
	Open     bool
	Mode     Mode
	Bypassed bool
}

func (s Snapshot) Pass() bool {
	return ShouldPass(s.Open, s.Mode, s.Bypassed)
}

const (
	snapOpen   = 1 << 0
	snapBypass = 1 << 1
	snapMode   = 8 // mode lives in bits 8-15
)

func (s Snapshot) pack() uint32 {
	v := uint32(s.Mode) << snapMode
	if s.Open {
		v |= snapOpen
	}
	if s.Bypassed {
		v |= snapBypass
	}
	return v
}

func unpack(v uint32) Snapshot {
	return Snapshot{
		Open:     v&snapOpen != 0,
		Bypassed: v&snapBypass != 0,
		Mode:     Mode(v >> snapMode),
	}
}

// snapshotCell publishes snapshots from the single writer to any number of
// readers without locks.
type snapshotCell struct {
	v atomic.Uint32
}

func (c *snapshotCell) store(s Snapshot) { c.v.Store(s.pack()) }

func (c *snapshotCell) load() Snapshot { return unpack(c.v.Load()) }
