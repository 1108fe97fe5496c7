package gate

import (
	"context"
	"sync"
	"time"

	"midigate/debug"
)

// DefaultControlRate is how often Run steps the control loop.
const DefaultControlRate = time.Millisecond

// Stats counts what the unit has done since Start
type Stats struct {
	Notes   uint64 // note events handled
	Opens   uint64 // gate opens, by note or button
	Closes  uint64 // hold expiries
	Learned uint64 // targets committed
}

// Status is a consistent copy of the unit state for UIs.
type Status struct {
	Mode      Mode
	Open      bool
	Bypassed  bool
	Running   bool
	Target    Target
	OpenMs    float64
	MaxOpenMs float64
	ElapsedMs float64
	Display   Display
	Stats     Stats
}

// Unit owns all mutable gate state. Every mutation goes through its mutex,
// so the control loop, note delivery and UI callbacks never interleave.
// After each mutation the audio snapshot is republished; the audio path
// only ever reads that snapshot.
type Unit struct {
	mu        sync.Mutex
	modes     ModeController
	timer     *Timer
	dispatch  *Dispatcher
	bypassed  bool
	maxOpenMs float64
	stats     Stats

	display   Display
	lastShown Display
	shown     bool

	snap snapshotCell
}

type Option func(*Unit)

// WithTarget sets the trigger armed at startup.
func WithTarget(t Target) Option {
	return func(u *Unit) { u.dispatch.target = t }
}

// WithMaxOpenMs sets the hold time of a fully open knob.
func WithMaxOpenMs(ms float64) Option {
	return func(u *Unit) {
		if ms > 0 {
			u.maxOpenMs = ms
		}
	}
}

// NewUnit returns a unit in Boot mode driving counter. Call Start before
// running the loops.
func NewUnit(counter Counter, opts ...Option) *Unit {
	u := &Unit{
		timer:     NewTimer(counter),
		maxOpenMs: MaxOpenMs,
	}
	u.dispatch = NewDispatcher(&u.modes, u.timer, DefaultTarget)
	for _, opt := range opts {
		opt(u)
	}
	u.publish()
	return u
}

// Start leaves Boot for Gate mode and closes the gate.
func (u *Unit) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	mode := u.modes.Fire(TriggerStartup)
	u.timer.Close(mode)
	u.publish()
	debug.Event("gate", "started", "mode", mode, "target", u.dispatch.Target())
}

// HandleNote dispatches one decoded note event.
func (u *Unit) HandleNote(e NoteEvent) Outcome {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := u.handleNote(e)
	u.publish()
	return out
}

// Open is the manual trigger. It is a no-op outside Gate mode.
func (u *Unit) Open() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	ok := u.open()
	u.publish()
	return ok
}

// Close shuts the gate. It is a no-op outside Gate mode.
func (u *Unit) Close() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	ok := u.timer.Close(u.modes.Mode())
	u.publish()
	return ok
}

// SetMode assigns the mode directly, without touching the gate.
func (u *Unit) SetMode(m Mode) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.modes.SetMode(m)
	u.publish()
}

// ToggleLearn flips between Gate and MidiLearn. An open gate stays open.
func (u *Unit) ToggleLearn() Mode {
	u.mu.Lock()
	defer u.mu.Unlock()
	m := u.toggleLearn()
	u.publish()
	return m
}

func (u *Unit) ToggleBypass() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bypassed = !u.bypassed
	u.publish()
	debug.Event("gate", "bypass", "on", u.bypassed)
	return u.bypassed
}

// SetKnob sets the hold time from a normalized control position.
func (u *Unit) SetKnob(v float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.setKnob(v)
}

// SetOpenDuration sets the hold time in milliseconds.
func (u *Unit) SetOpenDuration(ms float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.timer.SetOpenDuration(ms)
}

// Tick closes the gate if its hold time has run out.
func (u *Unit) Tick() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	closed := u.tick()
	u.publish()
	return closed
}

// Step runs one control tick: drain notes, read controls, advance the
// timer. It returns the display state for this tick.
func (u *Unit) Step(c Controls, notes NoteSource) Display {
	u.mu.Lock()
	defer u.mu.Unlock()

	if notes != nil {
		for {
			e, ok := notes.Next()
			if !ok {
				break
			}
			u.handleNote(e)
		}
	}

	if c != nil {
		u.setKnob(c.Knob())
		if c.Edge(ButtonOpen) {
			u.open()
		}
		if c.Edge(ButtonLearn) {
			u.toggleLearn()
		}
		if c.Edge(ButtonBypass) {
			u.bypassed = !u.bypassed
			debug.Event("gate", "bypass", "on", u.bypassed)
		}
	}

	u.tick()
	u.publish()
	return u.display
}

// Run steps the control loop every interval until ctx is done, pushing
// display changes to sinks.
func (u *Unit) Run(ctx context.Context, interval time.Duration, c Controls, notes NoteSource, sinks ...DisplaySink) {
	if interval <= 0 {
		interval = DefaultControlRate
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d := u.Step(c, notes)
			if changed := u.markShown(d); changed {
				for _, s := range sinks {
					s.Show(d)
				}
			}
		}
	}
}

// Snapshot is the lock-free view used by the audio path.
func (u *Unit) Snapshot() Snapshot {
	return u.snap.load()
}

// Process is the audio callback: interleaved stereo in, gated copy out.
func (u *Unit) Process(in, out []float32) {
	Process(u.snap.load(), in, out)
}

func (u *Unit) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Status{
		Mode:      u.modes.Mode(),
		Open:      u.timer.IsOpen(),
		Bypassed:  u.bypassed,
		Running:   u.timer.Running(),
		Target:    u.dispatch.Target(),
		OpenMs:    u.timer.OpenDuration(),
		MaxOpenMs: u.maxOpenMs,
		ElapsedMs: u.timer.ElapsedMs(),
		Display:   u.display,
		Stats:     u.stats,
	}
}

// locked helpers

func (u *Unit) handleNote(e NoteEvent) Outcome {
	u.stats.Notes++
	out := u.dispatch.Handle(u.modes.Mode(), e)
	switch out {
	case Opened:
		u.stats.Opens++
		debug.LogEvery(50, "gate", "opened by %s", e)
	case Learned:
		u.stats.Learned++
		debug.Event("gate", "learned", "target", u.dispatch.Target(), "mode", u.modes.Mode())
	}
	return out
}

func (u *Unit) open() bool {
	ok := u.timer.Open(u.modes.Mode())
	if ok {
		u.stats.Opens++
	}
	return ok
}

func (u *Unit) toggleLearn() Mode {
	from := u.modes.Mode()
	to := u.modes.Fire(TriggerLearnToggle)
	debug.Event("gate", "mode", "from", from, "to", to)
	return to
}

func (u *Unit) setKnob(v float64) {
	u.timer.SetOpenDuration(clamp01(v) * u.maxOpenMs)
}

func (u *Unit) tick() bool {
	closed := u.timer.Tick(u.modes.Mode())
	if closed {
		u.stats.Closes++
	}
	return closed
}

func (u *Unit) publish() {
	s := Snapshot{
		Open:     u.timer.IsOpen(),
		Mode:     u.modes.Mode(),
		Bypassed: u.bypassed,
	}
	u.snap.store(s)
	u.display = Project(s.Mode, s.Open, s.Bypassed)
}

// markShown records d as rendered and reports whether it differs from the
// last rendered display.
func (u *Unit) markShown(d Display) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.shown && u.lastShown == d {
		return false
	}
	u.shown = true
	u.lastShown = d
	return true
}
