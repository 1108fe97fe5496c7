package gate

// MaxOpenMs is the hold time selected by a fully open knob.
const MaxOpenMs = 1000.0

// DefaultOpenMs is the hold time before the first knob reading.
const DefaultOpenMs = 100.0

// Timer is the gate state plus the timing basis used to close it again.
// Open and close are guarded by the mode passed in: outside Gate mode they
// only stop the hardware counter and leave the gate state untouched.
type Timer struct {
	counter Counter

	open     bool
	openMs   float64
	running  bool
	freq     uint32
	openedAt uint32
}

// NewTimer returns a timer driving counter. The gate starts open, as on
// power-up; Unit.Start closes it once the mode leaves Boot.
func NewTimer(counter Counter) *Timer {
	return &Timer{
		counter: counter,
		open:    true,
		openMs:  DefaultOpenMs,
	}
}

// Open opens the gate and restarts the hold timer. Re-opening an open gate
// restarts the hold period.
func (t *Timer) Open(mode Mode) bool {
	t.stop()
	if mode != Gate {
		return false
	}

	t.open = true

	t.counter.Start()
	t.running = true
	t.freq = t.counter.Frequency()
	t.openedAt = t.counter.Tick()
	return true
}

// Close stops the hold timer and closes the gate.
func (t *Timer) Close(mode Mode) bool {
	t.stop()
	if mode != Gate {
		return false
	}
	t.open = false
	return true
}

// Tick closes the gate once the configured hold time has elapsed since it
// was opened. It reports whether the gate closed on this call.
func (t *Timer) Tick(mode Mode) bool {
	if !t.open || mode != Gate {
		return false
	}
	if !t.expired() {
		return false
	}
	return t.Close(mode)
}

// SetOpenDuration sets the hold time. The next Tick uses it, including for
// a gate that is already open.
func (t *Timer) SetOpenDuration(ms float64) {
	if ms < 0 {
		ms = 0
	}
	t.openMs = ms
}

func (t *Timer) OpenDuration() float64 { return t.openMs }

func (t *Timer) IsOpen() bool { return t.open }

func (t *Timer) Running() bool { return t.running }

// OpenedAt returns the tick and frequency captured by the last Open.
func (t *Timer) OpenedAt() (tick, freq uint32) { return t.openedAt, t.freq }

// ElapsedMs is the time since the last Open, measured on the counter. It is
// zero if no frequency has been captured yet.
func (t *Timer) ElapsedMs() float64 {
	if t.freq == 0 {
		return 0
	}
	return 1000 * float64(t.delta()) / float64(t.freq)
}

// delta relies on unsigned subtraction to survive counter wraparound.
func (t *Timer) delta() uint32 {
	return t.counter.Tick() - t.openedAt
}

// expired compares 1000*delta against openMs*freq instead of dividing, so
// the boundary tick ceil(openMs*freq/1000) closes the gate exactly.
func (t *Timer) expired() bool {
	if t.freq == 0 {
		return false
	}
	return float64(t.delta())*1000 >= t.openMs*float64(t.freq)
}

func (t *Timer) stop() {
	t.counter.Stop()
	t.running = false
}
