package gate

import (
	"sync"
	"time"
)

// Counter is a free-running hardware tick counter. Tick wraps at 2^32.
type Counter interface {
	Tick() uint32
	Frequency() uint32
	Start()
	Stop()
}

// DefaultTickHz wraps a uint32 counter roughly every 71 minutes.
const DefaultTickHz = 1_000_000

// ClockCounter emulates a peripheral timer on top of the monotonic clock.
// While stopped the counter holds its value; Start resumes counting from
// there, it does not reset.
type ClockCounter struct {
	mu      sync.Mutex
	freq    uint32
	now     func() time.Time
	running bool
	since   time.Time     // when the current run started
	carried time.Duration // accumulated run time before the current run
}

// NewClockCounter returns a stopped counter ticking at freq Hz.
// A zero freq selects DefaultTickHz.
func NewClockCounter(freq uint32) *ClockCounter {
	if freq == 0 {
		freq = DefaultTickHz
	}
	return &ClockCounter{freq: freq, now: time.Now}
}

func (c *ClockCounter) Frequency() uint32 {
	return c.freq
}

func (c *ClockCounter) Tick() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks(c.elapsed())
}

func (c *ClockCounter) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.since = c.now()
}

func (c *ClockCounter) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.carried = c.elapsed()
	c.running = false
}

// Running reports whether the counter is advancing.
func (c *ClockCounter) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *ClockCounter) elapsed() time.Duration {
	if !c.running {
		return c.carried
	}
	return c.carried + c.now().Sub(c.since)
}

// ticks truncates to 32 bits so the value wraps like the hardware register.
func (c *ClockCounter) ticks(d time.Duration) uint32 {
	sec := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	n := sec*uint64(c.freq) + rem*uint64(c.freq)/uint64(time.Second)
	return uint32(n)
}
