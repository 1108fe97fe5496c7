package gate

// Mode is the operating mode of the unit
type Mode uint8

const (
	Boot Mode = iota
	Gate
	MidiLearn

	numModes
)

func (m Mode) String() string {
	switch m {
	case Boot:
		return "BOOT"
	case Gate:
		return "GATE"
	case MidiLearn:
		return "LEARN"
	}
	return "UNKNOWN"
}

// Trigger is an input to the mode state machine
type Trigger uint8

const (
	TriggerStartup     Trigger = iota // power-on, leaves Boot
	TriggerLearnToggle                // mode button edge
	TriggerCommit                     // a note was learned

	numTriggers
)

func (t Trigger) String() string {
	switch t {
	case TriggerStartup:
		return "startup"
	case TriggerLearnToggle:
		return "learn-toggle"
	case TriggerCommit:
		return "commit"
	}
	return "unknown"
}

// transitions[from][trigger] = to
var transitions = [numModes][numTriggers]Mode{
	Boot: {
		TriggerStartup:     Gate,
		TriggerLearnToggle: MidiLearn,
		TriggerCommit:      Gate,
	},
	Gate: {
		TriggerStartup:     Gate,
		TriggerLearnToggle: MidiLearn,
		TriggerCommit:      Gate,
	},
	MidiLearn: {
		TriggerStartup:     MidiLearn,
		TriggerLearnToggle: Gate,
		TriggerCommit:      Gate,
	},
}

// Next returns the mode reached from m on trigger t. Unknown inputs leave
// the mode unchanged.
func Next(m Mode, t Trigger) Mode {
	if m >= numModes || t >= numTriggers {
		return m
	}
	return transitions[m][t]
}

// ModeController owns the current mode. It is not safe for concurrent use;
// Unit serializes access.
type ModeController struct {
	mode Mode
}

// SetMode assigns the mode unconditionally. Gate state is left alone.
func (c *ModeController) SetMode(m Mode) {
	c.mode = m
}

// Mode returns the current mode.
func (c *ModeController) Mode() Mode {
	return c.mode
}

// Fire applies trigger t through the transition table and returns the new mode.
func (c *ModeController) Fire(t Trigger) Mode {
	c.SetMode(Next(c.mode, t))
	return c.mode
}
