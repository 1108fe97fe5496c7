package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"midigate/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}

// Port pairs an input with the output of the same name, if any
type Port struct {
	Name string
	In   drivers.In
	Out  drivers.Out
}

// DefaultExclude lists port names never treated as note sources
var DefaultExclude = []string{"Midi Through", "Through Port", "Dummy"}

// DeviceManager handles hot-plug detection of MIDI controllers
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	exclude     []string
	keyboards   bool
	override    func(name string) (ControllerType, bool)

	listPorts    func() []Port
	newLaunchpad func(Port) (Controller, error)
	newKeyboard  func(Port) (Controller, error)
}

// ManagerOption configures a DeviceManager
type ManagerOption func(*DeviceManager)

// WithExclude replaces the note-input exclusion patterns
func WithExclude(patterns []string) ManagerOption {
	return func(dm *DeviceManager) { dm.exclude = patterns }
}

// WithPollRate sets how often ports are rescanned
func WithPollRate(d time.Duration) ManagerOption {
	return func(dm *DeviceManager) {
		if d > 0 {
			dm.pollRate = d
		}
	}
}

// WithOverrides consults lookup before name detection. A port it reports
// as ControllerUnknown is ignored.
func WithOverrides(lookup func(name string) (ControllerType, bool)) ManagerOption {
	return func(dm *DeviceManager) { dm.override = lookup }
}

// WithoutKeyboards limits the manager to Launchpads
func WithoutKeyboards() ManagerOption {
	return func(dm *DeviceManager) { dm.keyboards = false }
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(opts ...ManagerOption) *DeviceManager {
	dm := &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		exclude:     DefaultExclude,
		keyboards:   true,
		listPorts:   systemPorts,
	}
	dm.newLaunchpad = func(p Port) (Controller, error) {
		return NewLaunchpadController(p.Name, p.In, p.Out)
	}
	dm.newKeyboard = func(p Port) (Controller, error) {
		return NewKeyboardController(p.Name, p.In)
	}
	for _, opt := range opts {
		opt(dm)
	}
	return dm
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// Run polls for devices until ctx is done (blocking - run in goroutine).
// The events channel is closed on return.
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan(ctx)
		}
	}
}

// Classify reports what kind of controller a port name looks like, or
// ControllerUnknown for ports that should be left alone.
func (dm *DeviceManager) Classify(name string) ControllerType {
	if dm.override != nil {
		if kind, ok := dm.override(name); ok {
			return kind
		}
	}
	if isLaunchpad(name) {
		return ControllerLaunchpad
	}
	if !dm.keyboards || isLaunchpadAux(name) {
		return ControllerUnknown
	}
	lower := strings.ToLower(name)
	for _, p := range dm.exclude {
		if strings.Contains(lower, strings.ToLower(p)) {
			return ControllerUnknown
		}
	}
	return ControllerKeyboard
}

func (dm *DeviceManager) scan(ctx context.Context) {
	// CoreMIDI can hang while enumerating; skip the scan rather than stall.
	ch := make(chan []Port, 1)
	go func() { ch <- dm.listPorts() }()

	var ports []Port
	select {
	case ports = <-ch:
	case <-time.After(3 * time.Second):
		debug.Log("midi", "port scan timed out")
		return
	case <-ctx.Done():
		return
	}

	seen := make(map[string]bool)
	for _, p := range ports {
		kind := dm.Classify(p.Name)
		if kind == ControllerUnknown {
			continue
		}
		seen[p.Name] = true

		dm.mu.RLock()
		_, exists := dm.controllers[p.Name]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		var c Controller
		var err error
		if kind == ControllerLaunchpad {
			c, err = dm.newLaunchpad(p)
		} else {
			c, err = dm.newKeyboard(p)
		}
		if err != nil {
			debug.Error("midi", "open controller", err, "port", p.Name, "kind", kind)
			continue
		}

		dm.mu.Lock()
		dm.controllers[p.Name] = c
		dm.mu.Unlock()
		debug.Event("midi", "controller connected", "id", p.Name, "kind", kind)
		dm.emit(ctx, DeviceEvent{Type: DeviceConnected, Controller: c, ID: p.Name})
	}

	dm.mu.Lock()
	var gone []Controller
	for id, c := range dm.controllers {
		if !seen[id] {
			gone = append(gone, c)
			delete(dm.controllers, id)
		}
	}
	dm.mu.Unlock()

	for _, c := range gone {
		c.Close()
		debug.Event("midi", "controller disconnected", "id", c.ID())
		dm.emit(ctx, DeviceEvent{Type: DeviceDisconnected, ID: c.ID()})
	}
}

func (dm *DeviceManager) emit(ctx context.Context, ev DeviceEvent) {
	select {
	case dm.events <- ev:
	case <-ctx.Done():
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

// systemPorts lists driver ports, pairing each input with its same-named output
func systemPorts() []Port {
	outs := gomidi.GetOutPorts()
	var ports []Port
	for _, in := range gomidi.GetInPorts() {
		p := Port{Name: in.String(), In: in}
		for _, out := range outs {
			if strings.EqualFold(out.String(), p.Name) {
				p.Out = out
				break
			}
		}
		ports = append(ports, p)
	}
	return ports
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

// isLaunchpadAux matches the Launchpad's DAW port, which is neither a
// control surface nor a note source.
func isLaunchpadAux(name string) bool {
	return strings.Contains(strings.ToLower(name), "launchpad")
}
