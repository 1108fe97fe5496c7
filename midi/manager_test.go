package midi

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestClassify(t *testing.T) {
	dm := NewDeviceManager()
	tests := []struct {
		name string
		want ControllerType
	}{
		{"Launchpad X LPX MIDI", ControllerLaunchpad},
		{"Launchpad X LPX DAW", ControllerUnknown},
		{"Midi Through Port-0", ControllerUnknown},
		{"IAC Driver Through Port", ControllerUnknown},
		{"Dummy MIDI In", ControllerUnknown},
		{"Arturia KeyStep 32", ControllerKeyboard},
	}
	for _, tt := range tests {
		if got := dm.Classify(tt.name); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}

	pins := map[string]ControllerType{
		"Launchpad X LPX MIDI": ControllerUnknown,
		"Pad Box":              ControllerLaunchpad,
	}
	pinned := NewDeviceManager(WithOverrides(func(name string) (ControllerType, bool) {
		kind, ok := pins[name]
		return kind, ok
	}))
	if pinned.Classify("Launchpad X LPX MIDI") != ControllerUnknown || pinned.Classify("Pad Box") != ControllerLaunchpad {
		t.Error("overrides not applied")
	}
	if pinned.Classify("Arturia KeyStep 32") != ControllerKeyboard {
		t.Error("unpinned port should fall through to name detection")
	}

	limited := NewDeviceManager(WithoutKeyboards(), WithExclude(nil))
	if got := limited.Classify("Arturia KeyStep 32"); got != ControllerUnknown {
		t.Errorf("keyboards disabled: Classify = %s", got)
	}
}

type fakePorts struct {
	mu    sync.Mutex
	ports []Port
	made  map[string]*fakeController
}

func (f *fakePorts) set(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ports = nil
	for _, n := range names {
		f.ports = append(f.ports, Port{Name: n})
	}
}

func (f *fakePorts) list() []Port {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Port(nil), f.ports...)
}

func (f *fakePorts) factory(kind ControllerType) func(Port) (Controller, error) {
	return func(p Port) (Controller, error) {
		if p.Name == "broken" {
			return nil, errors.New("device busy")
		}
		c := newFakeController(p.Name, kind)
		f.mu.Lock()
		f.made[p.Name] = c
		f.mu.Unlock()
		return c, nil
	}
}

func newTestManager() (*DeviceManager, *fakePorts) {
	fp := &fakePorts{made: make(map[string]*fakeController)}
	dm := NewDeviceManager(WithExclude([]string{"Through", "broken-excluded"}))
	dm.listPorts = fp.list
	dm.newLaunchpad = fp.factory(ControllerLaunchpad)
	dm.newKeyboard = fp.factory(ControllerKeyboard)
	return dm, fp
}

func launchpads(dm *DeviceManager) int {
	n := 0
	for _, c := range dm.Controllers() {
		if c.Type() == ControllerLaunchpad {
			n++
		}
	}
	return n
}

func TestDeviceManagerHotPlug(t *testing.T) {
	dm, fp := newTestManager()
	ctx := context.Background()

	fp.set("Launchpad X LPX MIDI", "KeyStep", "Midi Through", "broken")
	dm.scan(ctx)

	got := map[string]ControllerType{}
	for i := 0; i < 2; i++ {
		ev := <-dm.Events()
		if ev.Type != DeviceConnected {
			t.Fatalf("event %d = %s", i, ev.Type)
		}
		got[ev.ID] = ev.Controller.Type()
	}
	if got["Launchpad X LPX MIDI"] != ControllerLaunchpad || got["KeyStep"] != ControllerKeyboard {
		t.Fatalf("connected = %v", got)
	}
	if len(dm.Controllers()) != 2 || launchpads(dm) != 1 {
		t.Fatalf("controllers = %v", dm.Controllers())
	}

	// unchanged ports: no events
	dm.scan(ctx)
	select {
	case ev := <-dm.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}

	fp.set("KeyStep")
	dm.scan(ctx)
	ev := <-dm.Events()
	if ev.Type != DeviceDisconnected || ev.ID != "Launchpad X LPX MIDI" {
		t.Fatalf("event = %+v", ev)
	}
	if !fp.made["Launchpad X LPX MIDI"].isClosed() {
		t.Error("removed controller not closed")
	}
	if launchpads(dm) != 0 {
		t.Error("launchpad still listed")
	}
}

func TestDeviceManagerRunClosesOnCancel(t *testing.T) {
	dm, fp := newTestManager()
	fp.set("KeyStep")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dm.Run(ctx)
		close(done)
	}()

	if ev := <-dm.Events(); ev.ID != "KeyStep" {
		t.Fatalf("first event = %+v", ev)
	}
	cancel()
	<-done

	if _, ok := <-dm.Events(); ok {
		t.Error("events channel should be closed")
	}
	if !fp.made["KeyStep"].isClosed() {
		t.Error("controller not closed on shutdown")
	}
	if len(dm.Controllers()) != 0 {
		t.Error("controllers not cleared")
	}
}
