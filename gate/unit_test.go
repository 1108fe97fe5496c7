package gate

import (
	"context"
	"sync"
	"testing"
	"time"
)

type sliceSource struct {
	mu     sync.Mutex
	events []NoteEvent
}

func (s *sliceSource) push(e ...NoteEvent) {
	s.mu.Lock()
	s.events = append(s.events, e...)
	s.mu.Unlock()
}

func (s *sliceSource) Next() (NoteEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return NoteEvent{}, false
	}
	e := s.events[0]
	s.events = s.events[1:]
	return e, true
}

type chanSink chan Display

func (c chanSink) Show(d Display) { c <- d }

func newStartedUnit(opts ...Option) (*Unit, *fakeCounter) {
	c := newFakeCounter(1000)
	u := NewUnit(c, opts...)
	u.Start()
	return u, c
}

func TestUnitStartsInBootThenGateClosed(t *testing.T) {
	u := NewUnit(newFakeCounter(1000))
	if s := u.Snapshot(); s.Mode != Boot || !s.Open {
		t.Fatalf("before Start: %+v, want BOOT with power-on open gate", s)
	}
	if d := u.Status().Display; d != (Display{Off, Off}) {
		t.Errorf("BOOT display = %s, want off/off", d)
	}
	u.Start()
	st := u.Status()
	if st.Mode != Gate || st.Open || st.Running {
		t.Errorf("after Start: %+v, want GATE closed", st)
	}
	if st.Target != DefaultTarget || st.OpenMs != DefaultOpenMs {
		t.Errorf("defaults: target %s hold %.0f", st.Target, st.OpenMs)
	}
}

func TestUnitOptions(t *testing.T) {
	u, _ := newStartedUnit(WithTarget(Target{Channel: 9, Note: 36}), WithMaxOpenMs(2000))
	u.SetKnob(0.5)
	st := u.Status()
	if st.Target != (Target{Channel: 9, Note: 36}) {
		t.Errorf("target = %s", st.Target)
	}
	if st.OpenMs != 1000 || st.MaxOpenMs != 2000 {
		t.Errorf("hold = %.0f of %.0f, want 1000 of 2000", st.OpenMs, st.MaxOpenMs)
	}
}

func TestUnitNoteOpensAndTickCloses(t *testing.T) {
	u, c := newStartedUnit()
	u.SetOpenDuration(100)

	if got := u.HandleNote(noteOn(1, 60, 90)); got != Opened {
		t.Fatalf("HandleNote = %s, want opened", got)
	}
	if !u.Snapshot().Open {
		t.Fatal("snapshot not republished after open")
	}
	c.advance(99)
	if u.Tick() {
		t.Fatal("closed early")
	}
	c.advance(1)
	if !u.Tick() || u.Snapshot().Open {
		t.Fatal("expected close at 100ms")
	}
	st := u.Status().Stats
	if st.Notes != 1 || st.Opens != 1 || st.Closes != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestUnitStepOrder(t *testing.T) {
	u, c := newStartedUnit()
	notes := &sliceSource{}
	panel := NewPanel(0.2) // 200ms

	// learn a new note, then the same step's open button hits Gate mode
	u.ToggleLearn()
	notes.push(noteOn(3, 64, 100), noteOn(3, 64, 0))
	panel.Press(ButtonOpen)

	d := u.Step(panel, notes)
	st := u.Status()
	if st.Mode != Gate || st.Target != (Target{Channel: 3, Note: 64}) {
		t.Fatalf("after step: mode %s target %s", st.Mode, st.Target)
	}
	if !st.Open || d != (Display{Green, Off}) {
		t.Fatalf("manual open after learn: open=%v display=%s", st.Open, d)
	}
	if st.OpenMs != 200 {
		t.Errorf("knob not applied: hold = %.0f", st.OpenMs)
	}

	c.advance(200)
	if d := u.Step(panel, notes); d != (Display{Red, Off}) {
		t.Errorf("display after hold = %s, want red/off", d)
	}
}

func TestUnitStepButtons(t *testing.T) {
	u, _ := newStartedUnit()
	panel := NewPanel(0.1)

	panel.Press(ButtonBypass)
	if d := u.Step(panel, nil); d != (Display{Red, Red}) || !u.Snapshot().Bypassed {
		t.Errorf("bypass display = %s", d)
	}
	panel.Press(ButtonLearn)
	if d := u.Step(panel, nil); d != (Display{Blue, Blue}) {
		t.Errorf("learn display = %s", d)
	}
	panel.Press(ButtonLearn)
	panel.Press(ButtonBypass)
	if d := u.Step(panel, nil); d != (Display{Red, Off}) {
		t.Errorf("back to gate display = %s", d)
	}
}

func TestUnitManualOpenIgnoredInLearn(t *testing.T) {
	u, _ := newStartedUnit()
	u.ToggleLearn()
	if u.Open() {
		t.Error("manual open in learn mode should be absorbed")
	}
	if !u.Snapshot().Pass() {
		t.Error("learn mode should pass audio")
	}
}

// Leaving Gate mode does not close an open gate, and the stopped timer
// means it stays open after returning.
func TestUnitStaleOpenAcrossLearn(t *testing.T) {
	u, c := newStartedUnit()
	u.SetOpenDuration(50)
	u.Open()
	c.advance(10)

	u.ToggleLearn()
	u.Open() // guarded, stops the counter
	u.ToggleLearn()

	c.advance(1000)
	u.Tick()
	if !u.Snapshot().Open {
		t.Error("stale open gate should survive the learn round trip")
	}
}

func TestUnitSetMode(t *testing.T) {
	u, _ := newStartedUnit()
	u.Open()
	u.SetMode(Boot)
	s := u.Snapshot()
	if s.Mode != Boot || !s.Open {
		t.Errorf("SetMode should only assign mode: %+v", s)
	}
	if u.Close() {
		t.Error("Close in BOOT should be absorbed")
	}
}

func TestUnitProcessUsesSnapshot(t *testing.T) {
	u, _ := newStartedUnit()
	in := makeStereo(4)
	out := make([]float32, len(in))

	u.Process(in, out)
	for i, s := range out {
		if s != 0 {
			t.Fatalf("closed gate out[%d] = %f", i, s)
		}
	}
	u.ToggleBypass()
	u.Process(in, out)
	if out[0] != in[0] || out[7] != in[7] {
		t.Error("bypass should pass audio")
	}
}

func TestUnitRunPushesDisplayChanges(t *testing.T) {
	u, _ := newStartedUnit()
	panel := NewPanel(0.1)
	notes := &sliceSource{}
	sink := make(chanSink, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		u.Run(ctx, time.Millisecond, panel, notes, sink)
		close(done)
	}()

	expect := func(want Display) {
		t.Helper()
		select {
		case got := <-sink:
			if got != want {
				t.Fatalf("sink got %s, want %s", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no display pushed, want %s", want)
		}
	}

	expect(Display{Red, Off})
	panel.Press(ButtonLearn)
	expect(Display{Blue, Blue})
	notes.push(noteOn(5, 70, 100))
	expect(Display{Red, Off})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if u.Status().Target != (Target{Channel: 5, Note: 70}) {
		t.Errorf("target = %s", u.Status().Target)
	}
	select {
	case d := <-sink:
		t.Errorf("unexpected extra display %s for unchanged state", d)
	default:
	}
}

func TestUnitConcurrentWriters(t *testing.T) {
	u := NewUnit(NewClockCounter(0))
	u.Start()
	panel := NewPanel(0.05)
	notes := &sliceSource{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.Run(ctx, time.Millisecond, panel, notes)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buf := makeStereo(64)
			out := make([]float32, len(buf))
			for j := 0; j < 200; j++ {
				switch (i + j) % 4 {
				case 0:
					u.HandleNote(noteOn(1, 60, 100))
				case 1:
					u.Open()
				case 2:
					panel.Press(ButtonOpen)
				case 3:
					u.Process(buf, out)
				}
			}
		}(i)
	}
	wg.Wait()

	if m := u.Status().Mode; m != Gate {
		t.Errorf("mode = %s, want GATE", m)
	}
}
