package gate

import "testing"

func TestProjectTable(t *testing.T) {
	tests := []struct {
		mode     Mode
		open     bool
		bypassed bool
		want     Display
	}{
		{Gate, false, true, Display{Red, Red}},
		{Gate, true, true, Display{Red, Red}},
		{Gate, true, false, Display{Green, Off}},
		{Gate, false, false, Display{Red, Off}},
	}
	for _, tt := range tests {
		if got := Project(tt.mode, tt.open, tt.bypassed); got != tt.want {
			t.Errorf("Project(%s, open=%v, bypassed=%v) = %s, want %s",
				tt.mode, tt.open, tt.bypassed, got, tt.want)
		}
	}
}

func TestProjectIsTotal(t *testing.T) {
	for _, mode := range []Mode{Boot, Gate, MidiLearn} {
		for _, open := range []bool{false, true} {
			for _, bypassed := range []bool{false, true} {
				got := Project(mode, open, bypassed)
				var want Display
				switch mode {
				case Boot:
					want = Display{Off, Off}
				case MidiLearn:
					want = Display{Blue, Blue}
				case Gate:
					want = Display{Red, Off}
					if bypassed {
						want = Display{Red, Red}
					} else if open {
						want = Display{Green, Off}
					}
				}
				if got != want {
					t.Errorf("Project(%s, %v, %v) = %s, want %s", mode, open, bypassed, got, want)
				}
			}
		}
	}
}

func TestColorRGB(t *testing.T) {
	if Red.RGB() != [3]uint8{255, 0, 0} || Off.RGB() != [3]uint8{} {
		t.Error("unexpected RGB mapping")
	}
	if (Display{Green, Off}).String() != "green/off" {
		t.Errorf("Display.String() = %s", Display{Green, Off})
	}
}
