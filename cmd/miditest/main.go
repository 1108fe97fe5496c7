package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"midigate/audio"
	"midigate/gate"
	"midigate/midi"
	"midigate/panel"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch os.Args[1] {
	case "list":
		listPorts()
	case "notes":
		monitorNotes(ctx)
	case "leds":
		testLEDs()
	case "poll":
		pollDevices(ctx)
	case "panel":
		if len(os.Args) < 3 {
			fmt.Println("usage: miditest panel <serial port>")
			return
		}
		testPanel(ctx, os.Args[2])
	case "audio":
		listAudio()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("midigate hardware checks")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list          - List MIDI and serial ports and how midigate sees them")
	fmt.Println("  notes         - Print decoded note events from every input")
	fmt.Println("  leds          - Cycle the display states on a Launchpad")
	fmt.Println("  poll          - Watch controllers connect and disconnect")
	fmt.Println("  panel <port>  - Drive a serial front panel and print its reports")
	fmt.Println("  audio         - List audio devices")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	dm := midi.NewDeviceManager()
	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %-40s %s\n", i, p.String(), dm.Classify(p.String()))
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}

	fmt.Println("\n=== Serial Ports ===")
	ports, err := panel.Ports()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}
}

func monitorNotes(ctx context.Context) {
	ins := gomidi.GetInPorts()
	if len(ins) == 0 {
		fmt.Println("No MIDI inputs")
		return
	}
	target := gate.DefaultTarget
	fmt.Printf("Listening on %d inputs, default trigger %s. Ctrl+C to exit.\n", len(ins), target)

	for _, in := range ins {
		name := in.String()
		stopFn, err := gomidi.ListenTo(in, func(msg gomidi.Message, ts int32) {
			e := midi.Decode(msg)
			if e.Type == gate.EventOther {
				return
			}
			mark := ""
			if e.Strikes() && target.Matches(e) {
				mark = "  <- opens gate"
			}
			fmt.Printf("[%8dms] %-30s %s%s\n", ts, name, e, mark)
		})
		if err != nil {
			fmt.Printf("  %s: %v\n", name, err)
			continue
		}
		defer stopFn()
	}
	<-ctx.Done()
}

func findLaunchpad() (drivers.In, drivers.Out, string) {
	for _, in := range gomidi.GetInPorts() {
		name := strings.ToLower(in.String())
		if !strings.Contains(name, "launchpad") || !strings.Contains(name, "midi") {
			continue
		}
		for _, out := range gomidi.GetOutPorts() {
			if strings.EqualFold(out.String(), in.String()) {
				return in, out, in.String()
			}
		}
	}
	return nil, nil, ""
}

func testLEDs() {
	fmt.Println("Testing display states...")

	in, out, name := findLaunchpad()
	if out == nil {
		fmt.Println("No Launchpad found")
		return
	}
	fmt.Printf("Using: %s\n", name)

	lp, err := midi.NewLaunchpadController(name, in, out)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer lp.Close()

	states := []struct {
		label string
		mode  gate.Mode
		open  bool
		byp   bool
	}{
		{"boot", gate.Boot, false, false},
		{"gate closed", gate.Gate, false, false},
		{"gate open", gate.Gate, true, false},
		{"bypassed", gate.Gate, false, true},
		{"learn", gate.MidiLearn, false, false},
	}
	for _, s := range states {
		d := gate.Project(s.mode, s.open, s.byp)
		fmt.Printf("  %-12s %s\n", s.label, d)
		grid, side := midi.Layout(d, 0.5)
		for row := 0; row < 8; row++ {
			for col := 0; col < 8; col++ {
				lp.SetLEDRGB(row, col, grid[row][col], midi.ChannelStatic)
			}
			lp.SetLEDRGB(row, 8, side[row], midi.ChannelStatic)
		}
		time.Sleep(time.Second)
	}

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()
	fmt.Printf("Done! (%d LED messages)\n", lp.Sent())
}

func pollDevices(ctx context.Context) {
	fmt.Println("Watching for controllers. Ctrl+C to exit.")

	dm := midi.NewDeviceManager()
	go dm.Run(ctx)

	for ev := range dm.Events() {
		kind := ""
		if ev.Controller != nil {
			kind = ev.Controller.Type().String()
		}
		fmt.Printf("[%s] %s %s %s\n", time.Now().Format("15:04:05"), ev.Type, ev.ID, kind)
	}
}

func testPanel(ctx context.Context, port string) {
	controls := gate.NewPanel(0)
	p, err := panel.Open(port, panel.DefaultBaud, controls)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer p.Close()

	go func() {
		if err := p.Run(ctx); err != nil {
			fmt.Printf("Read error: %v\n", err)
		}
	}()

	fmt.Println("Cycling indicators; press panel buttons to see reports. Ctrl+C to exit.")
	displays := []gate.Display{
		{LED1: gate.Red, LED2: gate.Off},
		{LED1: gate.Green, LED2: gate.Off},
		{LED1: gate.Red, LED2: gate.Red},
		{LED1: gate.Blue, LED2: gate.Blue},
	}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			fmt.Printf("Done! (%d bad frames)\n", p.BadFrames())
			return
		case <-ticker.C:
			p.Show(displays[i%len(displays)])
			for _, b := range []gate.Button{gate.ButtonOpen, gate.ButtonLearn, gate.ButtonBypass} {
				if controls.Edge(b) {
					fmt.Printf("  button %s\n", b)
				}
			}
			fmt.Printf("\r  knob %.2f ", controls.Knob())
		}
	}
}

func listAudio() {
	terminate, err := audio.Init()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer terminate()

	devices, err := audio.Devices()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("=== Audio Devices ===")
	for _, d := range devices {
		fmt.Printf("  %d: %-40s in:%d out:%d\n", d.ID, d.Name, d.Inputs, d.Outputs)
	}
}
