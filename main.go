package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"midigate/audio"
	"midigate/config"
	"midigate/debug"
	"midigate/gate"
	"midigate/midi"
	"midigate/panel"
	"midigate/theme"
	"midigate/tui"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default ~/.config/midigate/config.json)")
		headless   = flag.Bool("headless", false, "run without the terminal UI, logging to stderr")
		debugLog   = flag.Bool("debug", false, "write ~/.config/midigate/debug.log")
		panelPort  = flag.String("panel", "", "serial port of a hardware front panel")
		baud       = flag.Int("baud", 0, "front panel baud rate")
		noAudio    = flag.Bool("no-audio", false, "do not open an audio stream")
		channel    = flag.Int("channel", -1, "trigger MIDI channel 0-15")
		note       = flag.Int("note", -1, "trigger note 0-127")
		saveConfig = flag.Bool("save-config", false, "write the effective config and exit")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *panelPort != "" {
		cfg.Panel.Port = *panelPort
	}
	if *baud > 0 {
		cfg.Panel.Baud = *baud
	}
	if *noAudio {
		cfg.Audio.Enabled = false
	}
	if *channel >= 0 {
		cfg.Gate.TargetChannel = *channel
	}
	if *note >= 0 {
		cfg.Gate.TargetNote = *note
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *saveConfig {
		if err := storeConfig(cfg, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch {
	case *headless:
		debug.UseWriter(os.Stderr)
	case *debugLog:
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	defer debug.Disable()

	if err := run(cfg, *headless); err != nil {
		debug.Error("main", "exit", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func storeConfig(cfg *config.Config, path string) error {
	if path == "" {
		return cfg.Save()
	}
	return cfg.SaveTo(path)
}

func run(cfg *config.Config, headless bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Gate core
	unit := gate.NewUnit(
		gate.NewClockCounter(cfg.Gate.TickHz),
		gate.WithTarget(gate.Target{Channel: cfg.Gate.TargetChannel, Note: uint8(cfg.Gate.TargetNote)}),
		gate.WithMaxOpenMs(cfg.Gate.MaxOpenMs),
	)
	controls := gate.NewPanel(cfg.Gate.InitialKnob)
	notes := midi.NewNoteQueue(midi.DefaultQueueSize)
	unit.Start()

	// MIDI controllers (hot-plug)
	opts := []midi.ManagerOption{
		midi.WithExclude(cfg.MIDI.Exclude),
		midi.WithPollRate(time.Duration(cfg.MIDI.PollMs) * time.Millisecond),
	}
	if !cfg.MIDI.Keyboards {
		opts = append(opts, midi.WithoutKeyboards())
	}
	opts = append(opts, midi.WithOverrides(func(name string) (midi.ControllerType, bool) {
		c := cfg.FindController(name)
		if c == nil {
			return midi.ControllerUnknown, false
		}
		return controllerType(c.Type), true
	}))
	deviceMgr := midi.NewDeviceManager(opts...)
	surface := midi.NewSurface(controls, notes)
	sinks := []gate.DisplaySink{surface}

	var wg sync.WaitGroup
	goRun := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	goRun(func() { deviceMgr.Run(ctx) })
	goRun(func() { surface.Run(ctx, deviceMgr.Events()) })

	// Serial front panel
	if cfg.Panel.Port != "" {
		p, err := panel.Open(cfg.Panel.Port, cfg.Panel.Baud, controls)
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
		defer p.Close()
		sinks = append(sinks, p)
		goRun(func() {
			if err := p.Run(ctx); err != nil {
				debug.Error("panel", "read loop", err)
			}
		})
	}

	// Audio
	var frames tui.FrameCounter
	if cfg.Audio.Enabled {
		terminate, err := audio.Init()
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
		defer terminate()
		engine := audio.NewEngine(audio.Config{
			SampleRate:   cfg.Audio.SampleRate,
			BlockSize:    cfg.Audio.BlockSize,
			InputDevice:  cfg.Audio.InputDevice,
			OutputDevice: cfg.Audio.OutputDevice,
		}, unit)
		if err := engine.Start(); err != nil {
			cancel()
			wg.Wait()
			return err
		}
		defer engine.Stop()
		frames = engine
	}

	// Control loop
	interval := time.Second / time.Duration(cfg.Gate.ControlRateHz)
	goRun(func() { unit.Run(ctx, interval, controls, notes, sinks...) })

	debug.Event("main", "running", "target", unit.Status().Target, "audio", cfg.Audio.Enabled, "panel", cfg.Panel.Port)

	if headless {
		<-ctx.Done()
	} else {
		th, err := uiTheme(cfg)
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
		m := tui.NewModel(unit, controls, tui.Sources{Devices: deviceMgr, Notes: notes, Audio: frames}, th, cfg.UI.RefreshHz)
		p := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("ui: %w", err)
		}
	}

	cancel()
	wg.Wait()
	return nil
}

func uiTheme(cfg *config.Config) (*theme.Theme, error) {
	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		return nil, fmt.Errorf("load palette: %w", err)
	}
	return theme.New(palette), nil
}

func controllerType(t config.ControllerType) midi.ControllerType {
	switch t {
	case config.ControllerLaunchpad:
		return midi.ControllerLaunchpad
	case config.ControllerKeyboard:
		return midi.ControllerKeyboard
	}
	return midi.ControllerUnknown
}
