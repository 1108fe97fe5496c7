package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ControllerType forces how a MIDI port is treated
type ControllerType string

const (
	ControllerLaunchpad ControllerType = "launchpad"
	ControllerKeyboard  ControllerType = "keyboard"
	ControllerIgnore    ControllerType = "ignore"
)

// ControllerConfig overrides name-based detection for one port
type ControllerConfig struct {
	PortName string         `json:"portName"`
	Type     ControllerType `json:"type"`
}

// GateConfig holds the gate's timing and its power-on trigger.
// The learned trigger is never written back.
type GateConfig struct {
	MaxOpenMs     float64 `json:"maxOpenMs"`
	InitialKnob   float64 `json:"initialKnob"`
	TargetChannel int     `json:"targetChannel"` // 0-15 as on the wire
	TargetNote    int     `json:"targetNote"`
	TickHz        uint32  `json:"tickHz"`
	ControlRateHz int     `json:"controlRateHz"`
}

// AudioConfig selects the duplex stream; devices below zero are system defaults
type AudioConfig struct {
	Enabled      bool    `json:"enabled"`
	SampleRate   float64 `json:"sampleRate"`
	BlockSize    int     `json:"blockSize"`
	InputDevice  int     `json:"inputDevice"`
	OutputDevice int     `json:"outputDevice"`
}

// PanelConfig is the serial front panel; an empty port disables it
type PanelConfig struct {
	Port string `json:"port,omitempty"`
	Baud int    `json:"baud"`
}

// MIDIConfig controls device scanning
type MIDIConfig struct {
	Exclude   []string `json:"exclude,omitempty"`
	Keyboards bool     `json:"keyboards"`
	PollMs    int      `json:"pollMs"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	RefreshHz int    `json:"refreshHz,omitempty"`
	Palette   string `json:"palette,omitempty"` // GIMP .gpl file
}

// Config is the main configuration structure
type Config struct {
	Gate        GateConfig         `json:"gate"`
	Audio       AudioConfig        `json:"audio"`
	Panel       PanelConfig        `json:"panel"`
	MIDI        MIDIConfig         `json:"midi"`
	Controllers []ControllerConfig `json:"controllers,omitempty"`
	UI          UIConfig           `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Gate: GateConfig{
			MaxOpenMs:     1000,
			InitialKnob:   0.1,
			TargetChannel: 1,
			TargetNote:    60,
			TickHz:        1_000_000,
			ControlRateHz: 1000,
		},
		Audio: AudioConfig{
			Enabled:      true,
			SampleRate:   48000,
			BlockSize:    4,
			InputDevice:  -1,
			OutputDevice: -1,
		},
		Panel: PanelConfig{Baud: 115200},
		MIDI: MIDIConfig{
			Exclude:   []string{"Midi Through", "Through Port", "Dummy"},
			Keyboards: true,
			PollMs:    1000,
		},
		UI: UIConfig{RefreshHz: 30},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midigate"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the default config file, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads path over the defaults, so omitted fields keep their
// default values. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks ranges the gate and devices rely on
func (c *Config) Validate() error {
	g := c.Gate
	switch {
	case g.MaxOpenMs <= 0:
		return fmt.Errorf("gate.maxOpenMs must be positive, got %v", g.MaxOpenMs)
	case g.InitialKnob < 0 || g.InitialKnob > 1:
		return fmt.Errorf("gate.initialKnob must be in [0,1], got %v", g.InitialKnob)
	case g.TargetChannel < 0 || g.TargetChannel > 15:
		return fmt.Errorf("gate.targetChannel must be 0-15, got %d", g.TargetChannel)
	case g.TargetNote < 0 || g.TargetNote > 127:
		return fmt.Errorf("gate.targetNote must be 0-127, got %d", g.TargetNote)
	case g.TickHz == 0:
		return errors.New("gate.tickHz must be positive")
	case g.ControlRateHz <= 0 || g.ControlRateHz > 100_000:
		return fmt.Errorf("gate.controlRateHz must be 1-100000, got %d", g.ControlRateHz)
	case c.Audio.SampleRate <= 0:
		return fmt.Errorf("audio.sampleRate must be positive, got %v", c.Audio.SampleRate)
	case c.Audio.BlockSize <= 0:
		return fmt.Errorf("audio.blockSize must be positive, got %d", c.Audio.BlockSize)
	case c.Panel.Baud <= 0:
		return fmt.Errorf("panel.baud must be positive, got %d", c.Panel.Baud)
	}
	for _, ctrl := range c.Controllers {
		switch ctrl.Type {
		case ControllerLaunchpad, ControllerKeyboard, ControllerIgnore:
		default:
			return fmt.Errorf("controller %q: unknown type %q", ctrl.PortName, ctrl.Type)
		}
	}
	return nil
}

// FindController finds a controller config by port name
func (c *Config) FindController(portName string) *ControllerConfig {
	for i := range c.Controllers {
		if c.Controllers[i].PortName == portName {
			return &c.Controllers[i]
		}
	}
	return nil
}
