package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"midigate/debug"
)

const (
	DefaultSampleRate = 48000
	DefaultBlockSize  = 4 // frames per callback
	channels          = 2 // interleaved L/R
)

// Processor fills out from in. Both are interleaved stereo of equal
// length; Process runs on the real-time thread and must not block.
type Processor interface {
	Process(in, out []float32)
}

// Config selects the duplex stream. Device indexes below zero use the
// system default.
type Config struct {
	SampleRate   float64
	BlockSize    int
	InputDevice  int
	OutputDevice int
}

// DefaultConfig is 48 kHz, 4-frame blocks on the default devices.
func DefaultConfig() Config {
	return Config{
		SampleRate:   DefaultSampleRate,
		BlockSize:    DefaultBlockSize,
		InputDevice:  -1,
		OutputDevice: -1,
	}
}

// Device describes an available audio device.
type Device struct {
	ID      int
	Name    string
	Inputs  int
	Outputs int
}

// paStream abstracts a PortAudio stream for testing.
type paStream interface {
	Start() error
	Stop() error
	Close() error
}

// Engine runs a full-duplex stereo stream through a Processor.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	proc   Processor
	stream paStream
	open   func(cfg Config, cb func(in, out []float32)) (paStream, error)

	running   atomic.Bool
	frames    atomic.Uint64
	callbacks atomic.Uint64
}

func NewEngine(cfg Config, proc Processor) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	return &Engine{cfg: cfg, proc: proc, open: openDuplex}
}

// Init initializes PortAudio; call the returned func on shutdown.
func Init() (func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	return func() { portaudio.Terminate() }, nil
}

// Devices lists the devices PortAudio can see. Requires Init.
func Devices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	out := make([]Device, 0, len(devices))
	for i, d := range devices {
		out = append(out, Device{ID: i, Name: d.Name, Inputs: d.MaxInputChannels, Outputs: d.MaxOutputChannels})
	}
	return out, nil
}

// Start opens and starts the stream. Starting a running engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running.Load() {
		return nil
	}
	s, err := e.open(e.cfg, e.callback)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if err := s.Start(); err != nil {
		s.Close()
		return fmt.Errorf("start stream: %w", err)
	}
	e.stream = s
	e.running.Store(true)
	debug.Event("audio", "stream started", "rate", e.cfg.SampleRate, "block", e.cfg.BlockSize)
	return nil
}

// Stop halts and closes the stream.
func (e *Engine) Stop() error {
	if !e.running.CompareAndSwap(true, false) {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	if err := e.stream.Stop(); err != nil {
		firstErr = fmt.Errorf("stop stream: %w", err)
	}
	if err := e.stream.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close stream: %w", err)
	}
	e.stream = nil
	debug.Event("audio", "stream stopped", "frames", e.frames.Load())
	return firstErr
}

func (e *Engine) Running() bool { return e.running.Load() }

// Frames is the number of stereo frames processed so far.
func (e *Engine) Frames() uint64 { return e.frames.Load() }

func (e *Engine) Callbacks() uint64 { return e.callbacks.Load() }

// callback runs on the PortAudio thread.
func (e *Engine) callback(in, out []float32) {
	e.proc.Process(in, out)
	e.frames.Add(uint64(len(out) / channels))
	e.callbacks.Add(1)
}

func openDuplex(cfg Config, cb func(in, out []float32)) (paStream, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	inDev, err := resolveDevice(devices, cfg.InputDevice, portaudio.DefaultInputDevice)
	if err != nil {
		return nil, fmt.Errorf("input device: %w", err)
	}
	outDev, err := resolveDevice(devices, cfg.OutputDevice, portaudio.DefaultOutputDevice)
	if err != nil {
		return nil, fmt.Errorf("output device: %w", err)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDev,
			Channels: channels,
			Latency:  inDev.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   outDev,
			Channels: channels,
			Latency:  outDev.DefaultLowOutputLatency,
		},
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: cfg.BlockSize,
	}
	s, err := portaudio.OpenStream(params, cb)
	if err != nil {
		return nil, err
	}
	debug.Log("audio", "duplex in=%s out=%s", inDev.Name, outDev.Name)
	return s, nil
}

// resolveDevice returns the device at idx if valid, otherwise calls fallback.
func resolveDevice(devices []*portaudio.DeviceInfo, idx int, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if idx >= 0 && idx < len(devices) {
		return devices[idx], nil
	}
	return fallback()
}
