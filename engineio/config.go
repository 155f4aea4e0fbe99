// Package engineio is the control-plane boundary between a host transport
// (CLI REPL, hardware device callback) and the render core: bounded
// command/event queues, a topology dispatcher that serializes graph edits
// off the audio thread, and the block clock that drives Project.Render.
package engineio

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LatencyClass picks a buffer size the way a DAW's output-device panel
// does, without exposing raw frame counts to a config file (mirrors the
// teacher session package's AudioSpec.LatencyHint).
type LatencyClass string

const (
	LatencyLow    LatencyClass = "low"
	LatencyMedium LatencyClass = "medium"
	LatencyHigh   LatencyClass = "high"
)

// MapLatencyToBuffer resolves a LatencyClass to a block size in frames.
func MapLatencyToBuffer(c LatencyClass) int {
	switch c {
	case LatencyLow:
		return 128
	case LatencyHigh:
		return 1024
	default:
		return 256
	}
}

// Config is the engine's YAML-loadable configuration: project location,
// device hints, and the latency/voice knobs the control plane exposes.
type Config struct {
	ProjectPath    string       `yaml:"project_path"`
	SampleRate     float64      `yaml:"sample_rate"`
	LatencyHint    LatencyClass `yaml:"latency_hint"`
	BufferSize     int          `yaml:"buffer_size"` // explicit override; 0 defers to LatencyHint
	Channels       int          `yaml:"channels"`
	MaxVoices      int          `yaml:"max_voices"`
	DeviceNameHint string       `yaml:"device_name_hint"`
}

// DefaultConfig is 48kHz stereo, medium latency, an 8-voice polyphony
// ceiling.
func DefaultConfig() Config {
	return Config{
		SampleRate:  48000,
		LatencyHint: LatencyMedium,
		Channels:    2,
		MaxVoices:   8,
	}
}

// ResolvedBufferSize returns BufferSize if set, else the latency class's
// mapped default, resolved before opening the device.
func (c Config) ResolvedBufferSize() int {
	if c.BufferSize > 0 {
		return c.BufferSize
	}
	return MapLatencyToBuffer(c.LatencyHint)
}

// LoadConfig reads and validates a YAML config file, filling in
// DefaultConfig's values for anything left unset.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 2
	}
	if cfg.MaxVoices == 0 {
		cfg.MaxVoices = 8
	}
	return cfg, nil
}
