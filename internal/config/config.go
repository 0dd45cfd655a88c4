// Package config manages persistent user preferences for the boodler-play
// host. Settings are stored as JSON under the user's config directory.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// dirName is the per-user config subdirectory holding the preferences file.
const dirName = "boodler"

// Config holds all persistent user preferences for the demo host.
type Config struct {
	OutputDevice   string  `json:"output_device"`
	SampleRateHint int     `json:"sample_rate_hint"`
	FramesPerBuf   int     `json:"frames_per_buf"`
	BufferCount    int     `json:"buffer_count"`
	Verbose        bool    `json:"verbose"`
	PanNormalize   bool    `json:"pan_normalize"`
	MasterVolume   float64 `json:"master_volume"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		OutputDevice:   "",
		SampleRateHint: 44100,
		FramesPerBuf:   1024,
		BufferCount:    3,
		Verbose:        false,
		PanNormalize:   false,
		MasterVolume:   1.0,
	}
}

// sanitized clamps fields a hand-edited or stale preferences file may
// carry out of range back to values the engine can actually run with.
func (c Config) sanitized() Config {
	def := Default()
	if c.SampleRateHint <= 0 {
		c.SampleRateHint = def.SampleRateHint
	}
	if c.FramesPerBuf <= 0 {
		c.FramesPerBuf = def.FramesPerBuf
	}
	// The device ring needs at least two slots.
	if c.BufferCount < 2 {
		c.BufferCount = 2
	}
	if c.MasterVolume < 0 {
		c.MasterVolume = 0
	}
	return c
}

// Path returns the absolute path to the preferences file.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, dirName, "config.json"), nil
}

// Load reads the preferences file, returning Default() when the file is
// missing or malformed, never an error. Loaded values are sanitized, so a
// hand-edited file cannot hand the engine an unusable buffer size or a
// one-slot ring.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg.sanitized()
}

// Save writes cfg to the preferences file, creating the config directory
// on first save.
func Save(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
