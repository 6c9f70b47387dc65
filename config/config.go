// Package config loads the driver's TOML settings file, grounded on
// nestor's use of github.com/BurntSushi/toml for the same purpose.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the peripheral driver's settings. None of this touches
// the emulator core's semantics (spec.md §1 treats the window, audio
// stream and input devices as external collaborators); it configures
// only how the driver wires itself to them.
type Config struct {
	Video struct {
		Scale      int  `toml:"scale"`
		VSync      bool `toml:"vsync"`
		FullScreen bool `toml:"fullscreen"`
	} `toml:"video"`

	Audio struct {
		Mute       bool `toml:"mute"`
		SampleRate int  `toml:"sample_rate"`
	} `toml:"audio"`

	Input struct {
		Up     string `toml:"up"`
		Down   string `toml:"down"`
		Left   string `toml:"left"`
		Right  string `toml:"right"`
		A      string `toml:"a"`
		B      string `toml:"b"`
		Select string `toml:"select"`
		Start  string `toml:"start"`
	} `toml:"input"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Default returns the settings used when no config file is supplied.
func Default() Config {
	var c Config
	c.Video.Scale = 3
	c.Video.VSync = true
	c.Audio.SampleRate = 44100
	c.Log.Level = "info"
	return c
}

// Load reads and parses a TOML settings file, returning Default
// values for any field the file doesn't set.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return c, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return c, nil
}
