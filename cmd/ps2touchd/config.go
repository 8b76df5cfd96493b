// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"periph.io/x/ps2touch/focaltech"
)

// Config is the daemon's TOML configuration.
type Config struct {
	Device    DeviceConfig    `toml:"device"`
	Elantech  ElantechConfig  `toml:"elantech"`
	Focaltech FocaltechConfig `toml:"focaltech"`
	Uinput    UinputConfig    `toml:"uinput"`
	Log       LogConfig       `toml:"log"`
}

type DeviceConfig struct {
	// Path is the serio_raw device node.
	Path string `toml:"path"`
	// Protocol forces one protocol family instead of probing both.
	// "auto", "focaltech" or "elantech".
	Protocol string `toml:"protocol"`
}

type ElantechConfig struct {
	// Force accepts devices with unexpected detection signatures.
	Force bool `toml:"force"`
	// Registers are tunable register overrides applied after the
	// handshake and re-applied when the config file changes. Keys are
	// register addresses ("0x21"), values the byte to write.
	Registers map[string]int64 `toml:"registers"`
}

type FocaltechConfig struct {
	// LargeContact selects the large-contact sentinel policy, "keep" or
	// "invalidate".
	LargeContact string `toml:"large_contact"`
}

type UinputConfig struct {
	Path string `toml:"path"`
	Name string `toml:"name"`
}

type LogConfig struct {
	// Level is a zerolog level name, e.g. "debug", "info", "warn".
	Level string `toml:"level"`
	// Pretty switches to human readable console output.
	Pretty bool `toml:"pretty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Path:     "/dev/serio_raw0",
			Protocol: "auto",
		},
		Focaltech: FocaltechConfig{
			LargeContact: "keep",
		},
		Uinput: UinputConfig{
			Path: "/dev/uinput",
			Name: "PS/2 Touchpad",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the TOML file at path over the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if _, err := cfg.RegisterOverrides(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if _, err := cfg.LargeContactPolicy(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	switch cfg.Device.Protocol {
	case "auto", "focaltech", "elantech":
	default:
		return nil, fmt.Errorf("parsing %s: unknown protocol %q", path, cfg.Device.Protocol)
	}
	return cfg, nil
}

// RegisterOverrides converts the string-keyed register table to addresses
// and values.
func (c *Config) RegisterOverrides() (map[byte]byte, error) {
	out := make(map[byte]byte, len(c.Elantech.Registers))
	for key, val := range c.Elantech.Registers {
		reg, err := strconv.ParseUint(key, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("bad register address %q: %w", key, err)
		}
		if val < 0 || val > 0xff {
			return nil, fmt.Errorf("register %q value %d out of byte range", key, val)
		}
		out[byte(reg)] = byte(val)
	}
	return out, nil
}

// LargeContactPolicy maps the config string to the focaltech policy.
func (c *Config) LargeContactPolicy() (focaltech.LargeContactPolicy, error) {
	switch c.Focaltech.LargeContact {
	case "", "keep":
		return focaltech.LargeContactKeep, nil
	case "invalidate":
		return focaltech.LargeContactInvalidate, nil
	}
	return 0, fmt.Errorf("unknown large_contact policy %q", c.Focaltech.LargeContact)
}
