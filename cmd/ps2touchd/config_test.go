// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"periph.io/x/ps2touch/focaltech"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ps2touchd.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device.Path != "/dev/serio_raw0" {
		t.Errorf("device path = %q", cfg.Device.Path)
	}
	if cfg.Device.Protocol != "auto" {
		t.Errorf("protocol = %q", cfg.Device.Protocol)
	}
	policy, err := cfg.LargeContactPolicy()
	if err != nil || policy != focaltech.LargeContactKeep {
		t.Errorf("policy = %v, %v", policy, err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[device]
path = "/dev/serio_raw1"
protocol = "elantech"

[elantech]
force = true

[elantech.registers]
"0x21" = 0x60
"0x10" = 22

[focaltech]
large_contact = "invalidate"

[log]
level = "debug"
pretty = true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device.Path != "/dev/serio_raw1" || cfg.Device.Protocol != "elantech" {
		t.Errorf("device = %+v", cfg.Device)
	}
	if !cfg.Elantech.Force {
		t.Error("force lost")
	}
	regs, err := cfg.RegisterOverrides()
	if err != nil {
		t.Fatal(err)
	}
	if regs[0x21] != 0x60 || regs[0x10] != 22 {
		t.Errorf("registers = %v", regs)
	}
	policy, err := cfg.LargeContactPolicy()
	if err != nil || policy != focaltech.LargeContactInvalidate {
		t.Errorf("policy = %v, %v", policy, err)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadConfigBadRegister(t *testing.T) {
	path := writeConfig(t, `
[elantech.registers]
"bogus" = 1
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for a bad register address")
	}
	path = writeConfig(t, `
[elantech.registers]
"0x21" = 300
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for an out of range value")
	}
}

func TestLoadConfigBadProtocol(t *testing.T) {
	path := writeConfig(t, `
[device]
protocol = "synaptics"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for an unknown protocol")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
