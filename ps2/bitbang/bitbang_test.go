// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bitbang

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// frameScript drives one device-to-host transmission: each clock edge exposes
// the next data line level.
type frameScript struct {
	levels []gpio.Level
	i      int
	cur    gpio.Level
}

type clockPin struct {
	gpiotest.Pin
	s *frameScript
}

func (p *clockPin) In(gpio.Pull, gpio.Edge) error {
	return nil
}

func (p *clockPin) WaitForEdge(time.Duration) bool {
	if p.s.i >= len(p.s.levels) {
		return false
	}
	p.s.cur = p.s.levels[p.s.i]
	p.s.i++
	return true
}

type dataPin struct {
	gpiotest.Pin
	s *frameScript
}

func (p *dataPin) Read() gpio.Level {
	return p.s.cur
}

// frame lays out the transmission of b: start bit, eight data bits LSB first,
// odd parity, stop.
func frame(b byte) []gpio.Level {
	levels := []gpio.Level{gpio.Low}
	ones := 0
	for i := 0; i < 8; i++ {
		bit := b>>uint(i)&1 == 1
		if bit {
			ones++
		}
		levels = append(levels, gpio.Level(bit))
	}
	return append(levels, gpio.Level(ones%2 == 0), gpio.High)
}

func TestRead(t *testing.T) {
	s := &frameScript{levels: frame(0xa5)}
	p, err := New(&clockPin{Pin: gpiotest.Pin{N: "CLK"}, s: s}, &dataPin{Pin: gpiotest.Pin{N: "DAT"}, s: s})
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	n, err := p.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || buf[0] != 0xa5 {
		t.Fatalf("Read = %d bytes, % 02x, want 1 byte 0xa5", n, buf[:n])
	}
	// No more edges: the next read times out instead of blocking.
	if _, err := p.Read(buf); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestReadParityError(t *testing.T) {
	levels := frame(0xa5)
	levels[9] = !levels[9]
	s := &frameScript{levels: levels}
	p, err := New(&clockPin{Pin: gpiotest.Pin{N: "CLK"}, s: s}, &dataPin{Pin: gpiotest.Pin{N: "DAT"}, s: s})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Read(make([]byte, 1)); err == nil {
		t.Fatal("expected a parity error")
	}
}
