// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bitbang implements a ps2.Port over two GPIO lines.
//
// PS/2 is an open-collector two-wire bus: the device generates the clock and
// both sides can pull either line low. This package emulates open-collector
// levels by switching the pins between driven-low output and pulled-up
// input, which works on any host periph.io supports.
//
// Timing is driven by the device's clock edges, so the package works at the
// bus's native 10-16.7kHz rate. Userspace scheduling jitter can still lose
// edges on a busy system; prefer the serio package where an i8042 and the
// serio_raw driver are available.
package bitbang

import (
	"fmt"
	"math/bits"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"periph.io/x/ps2touch/ps2"
)

const (
	// Clock inhibit time before a host transmission. The protocol requires
	// at least 100µs.
	inhibitTime = 150 * time.Microsecond
	// Deadline for a single clock edge from the device.
	edgeTimeout = 30 * time.Millisecond
	// Deadline for the first byte of a command reply.
	replyTimeout = 200 * time.Millisecond
	resendTries  = 3
)

// Port is a PS/2 bus bit-banged over a clock and a data pin.
type Port struct {
	mu  sync.Mutex
	clk gpio.PinIO
	dat gpio.PinIO
}

// New returns a Port using the given clock and data pins. Both lines are
// released (floating high) on return.
func New(clk, dat gpio.PinIO) (*Port, error) {
	p := &Port{clk: clk, dat: dat}
	if err := p.releaseClock(); err != nil {
		return nil, fmt.Errorf("bitbang: %w", err)
	}
	if err := p.releaseData(); err != nil {
		return nil, fmt.Errorf("bitbang: %w", err)
	}
	return p, nil
}

func (p *Port) String() string {
	return fmt.Sprintf("ps2(clk:%s, dat:%s)", p.clk, p.dat)
}

// Command implements ps2.Port.
func (p *Port) Command(cmd ps2.Command, send []byte) ([]byte, error) {
	if len(send) != cmd.SendLen() {
		return nil, fmt.Errorf("bitbang: command %s wants %d argument bytes, got %d", cmd, cmd.SendLen(), len(send))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.writeAcked(cmd.Op()); err != nil {
		return nil, fmt.Errorf("bitbang: command %s: %w", cmd, err)
	}
	for _, b := range send {
		if err := p.writeAcked(b); err != nil {
			return nil, fmt.Errorf("bitbang: command %s: %w", cmd, err)
		}
	}
	recv := make([]byte, cmd.RecvLen())
	for i := range recv {
		b, err := p.readByte(replyTimeout)
		if err != nil {
			return nil, fmt.Errorf("bitbang: command %s reply byte %d: %w", cmd, i, err)
		}
		recv[i] = b
	}
	return recv, nil
}

// Read implements ps2.Port. It blocks until the device clocks out at least
// one report byte.
func (p *Port) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// -1 disables the edge timeout.
	v, err := p.readByte(-1)
	if err != nil {
		return 0, fmt.Errorf("bitbang: %w", err)
	}
	b[0] = v
	return 1, nil
}

// Halt releases both lines. Implements conn.Resource.
func (p *Port) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.releaseClock(); err != nil {
		return err
	}
	return p.releaseData()
}

func (p *Port) writeAcked(b byte) error {
	for try := 0; try < resendTries; try++ {
		if err := p.writeByte(b); err != nil {
			return err
		}
		r, err := p.readByte(replyTimeout)
		if err != nil {
			return err
		}
		switch r {
		case ps2.Ack:
			return nil
		case ps2.Resend:
			continue
		default:
			return fmt.Errorf("unexpected reply 0x%02x to byte 0x%02x", r, b)
		}
	}
	return fmt.Errorf("byte 0x%02x not acknowledged after %d tries", b, resendTries)
}

// writeByte performs one host-to-device transmission: request-to-send, then
// eight data bits LSB first, odd parity and stop on the device's clock, then
// the device's ack bit.
func (p *Port) writeByte(b byte) error {
	// Inhibit the bus, then signal request-to-send.
	if err := p.clk.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(inhibitTime)
	if err := p.dat.Out(gpio.Low); err != nil {
		return err
	}
	if err := p.releaseClock(); err != nil {
		return err
	}

	parity := byte(1) ^ byte(bits.OnesCount8(b)&1)
	for i := 0; i < 8; i++ {
		if !p.clk.WaitForEdge(edgeTimeout) {
			return fmt.Errorf("clock timeout on data bit %d", i)
		}
		if err := p.setData(b>>uint(i)&1 == 1); err != nil {
			return err
		}
	}
	if !p.clk.WaitForEdge(edgeTimeout) {
		return fmt.Errorf("clock timeout on parity bit")
	}
	if err := p.setData(parity == 1); err != nil {
		return err
	}
	if !p.clk.WaitForEdge(edgeTimeout) {
		return fmt.Errorf("clock timeout on stop bit")
	}
	if err := p.releaseData(); err != nil {
		return err
	}
	// The device acknowledges by pulling data low for one clock.
	if !p.clk.WaitForEdge(edgeTimeout) {
		return fmt.Errorf("clock timeout on ack bit")
	}
	if p.dat.Read() != gpio.Low {
		return fmt.Errorf("device did not acknowledge byte 0x%02x", b)
	}
	return nil
}

// readByte samples one device-to-host frame: start bit, eight data bits LSB
// first, odd parity, stop.
func (p *Port) readByte(firstEdge time.Duration) (byte, error) {
	if !p.clk.WaitForEdge(firstEdge) {
		return 0, fmt.Errorf("timeout waiting for start bit")
	}
	if p.dat.Read() != gpio.Low {
		return 0, fmt.Errorf("framing error: no start bit")
	}
	var b, ones byte
	for i := 0; i < 8; i++ {
		if !p.clk.WaitForEdge(edgeTimeout) {
			return 0, fmt.Errorf("clock timeout on data bit %d", i)
		}
		if p.dat.Read() == gpio.High {
			b |= 1 << uint(i)
			ones++
		}
	}
	if !p.clk.WaitForEdge(edgeTimeout) {
		return 0, fmt.Errorf("clock timeout on parity bit")
	}
	parity := byte(0)
	if p.dat.Read() == gpio.High {
		parity = 1
	}
	if parity != 1^(ones&1) {
		return 0, fmt.Errorf("parity error on byte 0x%02x", b)
	}
	if !p.clk.WaitForEdge(edgeTimeout) {
		return 0, fmt.Errorf("clock timeout on stop bit")
	}
	return b, nil
}

func (p *Port) setData(high bool) error {
	if high {
		return p.releaseData()
	}
	return p.dat.Out(gpio.Low)
}

func (p *Port) releaseClock() error {
	return p.clk.In(gpio.PullUp, gpio.FallingEdge)
}

func (p *Port) releaseData() error {
	return p.dat.In(gpio.PullUp, gpio.NoEdge)
}

var _ ps2.Port = &Port{}
