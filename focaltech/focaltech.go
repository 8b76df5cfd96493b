// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package focaltech

import (
	"fmt"

	"periph.io/x/ps2touch/ps2"
	"periph.io/x/ps2touch/touch"
)

// customCommand carries one argument byte and is used to switch between
// mouse emulation and the native protocol.
const customCommand ps2.Command = 0x10f8

// fingerprint is the register contents shared by all known devices. There is
// no identification command, so detection compares all of them.
var fingerprint = []struct {
	reg  byte
	want [3]byte
}{
	{0, [3]byte{0x69, 0x80, 0x80}},
	{1, [3]byte{0x36, 0x53, 0x03}},
	{2, [3]byte{0x00, 0x13, 0x0d}},
	{5, [3]byte{0x0b, 0x03, 0x00}},
	{6, [3]byte{0x23, 0xbd, 0xf8}},
}

// Opts holds the options for New.
type Opts struct {
	// Sink receives decoded frames. It can be nil; decoding then still
	// runs but nothing is reported.
	Sink touch.Sink
	// LargeContact selects how large-contact sentinel packets are
	// handled. The zero value keeps the previous finger state.
	LargeContact LargeContactPolicy
	// Logf, when set, receives debug trace output.
	Logf func(format string, args ...any)
}

// Dev is a FocalTech touchpad switched to its native protocol.
type Dev struct {
	p    ps2.Port
	opts Opts
	dec  *Decoder
	asm  *ps2.Assembler
}

// Detect probes the device by comparing its register contents against the
// fingerprint shared by all known devices. It returns an error wrapping
// ps2.ErrNotFound when the device is not a FocalTech touchpad.
func Detect(p ps2.Port) error {
	for _, fp := range fingerprint {
		param, err := readRegister(p, fp.reg)
		if err != nil {
			return fmt.Errorf("focaltech: reading register %d: %v: %w", fp.reg, err, ps2.ErrNotFound)
		}
		if param[0] != fp.want[0] || param[1] != fp.want[1] || param[2] != fp.want[2] {
			return fmt.Errorf("focaltech: register %d reads % 02x, want % 02x: %w",
				fp.reg, param, fp.want, ps2.ErrNotFound)
		}
	}
	return nil
}

// readRegister reads one device register. The sequence abuses standard
// commands: the resolution argument selects the register and the info reply
// carries its content.
func readRegister(p ps2.Port, reg byte) ([]byte, error) {
	if _, err := p.Command(ps2.CmdSetScale11, nil); err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Command(ps2.CmdSetRes, []byte{0}); err != nil {
			return nil, err
		}
	}
	if _, err := p.Command(ps2.CmdSetRes, []byte{reg}); err != nil {
		return nil, err
	}
	return p.Command(ps2.CmdGetInfo, nil)
}

// New detects a FocalTech touchpad on the port and switches it to the native
// protocol. The device is left reporting; feed the byte stream to
// ProcessByte. On failure the device is reset back to mouse emulation mode.
func New(p ps2.Port, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	d := &Dev{p: p, opts: *opts}
	if err := Detect(p); err != nil {
		return nil, err
	}
	if err := reset(p); err != nil {
		return nil, err
	}
	if err := d.switchProtocol(); err != nil {
		// Leave the device usable as a plain mouse.
		_ = reset(p)
		return nil, fmt.Errorf("focaltech: unable to initialize the device: %w", err)
	}
	d.dec = NewDecoder(opts.LargeContact)
	d.dec.logf = opts.Logf
	d.asm = ps2.NewAssembler(PacketSize)
	return d, nil
}

// reset puts the device back into its power-on mouse emulation mode.
func reset(p ps2.Port) error {
	if _, err := p.Command(ps2.CmdResetDis, nil); err != nil {
		return fmt.Errorf("focaltech: reset: %w", err)
	}
	param, err := p.Command(ps2.CmdResetBat, nil)
	if err != nil {
		return fmt.Errorf("focaltech: reset: %w", err)
	}
	if param[0] != 0xaa || param[1] != 0x00 {
		return fmt.Errorf("focaltech: post-reset self test reports % 02x", param)
	}
	return nil
}

// switchProtocol enables the native multi-touch protocol and starts
// reporting.
func (d *Dev) switchProtocol() error {
	for i := 0; i < 3; i++ {
		if _, err := d.p.Command(customCommand, []byte{0}); err != nil {
			return err
		}
	}
	if _, err := d.p.Command(customCommand, []byte{1}); err != nil {
		return err
	}
	if _, err := d.p.Command(ps2.CmdSetScale11, nil); err != nil {
		return err
	}
	_, err := d.p.Command(ps2.CmdEnable, nil)
	return err
}

// ProcessByte consumes one byte of the report stream. Once a packet is
// complete the decoded frame is reported to the sink.
func (d *Dev) ProcessByte(b byte) error {
	pkt, ok := d.asm.Feed(b)
	if !ok {
		return nil
	}
	d.debugf("packet % 02x", pkt)
	f, err := d.dec.ProcessPacket(pkt)
	if err != nil {
		d.asm.Reset()
		return fmt.Errorf("focaltech: %w", err)
	}
	if f == nil || d.opts.Sink == nil {
		return nil
	}
	return touch.Report(d.opts.Sink, f, len(d.dec.fingers))
}

// Reconnect resets the device and re-enables the native protocol after it
// lost power, for example on resume from suspend. It must not run
// concurrently with ProcessByte; all decoder state is reset.
func (d *Dev) Reconnect() error {
	if err := reset(d.p); err != nil {
		return err
	}
	if err := d.switchProtocol(); err != nil {
		return fmt.Errorf("focaltech: unable to initialize the device: %w", err)
	}
	d.asm.Reset()
	d.dec.Reset()
	return nil
}

// Halt resets the device back into mouse emulation mode, stopping the native
// report stream. Implements conn.Resource.
func (d *Dev) Halt() error {
	return reset(d.p)
}

// Geometry returns the fixed coordinate bounds.
func (d *Dev) Geometry() (xMin, xMax, yMin, yMax int32) {
	return 0, MaxX, 0, MaxY
}

// SlotCount returns the number of multi-touch slots.
func (d *Dev) SlotCount() int {
	return len(d.dec.fingers)
}

// Decoder exposes the packet decoder, mainly for replaying recorded packet
// streams.
func (d *Dev) Decoder() *Decoder {
	return d.dec
}

func (d *Dev) String() string {
	return "focaltech touchpad"
}

func (d *Dev) debugf(format string, args ...any) {
	if d.opts.Logf != nil {
		d.opts.Logf(format, args...)
	}
}
