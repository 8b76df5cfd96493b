// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package elantech

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/ps2touch/ps2"
	"periph.io/x/ps2touch/touch"
)

// Version is the detected hardware version.
type Version int

const (
	V1 Version = iota + 1
	V2
	V3
)

func (v Version) String() string {
	return fmt.Sprintf("v%d", int(v))
}

// PacketSize returns the report packet size of the hardware version.
func (v Version) PacketSize() int {
	if v == V1 {
		return 4
	}
	return 6
}

// Vendor query opcodes, transmitted with the sliced encoding.
const (
	fwVersionQuery    = 0x01
	capabilitiesQuery = 0x02
)

// Register access opcodes. Versions 1 and 2 use separate read and write
// opcodes; version 3 has a single combined one.
const (
	registerRW    = 0x00
	registerRead  = 0x10
	registerWrite = 0x11
)

// customCommand prefixes the multi-byte command sequences of versions 2 and
// 3. It carries no argument and no reply.
const customCommand ps2.Command = 0x00f8

// Capability bits from the capabilities query.
const capRocker = 0x04

// Register 0x10/0x11 bits that must stay set on version 1 hardware.
const (
	reg10AbsoluteMode = 0x04
	reg114ByteMode    = 0x02
)

// The link is noisy while the device changes modes, so commands and the mode
// read-back are retried a bounded number of times.
const (
	commandTries  = 3
	commandDelay  = 200 * time.Millisecond
	readBackTries = 5
	readBackDelay = 100 * time.Millisecond
)

// Fixed geometry for hardware that cannot report its own.
const (
	xMinV1, xMaxV1 = 32, 544
	yMinV1, yMaxV1 = 32, 344
	xMaxV2         = 1152
	yMaxV2         = 768
	// Two-finger packets report y at half resolution.
	yMax2ftV2 = 384
)

// magicKnocks are the accepted replies to the detection probe.
var magicKnocks = [][3]byte{
	{0x3c, 0x03, 0xc8},
	{0x3c, 0x03, 0x00},
}

// ErrOutOfRangeRegister is returned for register addresses outside the two
// legal ranges 0x10-0x11 and 0x20-0x26. It is raised before any transport
// I/O.
var ErrOutOfRangeRegister = errors.New("elantech: register address out of range")

// DetectConfig configures Detect.
type DetectConfig struct {
	// Force accepts the device even when the magic knock reply or the
	// firmware version plausibility check does not match. Some genuine
	// touchpads ship with unexpected signatures.
	Force bool
}

// Opts holds the options for New.
type Opts struct {
	// Force is passed to detection, see DetectConfig.Force.
	Force bool
	// Sink receives decoded frames. It can be nil; decoding then still
	// runs (and still validates packets) but nothing is reported.
	Sink touch.Sink
	// Logf, when set, receives debug trace output such as packet dumps
	// and retry notices.
	Logf func(format string, args ...any)
}

// Dev is an Elantech touchpad switched to absolute reporting mode.
type Dev struct {
	p    ps2.Port
	opts Opts

	version      Version
	fw           uint32
	capabilities byte

	dec  *Decoder
	asm  *ps2.Assembler
	regs map[byte]byte
}

// Detect probes the device with the Elantech magic knock and verifies the
// reply signature and firmware version plausibility. It returns an error
// wrapping ps2.ErrNotFound when the device is not an Elantech touchpad; the
// device is then left for a generic fallback handler.
func Detect(p ps2.Port, cfg DetectConfig) error {
	// Best effort; some firmware ignores it.
	_, _ = p.Command(ps2.CmdResetDis, nil)

	knock := []ps2.Command{ps2.CmdDisable, ps2.CmdSetScale11, ps2.CmdSetScale11, ps2.CmdSetScale11}
	for _, cmd := range knock {
		if _, err := p.Command(cmd, nil); err != nil {
			return fmt.Errorf("elantech: sending magic knock: %v: %w", err, ps2.ErrNotFound)
		}
	}
	param, err := p.Command(ps2.CmdGetInfo, nil)
	if err != nil {
		return fmt.Errorf("elantech: sending magic knock: %v: %w", err, ps2.ErrNotFound)
	}
	match := false
	for _, k := range magicKnocks {
		if param[0] == k[0] && param[1] == k[1] && param[2] == k[2] {
			match = true
			break
		}
	}
	if !match && !cfg.Force {
		return fmt.Errorf("elantech: unexpected magic knock result 0x%02x, 0x%02x, 0x%02x: %w",
			param[0], param[1], param[2], ps2.ErrNotFound)
	}

	// Query the firmware version and reject replies that look like the
	// sampling rate echo of an ordinary mouse; those are known to answer
	// the knock too.
	param, err = querySliced(p, fwVersionQuery)
	if err != nil {
		return fmt.Errorf("elantech: querying firmware version: %v: %w", err, ps2.ErrNotFound)
	}
	if !signatureValid(param) && !cfg.Force {
		return fmt.Errorf("elantech: firmware version 0x%02x, 0x%02x, 0x%02x looks like a plain mouse: %w",
			param[0], param[1], param[2], ps2.ErrNotFound)
	}
	return nil
}

// signatureValid applies the firmware version plausibility filter: a zero
// major is invalid, and a reply whose third byte matches a legitimate mouse
// sampling rate is most likely a rate echo, not a version.
func signatureValid(param []byte) bool {
	if param[0] == 0 {
		return false
	}
	if param[1] == 0 {
		return true
	}
	for _, rate := range []byte{200, 100, 80, 60, 40, 20, 10} {
		if param[2] == rate {
			return false
		}
	}
	return true
}

// New detects an Elantech touchpad on the port, identifies its hardware
// version and switches it to absolute reporting mode. On any unrecoverable
// failure the error is returned and the device is left in its default
// relative mode. Call Enable afterwards to start the report stream.
func New(p ps2.Port, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	d := &Dev{p: p, opts: *opts, regs: map[byte]byte{}}
	if err := Detect(p, DetectConfig{Force: opts.Force}); err != nil {
		return nil, err
	}
	if err := d.identify(); err != nil {
		return nil, err
	}
	if err := d.setAbsoluteMode(); err != nil {
		return nil, fmt.Errorf("elantech: failed to put touchpad into absolute mode: %w", err)
	}
	if err := d.queryGeometry(); err != nil {
		return nil, err
	}
	d.asm = ps2.NewAssembler(d.version.PacketSize())
	return d, nil
}

// identify reads the firmware version and capabilities and derives the
// hardware version.
func (d *Dev) identify() error {
	param, err := querySliced(d.p, fwVersionQuery)
	if err != nil {
		return fmt.Errorf("elantech: failed to query firmware version: %w", err)
	}
	d.fw = uint32(param[0])<<16 | uint32(param[1])<<8 | uint32(param[2])

	switch {
	case d.fw < 0x020030:
		d.version = V1
	case d.fw&0xffff00 <= 0x140000:
		d.version = V2
	default:
		// Version 3 hardware answers a dedicated capability probe. Not
		// answering it is a detection failure, not a fallback.
		p1, err1 := d.customQuery(0x01)
		_, err2 := d.customQuery(0x04)
		if err1 != nil || err2 != nil || p1[0]&0x0f < 5 || p1[1]&0x0f < 6 {
			return fmt.Errorf("elantech: did not detect hardware version (fw 0x%06x): %w", d.fw, ps2.ErrNotFound)
		}
		d.version = V3
	}

	param, err = querySliced(d.p, capabilitiesQuery)
	if err != nil {
		return fmt.Errorf("elantech: failed to query capabilities: %w", err)
	}
	d.capabilities = param[0]

	d.dec = NewDecoder(d.version, d.fw, d.capabilities)
	d.dec.logf = d.opts.Logf
	d.debugf("assuming hardware version %s, firmware version %d.%d.%d",
		d.version, d.fw>>16, d.fw>>8&0xff, d.fw&0xff)
	return nil
}

// setAbsoluteMode writes the mode registers for the hardware version and,
// for versions 1 and 2, reads register 0x10 back: version 1 must confirm the
// absolute mode bit, version 2 merely needs to answer at all (the touchpad
// is still initializing until it does).
func (d *Dev) setAbsoluteMode() error {
	var err error
	switch d.version {
	case V1:
		if err = d.WriteRegister(0x10, 0x16); err == nil {
			err = d.WriteRegister(0x11, 0x8f)
		}
	case V2:
		// Values used by the vendor's Windows driver.
		if err = d.WriteRegister(0x10, 0x54); err == nil {
			if err = d.WriteRegister(0x11, 0x88); err == nil {
				err = d.WriteRegister(0x21, 0x60)
			}
		}
	case V3:
		err = d.WriteRegister(0x10, 0x0f)
	}
	if err != nil {
		return err
	}
	if d.version == V3 {
		return nil
	}

	var val byte
	for try := 0; ; try++ {
		val, err = d.ReadRegister(0x10)
		if err == nil {
			break
		}
		if try >= readBackTries-1 {
			return fmt.Errorf("failed to read back register 0x10: %w", err)
		}
		d.debugf("retrying read back (%d)", readBackTries-try-1)
		time.Sleep(readBackDelay)
	}
	if d.version == V1 && val&reg10AbsoluteMode == 0 {
		return errors.New("touchpad refuses to switch to absolute mode")
	}
	return nil
}

// queryGeometry fixes the session's coordinate bounds. Versions 1 and 2 use
// constant tables; version 3 reports packed geometry through a custom query.
func (d *Dev) queryGeometry() error {
	if d.version != V3 {
		return nil
	}
	param, err := d.customQuery(0x00)
	if err != nil {
		return fmt.Errorf("elantech: failed to query geometry: %w", err)
	}
	xMax := int32(param[0]&0x0f)<<8 | int32(param[1])
	yMax := int32(param[0]&0xf0)<<4 | int32(param[2])
	d.dec.SetGeometry(xMax, yMax)
	d.debugf("x_max = %d, y_max = %d", xMax, yMax)
	return nil
}

// Enable starts the report byte stream. Feed the stream to ProcessByte.
func (d *Dev) Enable() error {
	if _, err := d.command(ps2.CmdEnable, nil); err != nil {
		return fmt.Errorf("elantech: enable: %w", err)
	}
	return nil
}

// ProcessByte consumes one byte of the report stream. Once a packet is
// complete it is decoded and, when it produces a frame, reported to the
// sink. A corrupt packet returns an error wrapping ps2.ErrCorruptPacket; the
// assembler is reset so the stream can resynchronize and the session remains
// usable.
func (d *Dev) ProcessByte(b byte) error {
	pkt, ok := d.asm.Feed(b)
	if !ok {
		return nil
	}
	d.debugf("packet % 02x", pkt)
	f, err := d.dec.ProcessPacket(pkt)
	if err != nil {
		d.asm.Reset()
		return fmt.Errorf("elantech: %w", err)
	}
	if f == nil || d.opts.Sink == nil {
		return nil
	}
	return touch.Report(d.opts.Sink, f, d.dec.SlotCount())
}

// Reconnect re-runs detection and mode setup after the device lost power,
// for example on resume from suspend. It must not run concurrently with
// ProcessByte; all decoder state is reset.
func (d *Dev) Reconnect() error {
	if err := Detect(d.p, DetectConfig{Force: d.opts.Force}); err != nil {
		return err
	}
	if err := d.setAbsoluteMode(); err != nil {
		return fmt.Errorf("elantech: failed to put touchpad back into absolute mode: %w", err)
	}
	d.asm.Reset()
	d.dec.Reset()
	return d.Enable()
}

// Halt stops the report stream. Implements conn.Resource.
func (d *Dev) Halt() error {
	if _, err := d.command(ps2.CmdDisable, nil); err != nil {
		return fmt.Errorf("elantech: disable: %w", err)
	}
	return nil
}

// Version returns the detected hardware version.
func (d *Dev) Version() Version {
	return d.version
}

// FirmwareVersion returns the 24-bit firmware version (major, minor, micro
// byte triplet).
func (d *Dev) FirmwareVersion() uint32 {
	return d.fw
}

// Capabilities returns the raw capability byte.
func (d *Dev) Capabilities() byte {
	return d.capabilities
}

// Geometry returns the coordinate bounds fixed at handshake time. They do
// not change until a reconnect cycle.
func (d *Dev) Geometry() (xMin, xMax, yMin, yMax int32) {
	switch d.version {
	case V1:
		return xMinV1, xMaxV1, yMinV1, yMaxV1
	case V2:
		return 0, xMaxV2, 0, yMaxV2
	default:
		return 0, d.dec.xMax, 0, d.dec.yMax
	}
}

// SlotCount returns the number of multi-touch slots the device reports, zero
// for single-touch version 1 hardware.
func (d *Dev) SlotCount() int {
	return d.dec.SlotCount()
}

// ReportsPressure reports whether packets carry pressure and tool width.
func (d *Dev) ReportsPressure() bool {
	return d.dec.reportsPressure
}

// HasRocker reports whether the hardware has the up/down rocker buttons.
func (d *Dev) HasRocker() bool {
	return d.fw < 0x020000 && d.capabilities&capRocker != 0
}

// Decoder exposes the packet decoder, mainly for replaying recorded packet
// streams.
func (d *Dev) Decoder() *Decoder {
	return d.dec
}

func (d *Dev) String() string {
	return fmt.Sprintf("elantech %s fw %d.%d.%d", d.version, d.fw>>16, d.fw>>8&0xff, d.fw&0xff)
}

// command issues a command with bounded retries; the physical link drops
// commands while the device switches modes.
func (d *Dev) command(cmd ps2.Command, send []byte) ([]byte, error) {
	var recv []byte
	var err error
	for try := 0; try < commandTries; try++ {
		recv, err = d.p.Command(cmd, send)
		if err == nil {
			return recv, nil
		}
		if try < commandTries-1 {
			d.debugf("retrying ps2 command %s (%d)", cmd, commandTries-try-1)
			time.Sleep(commandDelay)
		}
	}
	return nil, err
}

// customQuery issues the version 3 style query: custom prefix, sub-command
// byte, then an info read.
func (d *Dev) customQuery(sub byte) ([]byte, error) {
	if _, err := d.p.Command(customCommand, nil); err != nil {
		return nil, err
	}
	if _, err := d.p.Command(ps2.Command(sub), nil); err != nil {
		return nil, err
	}
	return d.p.Command(ps2.CmdGetInfo, nil)
}

// querySliced issues a Synaptics style sliced query followed by an info
// read.
func querySliced(p ps2.Port, q byte) ([]byte, error) {
	if err := ps2.Sliced(p, q); err != nil {
		return nil, err
	}
	return p.Command(ps2.CmdGetInfo, nil)
}

func (d *Dev) debugf(format string, args ...any) {
	if d.opts.Logf != nil {
		d.opts.Logf(format, args...)
	}
}
