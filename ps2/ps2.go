// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ps2

import (
	"errors"
	"fmt"
	"io"
)

// Command is a PS/2 auxiliary device command. The low byte is the opcode,
// bits 8-11 hold the number of reply bytes and bits 12-15 the number of
// argument bytes sent after the opcode.
type Command uint16

// The standard PS/2 mouse command set.
const (
	CmdSetScale11 Command = 0x00e6
	CmdSetScale21 Command = 0x00e7
	CmdSetRes     Command = 0x10e8
	CmdGetInfo    Command = 0x03e9
	CmdSetStream  Command = 0x00ea
	CmdPoll       Command = 0x03eb
	CmdResetWrap  Command = 0x00ec
	CmdGetID      Command = 0x02f2
	CmdSetRate    Command = 0x10f3
	CmdEnable     Command = 0x00f4
	CmdDisable    Command = 0x00f5
	CmdResetDis   Command = 0x00f6
	CmdResetBat   Command = 0x02ff
)

// Protocol byte values seen on the wire.
const (
	Ack    = 0xfa
	Resend = 0xfe
)

// Op returns the opcode byte transmitted to the device.
func (c Command) Op() byte {
	return byte(c)
}

// SendLen returns the number of argument bytes the command carries.
func (c Command) SendLen() int {
	return int(c>>12) & 0xf
}

// RecvLen returns the number of reply bytes the command produces.
func (c Command) RecvLen() int {
	return int(c>>8) & 0xf
}

func (c Command) String() string {
	return fmt.Sprintf("0x%04x", uint16(c))
}

// Port is the synchronous command transport to a PS/2 device. Command blocks
// for the full round trip. The Reader side delivers the raw report byte
// stream the device emits while in reporting mode.
type Port interface {
	// Command issues cmd with the given argument bytes and returns the
	// device's reply. len(send) must equal cmd.SendLen() and the reply has
	// cmd.RecvLen() bytes.
	Command(cmd Command, send []byte) ([]byte, error)
	io.Reader
}

// Errors shared by the protocol drivers.
var (
	// ErrNotFound reports that the probed device did not answer a
	// detection handshake with a known signature. The device is simply not
	// one of ours; treat this as a soft failure.
	ErrNotFound = errors.New("ps2: device not detected")
	// ErrCorruptPacket reports that a complete report packet failed its
	// parity or bounds check. The packet is dropped and the byte stream
	// needs to resynchronize; the session itself stays usable.
	ErrCorruptPacket = errors.New("ps2: corrupt packet")
)

// Sliced transmits b to a device that only accepts single-byte commands, by
// sending four consecutive SetRes commands each carrying two bits of b,
// preceded by a SetScale11. Vendors use this to smuggle query and register
// opcodes past the standard command set.
func Sliced(p Port, b byte) error {
	if _, err := p.Command(CmdSetScale11, nil); err != nil {
		return fmt.Errorf("ps2: sliced command 0x%02x: %w", b, err)
	}
	for shift := 6; shift >= 0; shift -= 2 {
		if _, err := p.Command(CmdSetRes, []byte{(b >> uint(shift)) & 3}); err != nil {
			return fmt.Errorf("ps2: sliced command 0x%02x: %w", b, err)
		}
	}
	return nil
}
