// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package elantech

import (
	"fmt"

	"periph.io/x/ps2touch/ps2"
)

// validRegister reports whether reg is one of the two legal address ranges,
// 0x10-0x11 and 0x20-0x26.
func validRegister(reg byte) bool {
	if reg < 0x10 || reg > 0x26 {
		return false
	}
	if reg > 0x11 && reg < 0x20 {
		return false
	}
	return true
}

// ReadRegister reads a device register. The command sequence depends on the
// hardware version: version 1 uses sliced encoding, versions 2 and 3 use the
// custom command prefix with retried single commands.
func (d *Dev) ReadRegister(reg byte) (byte, error) {
	if !validRegister(reg) {
		return 0, ErrOutOfRangeRegister
	}
	opcode := byte(registerRead)
	if d.version == V3 {
		opcode = registerRW
	}

	var param []byte
	var err error
	switch d.version {
	case V1:
		if err = ps2.Sliced(d.p, opcode); err == nil {
			if err = ps2.Sliced(d.p, reg); err == nil {
				param, err = d.p.Command(ps2.CmdGetInfo, nil)
			}
		}
	default:
		if _, err = d.command(customCommand, nil); err == nil {
			if _, err = d.command(ps2.Command(opcode), nil); err == nil {
				if _, err = d.command(customCommand, nil); err == nil {
					if _, err = d.command(ps2.Command(reg), nil); err == nil {
						param, err = d.command(ps2.CmdGetInfo, nil)
					}
				}
			}
		}
	}
	if err != nil {
		return 0, fmt.Errorf("elantech: failed to read register 0x%02x: %w", reg, err)
	}
	d.regs[reg] = param[0]
	return param[0], nil
}

// WriteRegister writes a device register. Version 3 hardware uses a combined
// write-and-verify sequence; a read-back mismatch fails the write. The
// register shadow is updated only on success.
func (d *Dev) WriteRegister(reg, val byte) error {
	if !validRegister(reg) {
		return ErrOutOfRangeRegister
	}

	var err error
	switch d.version {
	case V1:
		if err = ps2.Sliced(d.p, registerWrite); err == nil {
			if err = ps2.Sliced(d.p, reg); err == nil {
				if err = ps2.Sliced(d.p, val); err == nil {
					_, err = d.p.Command(ps2.CmdSetScale11, nil)
				}
			}
		}
	case V2:
		seq := []ps2.Command{customCommand, registerWrite, customCommand, ps2.Command(reg), customCommand, ps2.Command(val), ps2.CmdSetScale11}
		for _, cmd := range seq {
			if _, err = d.command(cmd, nil); err != nil {
				break
			}
		}
	case V3:
		err = d.modeCommand(reg, val)
	}
	if err != nil {
		return fmt.Errorf("elantech: failed to write register 0x%02x with value 0x%02x: %w", reg, val, err)
	}
	d.regs[reg] = val
	return nil
}

// modeCommand is the version 3 register write: a sliced write through the
// combined opcode, then a sliced read-back whose value must match.
func (d *Dev) modeCommand(reg, val byte) error {
	if err := ps2.Sliced(d.p, registerRW); err != nil {
		return err
	}
	if err := ps2.Sliced(d.p, reg); err != nil {
		return err
	}
	if err := ps2.Sliced(d.p, val); err != nil {
		return err
	}
	if _, err := d.p.Command(ps2.CmdSetScale11, nil); err != nil {
		return err
	}

	if err := ps2.Sliced(d.p, registerRW); err != nil {
		return err
	}
	if err := ps2.Sliced(d.p, reg); err != nil {
		return err
	}
	param, err := d.p.Command(ps2.CmdGetInfo, nil)
	if err != nil {
		return err
	}
	if param[0] != val {
		return fmt.Errorf("read back value 0x%02x does not match", param[0])
	}
	return nil
}

// SetRegister is the tunable surface: it writes a register while keeping the
// bits the driver depends on. On version 1 hardware the absolute mode bit of
// register 0x10 and the 4-byte mode bit of register 0x11 are forced on,
// whatever the caller asked for.
func (d *Dev) SetRegister(reg, val byte) error {
	if !validRegister(reg) {
		return ErrOutOfRangeRegister
	}
	if d.version == V1 {
		switch reg {
		case 0x10:
			val |= reg10AbsoluteMode
		case 0x11:
			val |= reg114ByteMode
		}
	}
	return d.WriteRegister(reg, val)
}

// Register returns the shadowed value of a register, that is the last value
// successfully read from or written to it this session.
func (d *Dev) Register(reg byte) (byte, bool) {
	val, ok := d.regs[reg]
	return val, ok
}
