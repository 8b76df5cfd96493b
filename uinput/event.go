// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package uinput

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// Input subsystem constants, from input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	btnLeft          = 0x110
	btnRight         = 0x111
	btnForward       = 0x115
	btnBack          = 0x116
	btnToolFinger    = 0x145
	btnToolQuintTap  = 0x148
	btnTouch         = 0x14a
	btnToolDoubleTap = 0x14d
	btnToolTripleTap = 0x14e
	btnToolQuadTap   = 0x14f

	absX          = 0x00
	absY          = 0x01
	absPressure   = 0x18
	absToolWidth  = 0x1c
	absMtSlot     = 0x2f
	absMtPosX     = 0x35
	absMtPosY     = 0x36
	absMtTracking = 0x39

	propPointer   = 0x00
	propButtonpad = 0x02

	busI8042 = 0x11
)

// uinput ioctls and limits, from uinput.h.
const (
	maxNameSize = 80
	absCount    = 64

	devCreate  = 0x5501
	devDestroy = 0x5502
	setEvBit   = 0x40045564
	setKeyBit  = 0x40045565
	setAbsBit  = 0x40045567
	setPropBit = 0x4004556e
)

// inputID identifies the virtual device to the input subsystem.
type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// userDev is the legacy uinput device setup record written to the fd before
// the create ioctl.
type userDev struct {
	Name       [maxNameSize]byte
	ID         inputID
	EffectsMax uint32
	AbsMax     [absCount]int32
	AbsMin     [absCount]int32
	AbsFuzz    [absCount]int32
	AbsFlat    [absCount]int32
}

// event is one wire-format input event.
type event struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// encodeEvents marshals events back to back the way the kernel expects them
// on a single write.
func encodeEvents(events []event) []byte {
	buf := &bytes.Buffer{}
	for _, ev := range events {
		// Fixed layout struct of sized integers; cannot fail.
		_ = binary.Write(buf, binary.LittleEndian, ev)
	}
	return buf.Bytes()
}
