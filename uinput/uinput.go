// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package uinput

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"periph.io/x/ps2touch/touch"
)

// Opts describes the virtual device to create. Geometry and capabilities
// should come from the detected touchpad so the device node advertises what
// the hardware actually reports.
type Opts struct {
	// Name is the device name shown to the input subsystem.
	Name string
	// Coordinate bounds, from the driver's Geometry.
	XMin, XMax, YMin, YMax int32
	// Slots is the number of multi-touch slots, zero for single-touch
	// hardware.
	Slots int
	// Pressure advertises the pressure and tool width axes.
	Pressure bool
	// Rocker advertises the forward and back rocker buttons.
	Rocker bool
	// Buttonpad marks the device as a clickpad: one physical button, no
	// right button.
	Buttonpad bool
}

// Dev is a virtual input device. It implements touch.Sink; feed it to a
// protocol driver and the decoded frames appear as kernel input events.
//
// Calls must come from a single goroutine, matching the driver's ProcessByte
// loop.
type Dev struct {
	f    *os.File
	opts Opts

	pending    []event
	slotActive []bool
	nextID     int32
}

// New creates the virtual device. path is normally /dev/uinput.
func New(path string, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	if opts.Name == "" {
		opts.Name = "ps2touch virtual touchpad"
	}
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0660)
	if err != nil {
		return nil, fmt.Errorf("uinput: %w", err)
	}
	d := &Dev{f: f, opts: *opts, slotActive: make([]bool, opts.Slots)}
	if err := d.setup(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return d, nil
}

// setup declares the device's capabilities and creates it.
func (d *Dev) setup() error {
	o := &d.opts
	for _, ev := range []uintptr{evKey, evAbs} {
		if err := d.ioctl(setEvBit, ev); err != nil {
			return fmt.Errorf("uinput: declaring event type %#x: %w", ev, err)
		}
	}

	keys := []uintptr{btnLeft, btnTouch, btnToolFinger, btnToolDoubleTap, btnToolTripleTap, btnToolQuadTap, btnToolQuintTap}
	if !o.Buttonpad {
		keys = append(keys, btnRight)
	}
	if o.Rocker {
		keys = append(keys, btnForward, btnBack)
	}
	for _, k := range keys {
		if err := d.ioctl(setKeyBit, k); err != nil {
			return fmt.Errorf("uinput: declaring key %#x: %w", k, err)
		}
	}

	axes := []uintptr{absX, absY}
	if o.Pressure {
		axes = append(axes, absPressure, absToolWidth)
	}
	if o.Slots > 0 {
		axes = append(axes, absMtSlot, absMtPosX, absMtPosY, absMtTracking)
	}
	for _, a := range axes {
		if err := d.ioctl(setAbsBit, a); err != nil {
			return fmt.Errorf("uinput: declaring axis %#x: %w", a, err)
		}
	}

	props := []uintptr{propPointer}
	if o.Buttonpad {
		props = append(props, propButtonpad)
	}
	for _, p := range props {
		if err := d.ioctl(setPropBit, p); err != nil {
			return fmt.Errorf("uinput: declaring property %#x: %w", p, err)
		}
	}

	ud := userDev{
		ID: inputID{Bustype: busI8042, Vendor: 0x0002, Product: 0x0001, Version: 0x0000},
	}
	copy(ud.Name[:maxNameSize-1], o.Name)
	ud.AbsMin[absX], ud.AbsMax[absX] = o.XMin, o.XMax
	ud.AbsMin[absY], ud.AbsMax[absY] = o.YMin, o.YMax
	if o.Pressure {
		ud.AbsMax[absPressure] = 255
		ud.AbsMax[absToolWidth] = 15
	}
	if o.Slots > 0 {
		ud.AbsMax[absMtSlot] = int32(o.Slots) - 1
		ud.AbsMin[absMtPosX], ud.AbsMax[absMtPosX] = o.XMin, o.XMax
		ud.AbsMin[absMtPosY], ud.AbsMax[absMtPosY] = o.YMin, o.YMax
		ud.AbsMax[absMtTracking] = 0xffff
	}
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, ud); err != nil {
		return fmt.Errorf("uinput: %w", err)
	}
	if _, err := d.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("uinput: writing device setup: %w", err)
	}
	if err := d.ioctl(devCreate, 0); err != nil {
		return fmt.Errorf("uinput: creating device: %w", err)
	}
	return nil
}

// Slot implements touch.Sink. Tracking IDs are assigned when a slot turns
// active and released when it turns inactive.
func (d *Dev) Slot(slot int, active bool, x, y int32) error {
	if slot < 0 || slot >= len(d.slotActive) {
		return nil
	}
	d.queue(evAbs, absMtSlot, int32(slot))
	if active != d.slotActive[slot] {
		if active {
			d.queue(evAbs, absMtTracking, d.nextID)
			d.nextID = (d.nextID + 1) & 0xffff
		} else {
			d.queue(evAbs, absMtTracking, -1)
		}
		d.slotActive[slot] = active
	}
	if active {
		d.queue(evAbs, absMtPosX, x)
		d.queue(evAbs, absMtPosY, y)
	}
	return nil
}

// Key implements touch.Sink.
func (d *Dev) Key(k touch.Key, pressed bool) error {
	code, ok := keyCode(k)
	if !ok {
		return nil
	}
	v := int32(0)
	if pressed {
		v = 1
	}
	d.queue(evKey, code, v)
	return nil
}

// Axis implements touch.Sink.
func (d *Dev) Axis(a touch.Axis, value int32) error {
	code, ok := axisCode(a)
	if !ok {
		return nil
	}
	d.queue(evAbs, code, value)
	return nil
}

// Sync implements touch.Sink. It flushes the queued frame in one write.
func (d *Dev) Sync() error {
	d.queue(evSyn, synReport, 0)
	_, err := d.f.Write(encodeEvents(d.pending))
	d.pending = d.pending[:0]
	if err != nil {
		return fmt.Errorf("uinput: writing events: %w", err)
	}
	return nil
}

// Close destroys the virtual device.
func (d *Dev) Close() error {
	if err := d.ioctl(devDestroy, 0); err != nil {
		_ = d.f.Close()
		return fmt.Errorf("uinput: destroying device: %w", err)
	}
	return d.f.Close()
}

func (d *Dev) String() string {
	return fmt.Sprintf("uinput %q", d.opts.Name)
}

func (d *Dev) queue(typ, code uint16, value int32) {
	d.pending = append(d.pending, event{Type: typ, Code: code, Value: value})
}

func (d *Dev) ioctl(req, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func keyCode(k touch.Key) (uint16, bool) {
	switch k {
	case touch.BtnLeft:
		return btnLeft, true
	case touch.BtnRight:
		return btnRight, true
	case touch.BtnTouch:
		return btnTouch, true
	case touch.BtnToolFinger:
		return btnToolFinger, true
	case touch.BtnToolDoubleTap:
		return btnToolDoubleTap, true
	case touch.BtnToolTripleTap:
		return btnToolTripleTap, true
	case touch.BtnToolQuadTap:
		return btnToolQuadTap, true
	case touch.BtnToolQuintTap:
		return btnToolQuintTap, true
	case touch.BtnForward:
		return btnForward, true
	case touch.BtnBack:
		return btnBack, true
	}
	return 0, false
}

func axisCode(a touch.Axis) (uint16, bool) {
	switch a {
	case touch.AbsX:
		return absX, true
	case touch.AbsY:
		return absY, true
	case touch.AbsPressure:
		return absPressure, true
	case touch.AbsToolWidth:
		return absToolWidth, true
	}
	return 0, false
}

var _ touch.Sink = &Dev{}
