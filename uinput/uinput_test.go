// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package uinput

import (
	"bytes"
	"encoding/binary"
	"testing"

	"periph.io/x/ps2touch/touch"
)

func TestEncodeEvents(t *testing.T) {
	events := []event{
		{Type: evAbs, Code: absMtSlot, Value: 1},
		{Type: evSyn, Code: synReport, Value: 0},
	}
	raw := encodeEvents(events)
	if want := 2 * binary.Size(event{}); len(raw) != want {
		t.Fatalf("len = %d, want %d", len(raw), want)
	}
	var got [2]event
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &got); err != nil {
		t.Fatal(err)
	}
	if got[0] != events[0] || got[1] != events[1] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestSlotTrackingIDs(t *testing.T) {
	d := &Dev{slotActive: make([]bool, 2)}

	// Finger down: a fresh tracking ID is assigned.
	if err := d.Slot(0, true, 100, 200); err != nil {
		t.Fatal(err)
	}
	want := []event{
		{Type: evAbs, Code: absMtSlot, Value: 0},
		{Type: evAbs, Code: absMtTracking, Value: 0},
		{Type: evAbs, Code: absMtPosX, Value: 100},
		{Type: evAbs, Code: absMtPosY, Value: 200},
	}
	if len(d.pending) != len(want) {
		t.Fatalf("pending = %+v", d.pending)
	}
	for i := range want {
		if d.pending[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, d.pending[i], want[i])
		}
	}

	// Move: no new tracking ID.
	d.pending = d.pending[:0]
	if err := d.Slot(0, true, 101, 201); err != nil {
		t.Fatal(err)
	}
	for _, ev := range d.pending {
		if ev.Code == absMtTracking {
			t.Fatalf("move must not reassign tracking IDs: %+v", d.pending)
		}
	}

	// Up: the tracking ID is released and no position follows.
	d.pending = d.pending[:0]
	if err := d.Slot(0, false, 0, 0); err != nil {
		t.Fatal(err)
	}
	want = []event{
		{Type: evAbs, Code: absMtSlot, Value: 0},
		{Type: evAbs, Code: absMtTracking, Value: -1},
	}
	if len(d.pending) != len(want) || d.pending[1] != want[1] {
		t.Fatalf("pending = %+v", d.pending)
	}

	// Out of range slots are ignored.
	d.pending = d.pending[:0]
	if err := d.Slot(5, true, 0, 0); err != nil {
		t.Fatal(err)
	}
	if len(d.pending) != 0 {
		t.Fatalf("pending = %+v", d.pending)
	}
}

func TestIoctlRequests(t *testing.T) {
	// The set-bit ioctls are _IOW('U', nr, int): write direction, a 4 byte
	// argument and the 'U' magic.
	const iowU = 0x40000000 | 4<<16 | 0x55<<8
	data := []struct {
		name string
		req  uint32
		want uint32
	}{
		{"devCreate", devCreate, 0x5501},
		{"devDestroy", devDestroy, 0x5502},
		{"setEvBit", setEvBit, iowU | 100},
		{"setKeyBit", setKeyBit, iowU | 101},
		{"setAbsBit", setAbsBit, iowU | 103},
		{"setPropBit", setPropBit, iowU | 110},
	}
	for _, line := range data {
		if line.req != line.want {
			t.Errorf("%s = %#08x, want %#08x", line.name, line.req, line.want)
		}
	}
}

func TestKeyAndAxisCodes(t *testing.T) {
	keys := map[touch.Key]uint16{
		touch.BtnLeft:          btnLeft,
		touch.BtnRight:         btnRight,
		touch.BtnTouch:         btnTouch,
		touch.BtnToolFinger:    btnToolFinger,
		touch.BtnToolDoubleTap: btnToolDoubleTap,
		touch.BtnToolTripleTap: btnToolTripleTap,
		touch.BtnToolQuadTap:   btnToolQuadTap,
		touch.BtnToolQuintTap:  btnToolQuintTap,
		touch.BtnForward:       btnForward,
		touch.BtnBack:          btnBack,
	}
	for k, want := range keys {
		if got, ok := keyCode(k); !ok || got != want {
			t.Errorf("keyCode(%d) = %#x (%v), want %#x", k, got, ok, want)
		}
	}
	axes := map[touch.Axis]uint16{
		touch.AbsX:         absX,
		touch.AbsY:         absY,
		touch.AbsPressure:  absPressure,
		touch.AbsToolWidth: absToolWidth,
	}
	for a, want := range axes {
		if got, ok := axisCode(a); !ok || got != want {
			t.Errorf("axisCode(%d) = %#x (%v), want %#x", a, got, ok, want)
		}
	}
}
