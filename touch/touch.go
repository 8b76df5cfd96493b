// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package touch defines the decoded multi-touch frame model and the event
// sink boundary the protocol drivers report into.
package touch

// MaxContacts is the largest number of simultaneous contacts any supported
// protocol reports.
const MaxContacts = 5

// Contact is the state of one finger slot in a frame. Slot indices are
// hardware-assigned finger numbers and are stable across frames.
type Contact struct {
	X, Y   int32
	Active bool
}

// Key identifies a button-like event. The values mirror what a pointing
// device driver reports to an input subsystem: physical buttons plus the
// finger-count "tool" pseudo buttons used for pointer emulation.
type Key int

const (
	BtnLeft Key = iota
	BtnRight
	BtnTouch
	BtnToolFinger
	BtnToolDoubleTap
	BtnToolTripleTap
	BtnToolQuadTap
	BtnToolQuintTap
	BtnForward
	BtnBack
)

// Axis identifies a legacy single-pointer absolute axis.
type Axis int

const (
	AbsX Axis = iota
	AbsY
	AbsPressure
	AbsToolWidth
)

// Frame is the decoded result of one complete report packet (or, for
// protocols with multi-packet events, of the packet completing the event).
type Frame struct {
	// Contacts holds per-slot state. Only the first SlotCount slots of the
	// reporting driver are meaningful.
	Contacts [MaxContacts]Contact
	// Fingers is the finger count the hardware reported. With semi-MT
	// hardware it can exceed the number of active contacts.
	Fingers int
	// X, Y are the legacy single-pointer emulation coordinates. They are
	// only valid when HasPosition is set.
	X, Y        int32
	HasPosition bool
	// Pressure and Width are reported when HasPressure is set.
	Pressure, Width int32
	HasPressure     bool
	Left, Right     bool
	// Rocker buttons, only present on old hardware that has them.
	HasRocker     bool
	Forward, Back bool
}

// Sink receives decoded input state. Implementations forward it to an input
// subsystem; uinput.Dev is the stock implementation. Calls between two Sync
// calls belong to one frame.
type Sink interface {
	// Slot reports one finger slot. x and y are only meaningful when the
	// slot is active.
	Slot(slot int, active bool, x, y int32) error
	// Key reports a button state.
	Key(k Key, pressed bool) error
	// Axis reports a legacy single-pointer axis value.
	Axis(a Axis, value int32) error
	// Sync commits the frame.
	Sync() error
}

// Report maps a frame to sink calls: per-slot contact state, pointer
// emulation keys, legacy axes, buttons, then a frame commit. slots is the
// slot count of the reporting driver; zero is valid for single-touch
// hardware that only reports the legacy axes.
func Report(s Sink, f *Frame, slots int) error {
	for i := 0; i < slots; i++ {
		c := f.Contacts[i]
		if err := s.Slot(i, c.Active, c.X, c.Y); err != nil {
			return err
		}
	}
	if err := s.Key(BtnTouch, f.Fingers != 0); err != nil {
		return err
	}
	if f.HasPosition {
		if err := s.Axis(AbsX, f.X); err != nil {
			return err
		}
		if err := s.Axis(AbsY, f.Y); err != nil {
			return err
		}
	}
	if f.HasPressure {
		if err := s.Axis(AbsPressure, f.Pressure); err != nil {
			return err
		}
		if err := s.Axis(AbsToolWidth, f.Width); err != nil {
			return err
		}
	}
	tools := []struct {
		k Key
		n int
	}{
		{BtnToolFinger, 1},
		{BtnToolDoubleTap, 2},
		{BtnToolTripleTap, 3},
		{BtnToolQuadTap, 4},
		{BtnToolQuintTap, 5},
	}
	for _, tool := range tools {
		if err := s.Key(tool.k, f.Fingers == tool.n); err != nil {
			return err
		}
	}
	if err := s.Key(BtnLeft, f.Left); err != nil {
		return err
	}
	if err := s.Key(BtnRight, f.Right); err != nil {
		return err
	}
	if f.HasRocker {
		if err := s.Key(BtnForward, f.Forward); err != nil {
			return err
		}
		if err := s.Key(BtnBack, f.Back); err != nil {
			return err
		}
	}
	return s.Sync()
}
