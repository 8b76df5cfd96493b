// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package touch

// Recorder is a Sink that reconstructs frames from the call stream and keeps
// them all. It is used by driver tests and by trace replay tooling.
type Recorder struct {
	Frames []Frame

	cur Frame
}

// Slot implements Sink.
func (r *Recorder) Slot(slot int, active bool, x, y int32) error {
	if slot < 0 || slot >= MaxContacts {
		return nil
	}
	r.cur.Contacts[slot] = Contact{X: x, Y: y, Active: active}
	return nil
}

// Key implements Sink.
func (r *Recorder) Key(k Key, pressed bool) error {
	switch k {
	case BtnLeft:
		r.cur.Left = pressed
	case BtnRight:
		r.cur.Right = pressed
	case BtnForward:
		r.cur.HasRocker = true
		r.cur.Forward = pressed
	case BtnBack:
		r.cur.HasRocker = true
		r.cur.Back = pressed
	case BtnToolFinger, BtnToolDoubleTap, BtnToolTripleTap, BtnToolQuadTap, BtnToolQuintTap:
		if pressed {
			r.cur.Fingers = 1 + int(k-BtnToolFinger)
		}
	case BtnTouch:
		if !pressed {
			r.cur.Fingers = 0
		}
	}
	return nil
}

// Axis implements Sink.
func (r *Recorder) Axis(a Axis, value int32) error {
	switch a {
	case AbsX:
		r.cur.X = value
		r.cur.HasPosition = true
	case AbsY:
		r.cur.Y = value
		r.cur.HasPosition = true
	case AbsPressure:
		r.cur.Pressure = value
		r.cur.HasPressure = true
	case AbsToolWidth:
		r.cur.Width = value
		r.cur.HasPressure = true
	}
	return nil
}

// Sync implements Sink. It snapshots the accumulated frame.
func (r *Recorder) Sync() error {
	r.Frames = append(r.Frames, r.cur)
	// Per-frame fields do not persist across frames; slot state does, like
	// an input device's multi-touch slots.
	r.cur.HasPosition = false
	r.cur.HasPressure = false
	return nil
}

// Last returns the most recent frame, or nil if none was recorded.
func (r *Recorder) Last() *Frame {
	if len(r.Frames) == 0 {
		return nil
	}
	return &r.Frames[len(r.Frames)-1]
}

var _ Sink = &Recorder{}
