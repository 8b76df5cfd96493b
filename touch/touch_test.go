// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package touch

import "testing"

func TestReportTwoFingers(t *testing.T) {
	r := &Recorder{}
	f := &Frame{
		Fingers:     2,
		X:           400,
		Y:           300,
		HasPosition: true,
		Left:        true,
	}
	f.Contacts[0] = Contact{X: 100, Y: 150, Active: true}
	f.Contacts[1] = Contact{X: 500, Y: 450, Active: true}
	if err := Report(r, f, 2); err != nil {
		t.Fatal(err)
	}
	got := r.Last()
	if got == nil {
		t.Fatal("no frame recorded")
	}
	if got.Fingers != 2 {
		t.Errorf("Fingers = %d, want 2", got.Fingers)
	}
	if !got.Left || got.Right {
		t.Errorf("buttons = left:%v right:%v, want left only", got.Left, got.Right)
	}
	if got.Contacts[0] != (Contact{X: 100, Y: 150, Active: true}) {
		t.Errorf("slot 0 = %+v", got.Contacts[0])
	}
	if got.Contacts[1] != (Contact{X: 500, Y: 450, Active: true}) {
		t.Errorf("slot 1 = %+v", got.Contacts[1])
	}
	if !got.HasPosition || got.X != 400 || got.Y != 300 {
		t.Errorf("pointer = (%d,%d) valid=%v, want (400,300) valid", got.X, got.Y, got.HasPosition)
	}
}

func TestReportNoFingers(t *testing.T) {
	r := &Recorder{}
	if err := Report(r, &Frame{}, 2); err != nil {
		t.Fatal(err)
	}
	got := r.Last()
	if got.Fingers != 0 {
		t.Errorf("Fingers = %d, want 0", got.Fingers)
	}
	if got.HasPosition {
		t.Error("empty frame must not carry a pointer position")
	}
	if got.Contacts[0].Active || got.Contacts[1].Active {
		t.Error("slots must be inactive")
	}
}

func TestReportPositionSuppressed(t *testing.T) {
	// A frame can report a finger count without a position, e.g. when a
	// decoder rejected out-of-range coordinates.
	r := &Recorder{}
	f := &Frame{Fingers: 1, Left: true}
	if err := Report(r, f, 2); err != nil {
		t.Fatal(err)
	}
	got := r.Last()
	if got.HasPosition {
		t.Error("suppressed frame must not carry a position")
	}
	if got.Fingers != 1 || !got.Left {
		t.Errorf("fingers/button lost: %+v", got)
	}
}

func TestRecorderSlotPersistence(t *testing.T) {
	// Slot state persists across frames until overwritten, matching
	// multi-touch slot semantics.
	r := &Recorder{}
	f := &Frame{Fingers: 1}
	f.Contacts[0] = Contact{X: 10, Y: 20, Active: true}
	if err := Report(r, f, 1); err != nil {
		t.Fatal(err)
	}
	if err := r.Key(BtnTouch, true); err != nil {
		t.Fatal(err)
	}
	if err := r.Sync(); err != nil {
		t.Fatal(err)
	}
	got := r.Last()
	if !got.Contacts[0].Active || got.Contacts[0].X != 10 {
		t.Errorf("slot state not carried over: %+v", got.Contacts[0])
	}
	if got.HasPosition {
		t.Error("HasPosition must reset between frames")
	}
}
