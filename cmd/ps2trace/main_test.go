// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"strings"
	"testing"

	"periph.io/x/ps2touch/elantech"
	"periph.io/x/ps2touch/focaltech"
)

func TestParseLog(t *testing.T) {
	log := `
# two v2 packets
50 71 f4 20 31 2c
0x50 0x71 0xf4 0x20 0x31 0x2c  # trailing comment

`
	packets, err := parseLog(strings.NewReader(log))
	if err != nil {
		t.Fatal(err)
	}
	if len(packets) != 2 {
		t.Fatalf("got %d packets, want 2", len(packets))
	}
	for _, pkt := range packets {
		if len(pkt) != 6 || pkt[0] != 0x50 || pkt[5] != 0x2c {
			t.Fatalf("packet = % 02x", pkt)
		}
	}
}

func TestParseLogBadByte(t *testing.T) {
	if _, err := parseLog(strings.NewReader("50 xx\n")); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := parseLog(strings.NewReader("50 123\n")); err == nil {
		t.Fatal("expected an error for a multi-byte field")
	}
}

func TestReplayElantechV3(t *testing.T) {
	dec := elantech.NewDecoder(elantech.V3, 0x150500, 0)
	dec.SetGeometry(1152, 768)
	packets := [][]byte{
		// Two-packet two-finger event: only the second emits a frame.
		{0x84, 0x01, 0x00, 0x00, 0x01, 0x00},
		{0x80, 0x02, 0x00, 0x00, 0x02, 0x00},
		// One finger.
		{0x40, 0x01, 0x00, 0x00, 0x01, 0x00},
	}
	frames, errs := replay(dec, packets)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].Fingers != 2 || frames[1].Fingers != 1 {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestReplayKeepsGoingOnErrors(t *testing.T) {
	dec := focaltech.NewDecoder(focaltech.LargeContactKeep)
	packets := [][]byte{
		{0x03},
		{0x03, 0x01, 0x00, 0x00, 0x00, 0x00},
	}
	frames, errs := replay(dec, packets)
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
}

func TestRender(t *testing.T) {
	dec := focaltech.NewDecoder(focaltech.LargeContactKeep)
	frames, errs := replay(dec, [][]byte{
		{0x03, 0x01, 0x00, 0x00, 0x00, 0x00},
		{0x06, 0x10, 0x64, 0x00, 0xc8, 0x10},
	})
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	img, err := render(frames, focaltech.MaxX, focaltech.MaxY, "test")
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != renderWidth {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}
