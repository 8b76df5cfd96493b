// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package focaltech

import (
	"fmt"

	"periph.io/x/ps2touch/ps2"
	"periph.io/x/ps2touch/touch"
)

// Packet type tags, in the low nibble of the first byte. The numbers are not
// consecutive, so there may be more.
const (
	pktTouch = 0x3
	pktAbs   = 0x6
	pktRel   = 0x9
)

// Coordinate bounds. The hardware does not report its size; register 2 of
// the fingerprint might encode it but the meaning is unconfirmed.
const (
	MaxX = 2431
	MaxY = 1663
)

// PacketSize is the report packet size.
const PacketSize = 6

// LargeContactPolicy selects how an absolute packet whose tool size byte is
// the large-contact sentinel (0xff) is handled. The hardware latches the
// sentinel while a palm or other large area rests on the pad.
type LargeContactPolicy int

const (
	// LargeContactKeep ignores the packet and keeps the finger's previous
	// position and validity. This is the default.
	LargeContactKeep LargeContactPolicy = iota
	// LargeContactInvalidate hides the finger until a regular absolute
	// packet arrives for it again.
	LargeContactInvalidate
)

// fingerState mirrors the hardware's per-finger tracking. A finger is shown
// only when it is both active (present in the last touch bitmap) and valid
// (a position packet has arrived since it landed).
type fingerState struct {
	active bool
	valid  bool
	x, y   int32
}

// Decoder turns raw report packets into frames. It holds only decode state,
// no transport, so recorded packet streams can be replayed through it.
//
// Decoders are not safe for concurrent use.
type Decoder struct {
	fingers [touch.MaxContacts]fingerState
	pressed bool

	largeContact LargeContactPolicy
	logf         func(format string, args ...any)
}

// NewDecoder returns a decoder with all fingers up.
func NewDecoder(policy LargeContactPolicy) *Decoder {
	return &Decoder{largeContact: policy}
}

// Reset lifts all fingers and releases the button.
func (c *Decoder) Reset() {
	c.fingers = [touch.MaxContacts]fingerState{}
	c.pressed = false
}

// ProcessPacket decodes one complete packet and returns the resulting frame.
// Packets with an unknown type tag are logged and leave the state untouched;
// the returned frame then just restates the current state.
func (c *Decoder) ProcessPacket(pkt []byte) (*touch.Frame, error) {
	if len(pkt) != PacketSize {
		return nil, fmt.Errorf("packet must be %d bytes, got %d: %w", PacketSize, len(pkt), ps2.ErrCorruptPacket)
	}
	switch pkt[0] & 0x0f {
	case pktTouch:
		c.processTouch(pkt)
	case pktAbs:
		c.processAbs(pkt)
	case pktRel:
		c.processRel(pkt)
	default:
		c.debugf("unknown packet type 0x%02x", pkt[0])
	}
	return c.frame(), nil
}

// processTouch applies a finger presence bitmap. A finger that just landed
// has no position yet; it stays hidden until its absolute packet arrives.
func (c *Decoder) processTouch(pkt []byte) {
	c.pressed = pkt[0]>>4&1 != 0
	bitmap := pkt[1]
	for i := range c.fingers {
		active := bitmap&1 != 0
		if active && !c.fingers[i].active {
			c.fingers[i].valid = false
		}
		c.fingers[i].active = active
		bitmap >>= 1
	}
}

// processAbs applies an absolute position for one finger. X is a 12-bit
// value, Y a full 16-bit one.
func (c *Decoder) processAbs(pkt []byte) {
	c.pressed = pkt[0]>>4&1 != 0
	finger := int(pkt[1]>>4) - 1
	if finger < 0 || finger >= len(c.fingers) {
		c.debugf("absolute packet for bad finger %d", finger)
		return
	}
	// The most significant nibble of byte 5 is some kind of tool size;
	// 0xff latches while a large contact area rests on the pad.
	if pkt[5] == 0xff {
		if c.largeContact == LargeContactInvalidate {
			c.fingers[finger].valid = false
		}
		return
	}
	c.fingers[finger].x = int32(pkt[1]&0x0f)<<8 | int32(pkt[2])
	c.fingers[finger].y = int32(pkt[3])<<8 | int32(pkt[4])
	c.fingers[finger].valid = true
}

// processRel applies signed deltas for one or two fingers. The finger
// indices on the wire are 1-based; with an odd number of moving fingers the
// second index is zero, meaning absent.
func (c *Decoder) processRel(pkt []byte) {
	c.pressed = pkt[0]>>7 != 0
	finger1 := int(pkt[0]>>4&0x7) - 1
	finger2 := int(pkt[3]>>4&0x7) - 1
	if finger1 >= 0 && finger1 < len(c.fingers) {
		c.fingers[finger1].x += int32(int8(pkt[1]))
		c.fingers[finger1].y += int32(int8(pkt[2]))
	}
	if finger2 >= 0 && finger2 < len(c.fingers) {
		c.fingers[finger2].x += int32(int8(pkt[4]))
		c.fingers[finger2].y += int32(int8(pkt[5]))
	}
}

// frame snapshots the tracked state. The hardware's origin is the bottom
// left corner, so Y is inverted on the way out.
func (c *Decoder) frame() *touch.Frame {
	f := &touch.Frame{Left: c.pressed}
	for i := range c.fingers {
		fs := &c.fingers[i]
		if !fs.active || !fs.valid {
			continue
		}
		f.Fingers++
		f.Contacts[i] = touch.Contact{X: fs.x, Y: MaxY - fs.y, Active: true}
		if !f.HasPosition {
			f.X, f.Y, f.HasPosition = fs.x, MaxY-fs.y, true
		}
	}
	return f
}

func (c *Decoder) debugf(format string, args ...any) {
	if c.logf != nil {
		c.logf(format, args...)
	}
}
