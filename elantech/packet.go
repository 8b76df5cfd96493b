// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package elantech

import (
	"fmt"

	"periph.io/x/ps2touch/ps2"
	"periph.io/x/ps2touch/touch"
)

// Decoder turns raw report packets into frames. It holds only decode state,
// no transport, so recorded packet streams can be replayed through it.
//
// Decoders are not safe for concurrent use.
type Decoder struct {
	version      Version
	fw           uint32
	capabilities byte

	parity      [256]byte
	parityCheck bool

	xMax, yMax, yMax2ft int32

	reportsPressure bool
	jumpyCursor     bool

	// Version 1 jumpy cursor debounce.
	singleFingerReports int

	// Version 3 two-packet reassembly.
	stash   [ps2.MaxPacketSize]byte
	stashed bool

	logf func(format string, args ...any)
}

// NewDecoder returns a decoder for the given hardware version, firmware
// version and capability byte. Version 3 geometry is device-reported; set it
// with SetGeometry before decoding.
func NewDecoder(v Version, fw uint32, capabilities byte) *Decoder {
	c := &Decoder{version: v, fw: fw, capabilities: capabilities}
	// parity[i] is 1 when i has an even number of set bits. Clearing the
	// lowest set bit flips the parity of the remainder.
	c.parity[0] = 1
	for i := 1; i < 256; i++ {
		c.parity[i] = c.parity[i&(i-1)] ^ 1
	}
	switch v {
	case V1:
		c.parityCheck = true
		c.xMax, c.yMax, c.yMax2ft = xMaxV1, yMaxV1, yMaxV1
	case V2:
		c.xMax, c.yMax, c.yMax2ft = xMaxV2, yMaxV2, yMax2ftV2
		c.reportsPressure = fw >= 0x020800
	case V3:
		c.reportsPressure = true
	}
	// These firmwares send bogus initial one-finger reports that make the
	// cursor jump around.
	if fw == 0x020022 || fw == 0x020600 {
		c.jumpyCursor = true
	}
	return c
}

// SetGeometry fixes the coordinate bounds of a version 3 decoder.
func (c *Decoder) SetGeometry(xMax, yMax int32) {
	c.xMax, c.yMax, c.yMax2ft = xMax, yMax, yMax
}

// SlotCount returns the number of multi-touch slots, zero for single-touch
// version 1 hardware.
func (c *Decoder) SlotCount() int {
	if c.version == V1 {
		return 0
	}
	return 2
}

// Reset discards cross-packet state. Call it when the byte stream breaks,
// for example on reconnect.
func (c *Decoder) Reset() {
	c.stashed = false
	c.singleFingerReports = 0
}

// ProcessPacket decodes one complete packet. A nil frame without error means
// the packet was consumed without producing a report (debounced, stashed
// half of a two-packet event, or rejected out-of-range values). A corrupt
// packet returns an error wrapping ps2.ErrCorruptPacket; the decoder stays
// usable.
func (c *Decoder) ProcessPacket(pkt []byte) (*touch.Frame, error) {
	if len(pkt) != c.version.PacketSize() {
		return nil, fmt.Errorf("%s packet must be %d bytes, got %d: %w",
			c.version, c.version.PacketSize(), len(pkt), ps2.ErrCorruptPacket)
	}
	switch c.version {
	case V1:
		return c.decodeV1(pkt)
	case V2:
		return c.decodeV2(pkt), nil
	default:
		return c.decodeV3(pkt), nil
	}
}

// decodeV1 handles the 4-byte packets of version 1 hardware. They carry a
// single position and three parity bits over the payload bytes.
func (c *Decoder) decodeV1(pkt []byte) (*touch.Frame, error) {
	if c.parityCheck && !c.checkParityV1(pkt) {
		return nil, fmt.Errorf("parity mismatch in packet % 02x: %w", pkt, ps2.ErrCorruptPacket)
	}

	var fingers int
	if c.fw < 0x020000 {
		// byte 0:  D   U  p1  p2   1  p3   R   L
		// byte 1:  f   0  th  tw  x9  x8  y9  y8
		fingers = int(pkt[1]&0x80)>>7 + int(pkt[1]&0x30)>>4
	} else {
		// byte 0: n1  n0  p2  p1   1  p3   R   L
		// byte 1:  0   0   0   0  x9  x8  y9  y8
		fingers = int(pkt[0]&0xc0) >> 6
	}

	if c.jumpyCursor {
		if fingers != 1 {
			c.singleFingerReports = 0
		} else if c.singleFingerReports < 2 {
			// The first two one-finger reports are bogus.
			c.singleFingerReports++
			c.debugf("discarding packet")
			return nil, nil
		}
	}

	f := &touch.Frame{Fingers: fingers}
	// byte 2: x7  x6  x5  x4  x3  x2  x1  x0
	// byte 3: y7  y6  y5  y4  y3  y2  y1  y0
	if fingers != 0 {
		f.X = int32(pkt[1]&0x0c)<<6 | int32(pkt[2])
		f.Y = c.yMax - (int32(pkt[1]&0x03)<<8 | int32(pkt[3]))
		f.HasPosition = true
	}
	f.Left = pkt[0]&0x01 != 0
	f.Right = pkt[0]&0x02 != 0
	if c.fw < 0x020000 && c.capabilities&capRocker != 0 {
		f.HasRocker = true
		f.Forward = pkt[0]&0x40 != 0
		f.Back = pkt[0]&0x80 != 0
	}
	return f, nil
}

// checkParityV1 verifies the three parity bits carried in byte 0. Their
// placement differs between the two version 1 firmware generations.
func (c *Decoder) checkParityV1(pkt []byte) bool {
	var p1, p2 byte
	if c.fw < 0x020000 {
		p1 = pkt[0] & 0x20 >> 5
		p2 = pkt[0] & 0x10 >> 4
	} else {
		p1 = pkt[0] & 0x10 >> 4
		p2 = pkt[0] & 0x20 >> 5
	}
	p3 := pkt[0] & 0x04 >> 2
	return c.parity[pkt[1]] == p1 && c.parity[pkt[2]] == p2 && c.parity[pkt[3]] == p3
}

// decodeV2 handles the 6-byte packets of version 2 hardware. One packet
// carries the whole event; two-finger events report both positions at half
// resolution.
func (c *Decoder) decodeV2(pkt []byte) *touch.Frame {
	// byte 0: n1  n0   .   .   .   .   R   L
	fingers := int(pkt[0]&0xc0) >> 6
	f := &touch.Frame{}
	var x1, y1, x2, y2 int32

	switch fingers {
	case 1, 3:
		if fingers == 3 && pkt[3]&0x80 != 0 {
			// byte 3: n4   .  w1  w0   .   .   .   .
			fingers = 4
		}
		// byte 1:  .   .   .   .   .  x10 x9  x8
		// byte 2: x7  x6  x5  x4  x3  x2  x1  x0
		x1 = int32(pkt[1]&0x07)<<8 | int32(pkt[2])
		// byte 4:  .   .   .   .   .   .  y9  y8
		// byte 5: y7  y6  y5  y4  y3  y2  y1  y0
		y1 = c.yMax - (int32(pkt[4]&0x03)<<8 | int32(pkt[5]))
		f.X, f.Y, f.HasPosition = x1, y1, true
		f.Pressure = int32(pkt[1]&0xf0) | int32(pkt[4]&0xf0)>>4
		f.Width = int32(pkt[0]&0x30)>>2 | int32(pkt[3]&0x30)>>4
	case 2:
		// Each finger is reported separately at half resolution.
		// byte 0:  .   .  ay8 ax8  .   .   .   .
		// byte 1: ax7 ax6 ax5 ax4 ax3 ax2 ax1 ax0
		x1 = int32(pkt[0]&0x10)<<4 | int32(pkt[1])
		// byte 2: ay7 ay6 ay5 ay4 ay3 ay2 ay1 ay0
		y1 = c.yMax2ft - (int32(pkt[0]&0x20)<<3 | int32(pkt[2]))
		// byte 3:  .   .  by8 bx8  .   .   .   .
		// byte 4: bx7 bx6 bx5 bx4 bx3 bx2 bx1 bx0
		x2 = int32(pkt[3]&0x10)<<4 | int32(pkt[4])
		// byte 5: by7 by6 by5 by4 by3 by2 by1 by0
		y2 = c.yMax2ft - (int32(pkt[3]&0x20)<<3 | int32(pkt[5]))
		// Scale the legacy pointer up to the one-finger range.
		f.X, f.Y, f.HasPosition = x1<<2, y1<<2, true
		// Not reported by the hardware in this mode.
		f.Pressure = 127
		f.Width = 7
	}

	f.Fingers = fingers
	f.Contacts[0] = touch.Contact{X: x1, Y: y1, Active: fingers != 0}
	f.Contacts[1] = touch.Contact{X: x2, Y: y2, Active: fingers == 2}
	f.HasPressure = c.reportsPressure
	f.Left = pkt[0]&0x01 != 0
	f.Right = pkt[0]&0x02 != 0
	return f
}

// decodeV3 handles the 6-byte packets of version 3 hardware. A two-finger
// event spans two packets: the first carries finger A and is stashed, the
// second carries finger B and completes the event.
func (c *Decoder) decodeV3(pkt []byte) *touch.Frame {
	// byte 0: n1  n0   .   .   .   .   R   L
	fingers := int(pkt[0]&0xc0) >> 6

	if fingers == 2 && pkt[0]&0x0c == 0x04 {
		copy(c.stash[:], pkt)
		c.stashed = true
		return nil
	}

	pkt1 := pkt
	var pkt2 []byte
	if fingers == 2 {
		if !c.stashed {
			// Second half without a first half, the stream lost a
			// packet. Drop it rather than reviving a stale stash.
			c.debugf("discarding unpaired two-finger packet")
			return nil
		}
		pkt1 = c.stash[:]
		pkt2 = pkt
	}
	c.stashed = false

	x1 := int32(pkt1[1]&0x0f)<<8 | int32(pkt1[2])
	y1 := c.yMax - (int32(pkt1[4]&0x0f)<<8 | int32(pkt1[5]))

	f := &touch.Frame{Fingers: fingers}
	f.Left = pkt1[0]&0x01 != 0
	f.Right = pkt1[0]&0x02 != 0

	// The hardware sometimes sends positions outside its own reported
	// range. Keep the finger count and buttons but drop the coordinates.
	if fingers != 0 && (x1 > c.xMax || y1 < 0) {
		c.debugf("rejecting out of range position (%d, %d)", x1, y1)
		return f
	}

	for i := 0; i < 2; i++ {
		f.Contacts[i] = touch.Contact{Active: fingers != 0 && (i == 0 || fingers == 2)}
	}
	if fingers != 0 {
		f.Contacts[0].X, f.Contacts[0].Y = x1, y1
		f.X, f.Y, f.HasPosition = x1, y1, true
	}
	if pkt2 != nil {
		f.Contacts[1].X = int32(pkt2[1]&0x0f)<<8 | int32(pkt2[2])
		f.Contacts[1].Y = c.yMax - (int32(pkt2[4]&0x0f)<<8 | int32(pkt2[5]))
	}
	f.Pressure = int32(pkt1[1]&0xf0) | int32(pkt1[4]&0xf0)>>4
	f.Width = int32(pkt1[0]&0x30)>>2 | int32(pkt1[3]&0x30)>>4
	f.HasPressure = true
	return f
}

func (c *Decoder) debugf(format string, args ...any) {
	if c.logf != nil {
		c.logf(format, args...)
	}
}
