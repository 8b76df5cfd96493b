// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ps2

// MaxPacketSize is the largest report packet any supported protocol uses.
const MaxPacketSize = 6

// Assembler accumulates the raw report byte stream into fixed-size packets.
// The stream carries no framing; a packet boundary is purely a byte count, so
// a dropped or duplicated byte shifts every following packet until the
// decoder's parity or bounds checks catch it and the assembler is Reset.
type Assembler struct {
	buf  [MaxPacketSize]byte
	n    int
	size int
}

// NewAssembler returns an Assembler producing packets of the given size.
// size must be between 1 and MaxPacketSize.
func NewAssembler(size int) *Assembler {
	if size < 1 || size > MaxPacketSize {
		panic("ps2: invalid packet size")
	}
	return &Assembler{size: size}
}

// Feed appends one byte. When the byte completes a packet, Feed returns the
// packet and true; the returned slice is only valid until the next call.
func (a *Assembler) Feed(b byte) ([]byte, bool) {
	a.buf[a.n] = b
	a.n++
	if a.n < a.size {
		return nil, false
	}
	a.n = 0
	return a.buf[:a.size], true
}

// Pending returns the number of bytes accumulated towards the next packet.
func (a *Assembler) Pending() int {
	return a.n
}

// Reset drops any partial packet. Call it after a corrupt packet so the
// stream can resynchronize, and whenever the device is re-initialized.
func (a *Assembler) Reset() {
	a.n = 0
}
