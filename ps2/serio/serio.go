// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

// Package serio implements a ps2.Port on top of the Linux serio_raw
// interface.
//
// Binding a PS/2 port to the serio_raw kernel driver (for example via
// /sys/bus/serio/devices/serioN/drvctl) exposes the raw byte stream of an
// auxiliary device as /dev/serio_rawN. This package layers the PS/2
// acknowledge protocol on top of that stream: every byte sent to the device
// is answered with an ack (0xfa) or a request to resend (0xfe).
//
// A Port must not be used for Command and Read concurrently; command mode is
// only meaningful while the device is not in reporting mode, which is how
// the protocol drivers use it.
package serio

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"periph.io/x/ps2touch/ps2"
)

const (
	// Per-byte reply deadline. The link is slow (~12kbit/s) but a reply
	// arrives within a few ms; 200ms matches the kernel's command timeout.
	byteTimeout = 200 * time.Millisecond
	// How often a byte is retransmitted when the device answers resend.
	resendTries = 3
)

// Port is an open serio_raw device node.
type Port struct {
	f *os.File
}

// Open opens a serio_raw device node, typically /dev/serio_raw0.
func Open(path string) (*Port, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("serio: %w", err)
	}
	return &Port{f: f}, nil
}

// Command implements ps2.Port.
func (p *Port) Command(cmd ps2.Command, send []byte) ([]byte, error) {
	if len(send) != cmd.SendLen() {
		return nil, fmt.Errorf("serio: command %s wants %d argument bytes, got %d", cmd, cmd.SendLen(), len(send))
	}
	if err := p.writeAcked(cmd.Op()); err != nil {
		return nil, fmt.Errorf("serio: command %s: %w", cmd, err)
	}
	for _, b := range send {
		if err := p.writeAcked(b); err != nil {
			return nil, fmt.Errorf("serio: command %s: %w", cmd, err)
		}
	}
	recv := make([]byte, cmd.RecvLen())
	for i := range recv {
		b, err := p.readByte()
		if err != nil {
			return nil, fmt.Errorf("serio: command %s reply byte %d: %w", cmd, i, err)
		}
		recv[i] = b
	}
	return recv, nil
}

// Read implements ps2.Port. It reads the raw report byte stream and blocks
// until at least one byte is available.
func (p *Port) Read(b []byte) (int, error) {
	return p.f.Read(b)
}

// Close closes the device node.
func (p *Port) Close() error {
	return p.f.Close()
}

func (p *Port) String() string {
	return fmt.Sprintf("serio{%s}", p.f.Name())
}

// writeAcked sends one byte and consumes the device's acknowledge,
// retransmitting on resend.
func (p *Port) writeAcked(b byte) error {
	for try := 0; try < resendTries; try++ {
		if _, err := p.f.Write([]byte{b}); err != nil {
			return err
		}
		r, err := p.readByte()
		if err != nil {
			return err
		}
		switch r {
		case ps2.Ack:
			return nil
		case ps2.Resend:
			continue
		default:
			return fmt.Errorf("unexpected reply 0x%02x to byte 0x%02x", r, b)
		}
	}
	return fmt.Errorf("byte 0x%02x not acknowledged after %d tries", b, resendTries)
}

// readByte reads a single byte with the per-byte deadline applied.
func (p *Port) readByte() (byte, error) {
	fds := []unix.PollFd{{Fd: int32(p.f.Fd()), Events: unix.POLLIN}}
	deadline := time.Now().Add(byteTimeout)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, fmt.Errorf("timeout waiting for reply")
		}
		n, err := unix.Poll(fds, int(left/time.Millisecond)+1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, fmt.Errorf("timeout waiting for reply")
		}
		var buf [1]byte
		if _, err := p.f.Read(buf[:]); err != nil {
			return 0, err
		}
		return buf[0], nil
	}
}

var _ ps2.Port = &Port{}
