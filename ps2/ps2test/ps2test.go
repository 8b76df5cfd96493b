// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ps2test is meant to be used to test drivers over a fake PS/2 port.
package ps2test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"periph.io/x/ps2touch/ps2"
)

// IO registers one command round trip.
type IO struct {
	Cmd  ps2.Command
	Send []byte
	Recv []byte
	// Err, when set, is returned instead of Recv to simulate a transport
	// failure for this step.
	Err error
}

// Playback implements ps2.Port and plays back a recorded command exchange.
//
// Every call to Command() verifies that it matches the next registered IO in
// order. The Stream bytes are handed out by Read() to emulate the report
// byte stream of a device in reporting mode.
type Playback struct {
	// Ops is the sequence of expected command exchanges.
	Ops []IO
	// DontPanic makes mismatches return an error instead of panicking.
	// Panicking is the default as it makes test failures easier to locate.
	DontPanic bool
	// Stream is returned byte by byte from Read.
	Stream []byte

	mu    sync.Mutex
	count int
	read  int
}

// Close verifies that all registered Ops have been consumed.
func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count != len(p.Ops) {
		return p.fail(fmt.Errorf("ps2test: expected playback of %d commands, got %d", len(p.Ops), p.count))
	}
	return nil
}

// Command implements ps2.Port.
func (p *Playback) Command(cmd ps2.Command, send []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count >= len(p.Ops) {
		return nil, p.fail(fmt.Errorf("ps2test: unexpected command %s, playback is exhausted", cmd))
	}
	op := p.Ops[p.count]
	p.count++
	if cmd != op.Cmd {
		return nil, p.fail(fmt.Errorf("ps2test: command %d: got %s, expected %s", p.count-1, cmd, op.Cmd))
	}
	if !bytes.Equal(send, op.Send) {
		return nil, p.fail(fmt.Errorf("ps2test: command %d (%s): got args %#v, expected %#v", p.count-1, cmd, send, op.Send))
	}
	if op.Err != nil {
		return nil, op.Err
	}
	return op.Recv, nil
}

// Read implements ps2.Port. It returns the registered Stream bytes and then
// io.EOF.
func (p *Playback) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.read >= len(p.Stream) {
		return 0, io.EOF
	}
	n := copy(b, p.Stream[p.read:])
	p.read += n
	return n, nil
}

func (p *Playback) fail(err error) error {
	if p.DontPanic {
		return err
	}
	panic(err)
}

// Record implements ps2.Port and records every command exchange that passes
// through it. The recorded Ops can be used to build a Playback for a
// regression test against real hardware behavior.
type Record struct {
	// Port can be nil, in which case all commands succeed with a zeroed
	// reply.
	Port ps2.Port

	mu  sync.Mutex
	Ops []IO
}

// Command implements ps2.Port.
func (r *Record) Command(cmd ps2.Command, send []byte) ([]byte, error) {
	io := IO{Cmd: cmd, Send: append([]byte(nil), send...)}
	if r.Port == nil {
		io.Recv = make([]byte, cmd.RecvLen())
		r.append(io)
		return io.Recv, nil
	}
	recv, err := r.Port.Command(cmd, send)
	io.Recv = append([]byte(nil), recv...)
	io.Err = err
	r.append(io)
	return recv, err
}

// Read implements ps2.Port.
func (r *Record) Read(b []byte) (int, error) {
	if r.Port == nil {
		return 0, errors.New("ps2test: no port to read from")
	}
	return r.Port.Read(b)
}

func (r *Record) append(io IO) {
	r.mu.Lock()
	r.Ops = append(r.Ops, io)
	r.mu.Unlock()
}

var _ ps2.Port = &Playback{}
var _ ps2.Port = &Record{}
