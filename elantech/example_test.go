// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package elantech_test

import (
	"log"

	"periph.io/x/ps2touch/elantech"
	"periph.io/x/ps2touch/ps2/serio"
	"periph.io/x/ps2touch/touch"
)

func Example() {
	p, err := serio.Open("/dev/serio_raw0")
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()
	rec := &touch.Recorder{}
	d, err := elantech.New(p, &elantech.Opts{Sink: rec})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("found %s", d)
	if err := d.Enable(); err != nil {
		log.Fatal(err)
	}
	buf := make([]byte, 64)
	for {
		n, err := p.Read(buf)
		if err != nil {
			log.Fatal(err)
		}
		for _, b := range buf[:n] {
			if err := d.ProcessByte(b); err != nil {
				log.Print(err)
			}
		}
		if f := rec.Last(); f != nil && f.HasPosition {
			log.Printf("%d finger(s) at (%d, %d)", f.Fingers, f.X, f.Y)
		}
	}
}
