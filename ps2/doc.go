// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ps2 defines the command transport shared by the PS/2 touchpad
// protocol drivers.
//
// A PS/2 pointing device accepts single-byte commands, some of which carry a
// one-byte argument or return up to three reply bytes. The Command type packs
// the opcode together with its argument and reply lengths, matching the
// encoding used by PS/2 auxiliary device documentation (for example GetInfo
// is 0x03e9: opcode 0xe9 with a three-byte reply).
//
// Port implementations live in the serio and bitbang subpackages; ps2test
// provides a playback transport for driver tests.
package ps2
