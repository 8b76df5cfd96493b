// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package elantech drives Elantech PS/2 touchpads in absolute multi-touch
// mode.
//
// Three hardware versions are supported, distinguished by firmware version
// thresholds. Version 1 reports 4-byte parity-protected packets with a
// single position; versions 2 and 3 report 6-byte packets with up to two
// simultaneous contacts (semi-MT), version 3 spreading a two-finger event
// over two consecutive packets.
//
// Detection uses the vendor "magic knock": a fixed probe sequence whose
// reply matches one of a small set of known signatures, followed by a
// firmware version plausibility check to avoid claiming lookalike mice that
// happen to echo the knock.
package elantech
