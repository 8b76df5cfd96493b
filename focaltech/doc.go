// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package focaltech drives FocalTech PS/2 touchpads in their native
// multi-touch protocol.
//
// Unlike register oriented touchpads, FocalTech hardware tracks finger state
// itself and streams incremental 6-byte packets, each tagged in the low
// nibble of its first byte: a finger presence bitmap, an absolute position
// for one finger, or relative deltas for up to two fingers. The decoder
// mirrors the hardware's state machine and emits a full frame after every
// packet.
//
// The devices are clickpads: one physical button, no right or middle.
package focaltech
