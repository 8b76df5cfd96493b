// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package uinput reports decoded touch frames through a virtual input device
// backed by Linux's /dev/uinput.
//
// Dev implements touch.Sink; a protocol driver pointed at it makes the
// decoded touchpad show up as a regular input device with multi-touch slots,
// pointer emulation axes and buttons.
package uinput
