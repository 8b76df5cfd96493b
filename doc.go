// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ps2touch contains protocol drivers for PS/2 multi-touch touchpads.
//
// The elantech and focaltech packages decode the vendor protocol extensions
// of the respective touchpad families into multi-touch frames. The ps2
// package defines the command transport they run on, with implementations
// for the Linux serio_raw interface and for bit-banged GPIO. The touch
// package defines the decoded frame model and the event sink boundary, and
// uinput forwards frames into a virtual Linux input device.
package ps2touch
