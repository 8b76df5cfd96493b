// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ps2trace replays recorded touchpad packet logs through the protocol
// decoders and renders the decoded contact trails.
//
// A packet log is a text file with one packet per line as space separated
// hex bytes; '#' starts a comment. Such logs double as regression fixtures:
// they are captured from real hardware once and replayed against the
// decoders forever after.
//
// Example:
//
//	ps2trace -protocol elantech -version 3 -xmax 2690 -ymax 1918 \
//	    -png trail.png -preview touch.log
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"periph.io/x/ps2touch/elantech"
	"periph.io/x/ps2touch/focaltech"
	"periph.io/x/ps2touch/touch"
)

// packetDecoder is the pure decoding surface shared by both protocol
// families.
type packetDecoder interface {
	ProcessPacket(pkt []byte) (*touch.Frame, error)
}

func main() {
	var (
		protocol = flag.String("protocol", "elantech", "protocol family: elantech or focaltech")
		version  = flag.Int("version", 3, "elantech hardware version (1, 2 or 3)")
		fw       = flag.Uint("fw", 0x150500, "elantech firmware version (24-bit)")
		caps     = flag.Uint("caps", 0, "elantech capability byte")
		xmax     = flag.Int("xmax", 0, "x maximum for elantech v3 (device reported)")
		ymax     = flag.Int("ymax", 0, "y maximum for elantech v3 (device reported)")
		large    = flag.String("large-contact", "keep", "focaltech large contact policy: keep or invalidate")
		pngPath  = flag.String("png", "", "write the contact trail to this PNG file")
		preview  = flag.Bool("preview", false, "show the trail in the terminal")
		cols     = flag.Int("cols", 72, "terminal preview width in characters")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ps2trace [flags] <packet log>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := run(flag.Arg(0), *protocol, *version, uint32(*fw), byte(*caps), int32(*xmax), int32(*ymax), *large, *pngPath, *preview, *cols); err != nil {
		fmt.Fprintf(os.Stderr, "ps2trace: %v\n", err)
		os.Exit(1)
	}
}

func run(logPath, protocol string, version int, fw uint32, caps byte, xmax, ymax int32, large, pngPath string, preview bool, cols int) error {
	f, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer f.Close()
	packets, err := parseLog(f)
	if err != nil {
		return err
	}

	var dec packetDecoder
	var xMax, yMax int32
	switch protocol {
	case "elantech":
		if version < 1 || version > 3 {
			return fmt.Errorf("unknown hardware version %d", version)
		}
		c := elantech.NewDecoder(elantech.Version(version), fw, caps)
		if elantech.Version(version) == elantech.V3 {
			if xmax <= 0 || ymax <= 0 {
				return fmt.Errorf("elantech v3 needs -xmax and -ymax")
			}
			c.SetGeometry(xmax, ymax)
		}
		_, xMax, _, yMax = decoderGeometry(elantech.Version(version), xmax, ymax)
		dec = c
	case "focaltech":
		var policy focaltech.LargeContactPolicy
		switch large {
		case "keep":
			policy = focaltech.LargeContactKeep
		case "invalidate":
			policy = focaltech.LargeContactInvalidate
		default:
			return fmt.Errorf("unknown large-contact policy %q", large)
		}
		dec = focaltech.NewDecoder(policy)
		xMax, yMax = focaltech.MaxX, focaltech.MaxY
	default:
		return fmt.Errorf("unknown protocol %q", protocol)
	}

	frames, errs := replay(dec, packets)
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "ps2trace: %v\n", e)
	}
	fmt.Printf("%d packets, %d frames, %d dropped\n", len(packets), len(frames), len(packets)-len(frames))

	if pngPath == "" && !preview {
		return nil
	}
	img, err := render(frames, xMax, yMax, fmt.Sprintf("%s  %s", protocol, logPath))
	if err != nil {
		return err
	}
	if pngPath != "" {
		if err := savePNG(img, pngPath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", pngPath)
	}
	if preview {
		previewTerminal(img, cols)
	}
	return nil
}

// decoderGeometry returns the coordinate bounds for an elantech hardware
// version, using the device reported values for version 3.
func decoderGeometry(v elantech.Version, xmax, ymax int32) (xMin, xMax, yMin, yMax int32) {
	switch v {
	case elantech.V1:
		return 32, 544, 32, 344
	case elantech.V2:
		return 0, 1152, 0, 768
	default:
		return 0, xmax, 0, ymax
	}
}

// parseLog reads a packet log: one packet per line, space separated hex
// bytes, '#' comments.
func parseLog(r io.Reader) ([][]byte, error) {
	var packets [][]byte
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		pkt := make([]byte, 0, len(fields))
		for _, field := range fields {
			b, err := hex.DecodeString(strings.TrimPrefix(field, "0x"))
			if err != nil || len(b) != 1 {
				return nil, fmt.Errorf("line %d: bad byte %q", line, field)
			}
			pkt = append(pkt, b[0])
		}
		packets = append(packets, pkt)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return packets, nil
}

// replay feeds packets through the decoder and collects the emitted frames.
// Decode errors do not stop the replay; the byte stream they came from would
// have resynchronized too.
func replay(dec packetDecoder, packets [][]byte) ([]touch.Frame, []error) {
	var frames []touch.Frame
	var errs []error
	for i, pkt := range packets {
		f, err := dec.ProcessPacket(pkt)
		if err != nil {
			errs = append(errs, fmt.Errorf("packet %d (% 02x): %w", i, pkt, err))
			continue
		}
		if f != nil {
			frames = append(frames, *f)
		}
	}
	return frames, errs
}
