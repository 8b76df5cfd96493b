// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"golang.org/x/image/font/gofont/goregular"

	"periph.io/x/ps2touch/touch"
)

const (
	renderWidth = 800
	renderPad   = 24.0
	titleHeight = 28.0
)

// slotColors distinguishes the finger slots in the trail. Five entries, one
// per possible slot.
var slotColors = [touch.MaxContacts][3]float64{
	{0.85, 0.20, 0.20},
	{0.20, 0.45, 0.85},
	{0.20, 0.70, 0.30},
	{0.85, 0.60, 0.10},
	{0.60, 0.25, 0.75},
}

// render draws the decoded contact trails on a touchpad-shaped canvas. Each
// slot gets its own color; single-touch frames use the legacy pointer
// position in slot 0's color. Button-down frames draw filled dots, hovering
// ones rings.
func render(frames []touch.Frame, xMax, yMax int32, title string) (image.Image, error) {
	if xMax <= 0 || yMax <= 0 {
		return nil, fmt.Errorf("bad geometry %dx%d", xMax, yMax)
	}
	scale := (renderWidth - 2*renderPad) / float64(xMax)
	height := float64(yMax)*scale + 2*renderPad + titleHeight
	dc := gg.NewContext(renderWidth, int(height))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Pad outline.
	dc.SetRGB(0.75, 0.75, 0.75)
	dc.SetLineWidth(1)
	dc.DrawRectangle(renderPad, renderPad+titleHeight, float64(xMax)*scale, float64(yMax)*scale)
	dc.Stroke()

	at := func(x, y int32) (float64, float64) {
		return renderPad + float64(x)*scale, renderPad + titleHeight + float64(y)*scale
	}

	for i := range frames {
		f := &frames[i]
		drew := false
		for slot := 0; slot < touch.MaxContacts; slot++ {
			c := f.Contacts[slot]
			if !c.Active {
				continue
			}
			drew = true
			x, y := at(c.X, c.Y)
			drawMark(dc, slotColors[slot], x, y, f.Left)
		}
		if !drew && f.HasPosition {
			x, y := at(f.X, f.Y)
			drawMark(dc, slotColors[0], x, y, f.Left)
		}
	}

	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: 13}))
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawString(fmt.Sprintf("%s  (%d frames, %dx%d)", title, len(frames), xMax, yMax), renderPad, renderPad+2)
	return dc.Image(), nil
}

// drawMark draws one contact mark; pressed contacts are filled.
func drawMark(dc *gg.Context, rgb [3]float64, x, y float64, pressed bool) {
	dc.SetRGBA(rgb[0], rgb[1], rgb[2], 0.7)
	dc.DrawCircle(x, y, 3)
	if pressed {
		dc.Fill()
	} else {
		dc.SetLineWidth(1.2)
		dc.Stroke()
	}
}

func savePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// previewTerminal downsamples the image to colored blocks on stdout, one
// block per sampled pixel.
func previewTerminal(img image.Image, cols int) {
	if cols < 8 {
		cols = 8
	}
	b := img.Bounds()
	step := b.Dx() / cols
	if step < 1 {
		step = 1
	}
	w := colorable.NewColorableStdout()
	// Terminal cells are roughly twice as tall as wide.
	for y := b.Min.Y; y < b.Max.Y; y += 2 * step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			c := color.NRGBA{byte(r16 >> 8), byte(g16 >> 8), byte(b16 >> 8), 255}
			fmt.Fprint(w, ansi256.Default.Block(c))
		}
		fmt.Fprint(w, "\033[0m\n")
	}
}
