// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package plot keeps a bounded history of drained energy windows and renders
// it as a PNG bar chart.
package plot

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/powermon/ina233"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/physic"
)

// Point is one window of the history.
type Point struct {
	Time time.Time
	// Power is the signed average power in watts. Zero for discarded windows.
	Power float64
	Valid bool
}

// History is a fixed size ring of the most recent windows. It is safe for
// concurrent use.
type History struct {
	mu     sync.Mutex
	points []Point
	next   int
	full   bool
}

// NewHistory returns a History holding up to n points.
func NewHistory(n int) (*History, error) {
	if n <= 0 {
		return nil, errors.New("plot: invalid history size")
	}
	return &History{points: make([]Point, n)}, nil
}

// Add records a window drained at t.
func (h *History) Add(t time.Time, w ina233.Window) {
	p := Point{Time: t, Valid: w.Valid()}
	if p.Valid {
		p.Power = float64(w.AveragePower) / float64(physic.Watt)
		if w.Direction == ina233.DirectionNegative {
			p.Power = -p.Power
		}
	}
	h.mu.Lock()
	h.points[h.next] = p
	h.next++
	if h.next == len(h.points) {
		h.next = 0
		h.full = true
	}
	h.mu.Unlock()
}

// Points returns the recorded points, oldest first.
func (h *History) Points() []Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.full {
		return append([]Point(nil), h.points[:h.next]...)
	}
	out := make([]Point, 0, len(h.points))
	out = append(out, h.points[h.next:]...)
	return append(out, h.points[:h.next]...)
}

// Opts holds the chart rendering options.
type Opts struct {
	Width, Height int
	// FontSize of the labels in points.
	FontSize float64
}

// DefaultOpts is a 640x240 chart.
var DefaultOpts = Opts{Width: 640, Height: 240, FontSize: 12}

// Render draws the points as a bar chart centered on the zero watt line.
// Imported power is drawn green above the line, exported power red below
// it and discarded windows as a grey tick.
func Render(points []Point, opts *Opts) (image.Image, error) {
	dc, err := draw(points, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders the points and encodes the chart as PNG to out.
func WritePNG(out io.Writer, points []Point, opts *Opts) error {
	dc, err := draw(points, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(out)
}

func draw(points []Point, opts *Opts) (*gg.Context, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New("plot: invalid size")
	}
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	size := opts.FontSize
	if size <= 0 {
		size = DefaultOpts.FontSize
	}
	w, h := float64(opts.Width), float64(opts.Height)
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))

	peak := 0.
	for _, p := range points {
		peak = math.Max(peak, math.Abs(p.Power))
	}
	if peak == 0 {
		peak = 1
	}
	padding := size * 1.5
	mid := h / 2
	scale := (mid - padding) / peak

	dc.SetRGB(0, 0, 0)
	dc.DrawString(fmt.Sprintf("+%.3gW", peak), 4, padding)
	dc.DrawString(fmt.Sprintf("-%.3gW", peak), 4, h-4)
	dc.SetLineWidth(1)
	dc.DrawLine(0, mid, w, mid)
	dc.Stroke()

	if len(points) == 0 {
		return dc, nil
	}
	bw := w / float64(len(points))
	for i, p := range points {
		x := float64(i) * bw
		switch {
		case !p.Valid:
			dc.SetRGB(0.6, 0.6, 0.6)
			dc.DrawRectangle(x, mid-2, math.Max(bw-1, 1), 4)
		case p.Power >= 0:
			dc.SetRGB(0, 0.75, 0)
			dc.DrawRectangle(x, mid-p.Power*scale, math.Max(bw-1, 1), p.Power*scale)
		default:
			dc.SetRGB(0.75, 0, 0)
			dc.DrawRectangle(x, mid, math.Max(bw-1, 1), -p.Power*scale)
		}
		dc.Fill()
	}
	return dc, nil
}
