// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package powerbar renders signed power readings as a bar gauge on a terminal
// using ANSI color codes.
//
// Imported power grows a green bar, exported power a red one. The length of
// the bar is proportional to |P| over the configured full scale.
package powerbar

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/GermanBionicSystems/powermon/ina233"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

// Opts represents the options available for the gauge.
type Opts struct {
	// X is the number of cells of the bar.
	X int
	// FullScale is the power that lights every cell.
	FullScale physic.Power
	Palette   *ansi256.Palette

	_ struct{}
}

// DefaultOpts is a 40 cell gauge with a 100W full scale.
var DefaultOpts = Opts{
	X:         40,
	FullScale: 100 * physic.Watt,
}

var (
	colorImport = color.NRGBA{0x00, 0xc0, 0x00, 0xff}
	colorExport = color.NRGBA{0xc0, 0x00, 0x00, 0xff}
	colorOff    = color.NRGBA{0x00, 0x00, 0x00, 0xff}
)

// Dev is a terminal power gauge.
type Dev struct {
	w         io.Writer
	l         int
	fullScale physic.Power
	palette   ansi256.Palette

	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	return NewWriter(colorable.NewColorableStdout(), opts)
}

// NewWriter returns a Dev that writes its escape sequences to w.
func NewWriter(w io.Writer, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.X <= 0 {
		return nil, errors.New("powerbar: invalid width")
	}
	if opts.FullScale < physic.MicroWatt {
		return nil, errors.New("powerbar: invalid full scale")
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Dev{w: w, l: opts.X, fullScale: opts.FullScale, palette: *p}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("PowerBar{%d, %s}", d.l, d.fullScale)
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes and moves to the next line.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Cells returns the number of lit cells for p, clamped to the width.
func (d *Dev) Cells(p physic.Power) int {
	if p < 0 {
		p = -p
	}
	// Round to the nearest cell without overflowing int64 on large inputs.
	n := int((p/physic.MicroWatt*physic.Power(d.l) + d.fullScale/physic.MicroWatt/2) / (d.fullScale / physic.MicroWatt))
	if n > d.l {
		n = d.l
	}
	return n
}

// Show renders a signed power. Negative values are export.
func (d *Dev) Show(p physic.Power) error {
	c := colorImport
	if p < 0 {
		c = colorExport
	}
	n := d.Cells(p)
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < d.l; i++ {
		if i < n {
			_, _ = io.WriteString(&d.buf, d.palette.Block(c))
		} else {
			_, _ = io.WriteString(&d.buf, d.palette.Block(colorOff))
		}
	}
	_, _ = fmt.Fprintf(&d.buf, "\033[0m %s ", p)
	_, err := d.buf.WriteTo(d.w)
	return err
}

// ShowWindow renders the average power of a drained window. Discarded
// windows leave the gauge unchanged.
func (d *Dev) ShowWindow(w ina233.Window) error {
	if !w.Valid() {
		return nil
	}
	p := w.AveragePower
	if w.Direction == ina233.DirectionNegative {
		p = -p
	}
	return d.Show(p)
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
