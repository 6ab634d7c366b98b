// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"context"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/powermon/common"
	"periph.io/x/conn/v3/i2c"
)

// Port is the bus transaction layer used by Dev.
//
// ReadBytes selects reg with a write and then reads n bytes. Multi-byte
// fields arrive least significant byte first. Both operations must return
// within a bounded time; a transaction that does not complete fails with a
// *BusError matching ErrBusTimeout.
type Port interface {
	WriteBytes(ctx context.Context, addr uint16, reg byte, data []byte) error
	ReadBytes(ctx context.Context, addr uint16, reg byte, n int) ([]byte, error)
}

// PortOpts holds the configuration options for an I2CPort.
type PortOpts struct {
	// Timeout bounds every transaction. Default is 50ms.
	Timeout time.Duration
	// PEC enables PMBus packet error checking. The device must have been
	// strapped or configured for PEC. Only 7 bit addresses are supported.
	PEC bool
}

// DefaultPortOpts holds the default configuration options for an I2CPort.
var DefaultPortOpts = PortOpts{
	Timeout: 50 * time.Millisecond,
}

// I2CPort implements Port on top of a periph i2c.Bus.
type I2CPort struct {
	b    i2c.Bus
	opts PortOpts
}

// NewI2CPort returns a Port that talks to devices on b.
func NewI2CPort(b i2c.Bus, opts *PortOpts) *I2CPort {
	o := DefaultPortOpts
	if opts != nil {
		o = *opts
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultPortOpts.Timeout
	}
	return &I2CPort{b: b, opts: o}
}

// WriteBytes writes data to register reg. An empty data slice issues a PMBus
// send byte command.
func (p *I2CPort) WriteBytes(ctx context.Context, addr uint16, reg byte, data []byte) error {
	if p.opts.PEC && addr > 0x7f {
		return ErrPECAddress
	}
	w := make([]byte, 0, len(data)+2)
	w = append(w, reg)
	w = append(w, data...)
	if p.opts.PEC {
		w = append(w, common.PEC(append([]byte{byte(addr << 1)}, w...)))
	}
	if err := p.tx(ctx, addr, w, nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// ReadBytes reads n bytes from register reg.
func (p *I2CPort) ReadBytes(ctx context.Context, addr uint16, reg byte, n int) ([]byte, error) {
	if p.opts.PEC && addr > 0x7f {
		return nil, ErrPECAddress
	}
	rn := n
	if p.opts.PEC {
		rn++
	}
	r := make([]byte, rn)
	if err := p.tx(ctx, addr, []byte{reg}, r); err != nil {
		return nil, &BusError{Op: "read", Reg: reg, Err: err}
	}
	if p.opts.PEC {
		hdr := []byte{byte(addr << 1), reg, byte(addr<<1) | 1}
		if pec := common.PEC(append(hdr, r[:n]...)); pec != r[n] {
			return nil, &ProtocolError{Reg: reg, Reason: fmt.Sprintf("pec 0x%02x, expected 0x%02x", r[n], pec)}
		}
	}
	return r[:n], nil
}

// tx runs one bus transaction and gives up after the configured timeout or
// when ctx is done. The bus keeps its own buffer so a transaction that
// completes after being abandoned never writes into r.
func (p *I2CPort) tx(ctx context.Context, addr uint16, w, r []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	var buf []byte
	if len(r) > 0 {
		buf = make([]byte, len(r))
	}
	done := make(chan error, 1)
	go func() {
		done <- p.b.Tx(addr, w, buf)
	}()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
		copy(r, buf)
		return nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return ErrBusTimeout
		}
		return ctx.Err()
	}
}

func (p *I2CPort) String() string {
	return p.b.String()
}

var _ Port = &I2CPort{}
