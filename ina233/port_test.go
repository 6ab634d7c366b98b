// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GermanBionicSystems/powermon/common"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestI2CPort(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{regMfrCalibration, 0x2f, 0x02}},
			{Addr: addr, W: []byte{regReadVin}, R: []byte{0x80, 0x25}},
			{Addr: addr, W: []byte{regClearEin}},
		},
		DontPanic: true,
	}
	p := NewI2CPort(pb, nil)
	ctx := context.Background()
	if err := p.WriteBytes(ctx, addr, regMfrCalibration, []byte{0x2f, 0x02}); err != nil {
		t.Fatal(err)
	}
	b, err := p.ReadBytes(ctx, addr, regReadVin, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte{0x80, 0x25}) {
		t.Errorf("%#v != []byte{0x80, 0x25}", b)
	}
	if err := p.WriteBytes(ctx, addr, regClearEin, nil); err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestI2CPortPEC(t *testing.T) {
	const a = byte(addr << 1)
	writePEC := common.PEC([]byte{a, regClearEin})
	readPEC := common.PEC([]byte{a, regMfrDeviceConfig, a | 1, 0x12})
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{regClearEin, writePEC}},
			{Addr: addr, W: []byte{regMfrDeviceConfig}, R: []byte{0x12, readPEC}},
			{Addr: addr, W: []byte{regMfrDeviceConfig}, R: []byte{0x12, readPEC ^ 0xff}},
		},
		DontPanic: true,
	}
	p := NewI2CPort(pb, &PortOpts{PEC: true})
	ctx := context.Background()
	if err := p.WriteBytes(ctx, addr, regClearEin, nil); err != nil {
		t.Fatal(err)
	}
	b, err := p.ReadBytes(ctx, addr, regMfrDeviceConfig, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte{0x12}) {
		t.Errorf("%#v != []byte{0x12}", b)
	}
	_, err = p.ReadBytes(ctx, addr, regMfrDeviceConfig, 1)
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Errorf("expected *ProtocolError, got %v", err)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestI2CPortTimeout(t *testing.T) {
	bus := &stuckBus{release: make(chan struct{})}
	defer close(bus.release)
	p := NewI2CPort(bus, &PortOpts{Timeout: 5 * time.Millisecond})
	_, err := p.ReadBytes(context.Background(), addr, regReadVin, 2)
	var be *BusError
	if !errors.As(err, &be) || !be.Timeout() {
		t.Fatalf("expected a timed out *BusError, got %v", err)
	}
	if be.Op != "read" || be.Reg != regReadVin {
		t.Errorf("unexpected error details %+v", be)
	}
}

func TestI2CPortCanceled(t *testing.T) {
	bus := &stuckBus{release: make(chan struct{})}
	defer close(bus.release)
	p := NewI2CPort(bus, &PortOpts{Timeout: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.WriteBytes(ctx, addr, regClearEin, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var be *BusError
	if errors.As(err, &be) && be.Timeout() {
		t.Error("cancellation reported as timeout")
	}
}

func TestNewI2CPortDefaults(t *testing.T) {
	p := NewI2CPort(&i2ctest.Playback{}, &PortOpts{})
	if p.opts.Timeout != DefaultPortOpts.Timeout {
		t.Errorf("timeout %s != %s", p.opts.Timeout, DefaultPortOpts.Timeout)
	}
}

func TestI2CPortPECAddress(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	p := NewI2CPort(pb, &PortOpts{PEC: true})
	ctx := context.Background()
	if err := p.WriteBytes(ctx, 0x140, regClearEin, nil); !errors.Is(err, ErrPECAddress) {
		t.Errorf("expected ErrPECAddress, got %v", err)
	}
	if _, err := p.ReadBytes(ctx, 0x140, regReadVin, 2); !errors.Is(err, ErrPECAddress) {
		t.Errorf("expected ErrPECAddress, got %v", err)
	}
	if pb.Count != 0 {
		t.Errorf("%d transactions reached the bus", pb.Count)
	}
}
