// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"context"
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestADCConfig(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{regMfrADCConfig}, R: []byte{0x27, 0x41}},
			{Addr: addr, W: []byte{regMfrADCConfig}, R: []byte{0x27, 0x41}},
			{Addr: addr, W: []byte{regMfrADCConfig, 0xdf, 0x44}},
		},
		DontPanic: true,
	}
	d, _ := newTestDev(pb, DirectionPositive)
	ctx := context.Background()
	c, err := d.ReadADCConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c != DefaultADCConfig {
		t.Errorf("%+v != %+v", c, DefaultADCConfig)
	}
	if c.SamplePeriod() != 2200*time.Microsecond {
		t.Errorf("sample period %s != 2.2ms", c.SamplePeriod())
	}
	if c.MaxDrainInterval() != 563200*time.Microsecond {
		t.Errorf("max drain interval %s != 563.2ms", c.MaxDrainInterval())
	}
	err = d.SetADCConfig(ctx, ADCConfig{
		Averaging:       Avg16,
		BusConversion:   Conv588us,
		ShuntConversion: Conv588us,
		Mode:            ModeShuntBusContinuous,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestReadStatus(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{regStatusByte}, R: []byte{0x00}},
			{Addr: addr, W: []byte{regStatusWord}, R: []byte{0x00, 0x00}},
			{Addr: addr, W: []byte{regStatusIout}, R: []byte{0x20}},
			{Addr: addr, W: []byte{regStatusInput}, R: []byte{0x00}},
			{Addr: addr, W: []byte{regStatusCML}, R: []byte{0x00}},
			{Addr: addr, W: []byte{regStatusMfrSpecific}, R: []byte{0x00}},
			{Addr: addr, W: []byte{regClearFaults}},
		},
		DontPanic: true,
	}
	d, _ := newTestDev(pb, DirectionPositive)
	ctx := context.Background()
	s, err := d.ReadStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Iout != 0x20 || !s.Faulted() {
		t.Errorf("status %+v", s)
	}
	if err := d.ClearFaults(ctx); err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestRestoreDefaults(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{regRestoreDefaultAll}},
			{Addr: addr, W: []byte{regMfrCalibration, 0x01, 0x00}},
			{Addr: addr, W: []byte{regClearEin}},
		},
		DontPanic: true,
	}
	d, _ := newTestDev(pb, DirectionNegative)
	d.total = -3
	if err := d.RestoreDefaults(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.Direction() != DirectionUnknown {
		t.Errorf("direction %s != unknown", d.Direction())
	}
	if d.TotalJoules() != -3 {
		t.Errorf("total %g changed", d.TotalJoules())
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestReadIdentity(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{regMfrID}, R: []byte{2, 'T', 'I'}},
			{Addr: addr, W: []byte{regMfrModel}, R: []byte{6, 'I', 'N', 'A', '2', '3', '3'}},
			{Addr: addr, W: []byte{regCapability}, R: []byte{0xb0}},
		},
		DontPanic: true,
	}
	d, _ := newTestDev(pb, DirectionPositive)
	ctx := context.Background()
	id, err := d.ReadIdentity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id.ID != "TI" || id.Model != "INA233" {
		t.Errorf("identity %+v", id)
	}
	c, err := d.ReadCapability(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c != 0xb0 {
		t.Errorf("capability 0x%02x != 0xb0", c)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestLimits(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: addr, W: []byte{regMfrAlertMask, 0xf0}},
			{Addr: addr, W: []byte{regVinOVWarnLimit, 0x80, 0x25}},
		},
		DontPanic: true,
	}
	d, _ := newTestDev(pb, DirectionPositive)
	ctx := context.Background()
	if err := d.SetAlertMask(ctx, 0xf0); err != nil {
		t.Fatal(err)
	}
	if err := d.SetWarnLimit(ctx, LimitOverVoltage, 0x2580); err != nil {
		t.Fatal(err)
	}
	if err := d.SetWarnLimit(ctx, WarnLimit(9), 0); err == nil {
		t.Error("expected error for invalid limit")
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

// shortPort answers every read with no data.
type shortPort struct{}

func (shortPort) WriteBytes(ctx context.Context, addr uint16, reg byte, data []byte) error {
	return nil
}

func (shortPort) ReadBytes(ctx context.Context, addr uint16, reg byte, n int) ([]byte, error) {
	return []byte{}, nil
}

func TestReadByteShortReply(t *testing.T) {
	d, _ := newTestDev(&i2ctest.Playback{}, DirectionPositive)
	d.p = shortPort{}
	_, err := d.ReadCapability(context.Background())
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Reg != regCapability {
		t.Fatalf("expected *ProtocolError for 0x%02x, got %v", regCapability, err)
	}
}
