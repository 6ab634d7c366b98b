// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// PowerMonitor represents measurements from the device.
type PowerMonitor struct {
	Shunt   physic.ElectricPotential
	Voltage physic.ElectricPotential
	Current physic.ElectricCurrent
	Power   physic.Power
}

func (p PowerMonitor) String() string {
	return fmt.Sprintf("Bus: %s, Shunt: %s, Current: %s, Power: %s", p.Voltage, p.Shunt, p.Current, p.Power)
}

// ReadBusVoltageCode returns the raw READ_VIN code. One count is 1.25mV.
func (d *Dev) ReadBusVoltageCode(ctx context.Context) (uint16, error) {
	return d.readWord(ctx, regReadVin)
}

// ReadShuntVoltageCode returns the raw MFR_READ_VSHUNT code. One count is
// 2.5µV.
func (d *Dev) ReadShuntVoltageCode(ctx context.Context) (int16, error) {
	code, err := d.readWord(ctx, regMfrReadVshunt)
	return int16(code), err
}

// ReadCurrentCode returns the raw READ_IIN code. One count is
// Calibration().CurrentLSB.
func (d *Dev) ReadCurrentCode(ctx context.Context) (int16, error) {
	return d.readCurrentCode(ctx)
}

// ReadPowerCode returns the raw READ_PIN code. One count is
// Calibration().PowerLSB.
func (d *Dev) ReadPowerCode(ctx context.Context) (uint16, error) {
	return d.readWord(ctx, regReadPin)
}

// Sense reads the bus voltage, shunt voltage, current and power registers.
func (d *Dev) Sense(ctx context.Context) (PowerMonitor, error) {
	var pm PowerMonitor
	vin, err := d.ReadBusVoltageCode(ctx)
	if err != nil {
		return pm, err
	}
	vshunt, err := d.ReadShuntVoltageCode(ctx)
	if err != nil {
		return pm, err
	}
	iin, err := d.ReadCurrentCode(ctx)
	if err != nil {
		return pm, err
	}
	pin, err := d.ReadPowerCode(ctx)
	if err != nil {
		return pm, err
	}
	cal := d.Calibration()
	pm.Voltage = busVoltage(vin)
	pm.Shunt = shuntVoltage(vshunt)
	pm.Current = cal.current(iin)
	pm.Power = cal.power(pin)
	return pm, nil
}

func busVoltage(code uint16) physic.ElectricPotential {
	return physic.ElectricPotential(code) * 1250 * physic.MicroVolt
}

func shuntVoltage(code int16) physic.ElectricPotential {
	return physic.ElectricPotential(code) * 2500 * physic.NanoVolt
}
