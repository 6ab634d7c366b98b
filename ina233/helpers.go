// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// The helpers in this file are single commands or read-modify-write cycles
// on registers the energy engine does not own.

// Averaging is the number of ADC samples averaged into one sample.
type Averaging uint8

const (
	Avg1 Averaging = iota
	Avg4
	Avg16
	Avg64
	Avg128
	Avg256
	Avg512
	Avg1024
)

var averagingCounts = [...]int{1, 4, 16, 64, 128, 256, 512, 1024}

// Count returns the number of averaged samples.
func (a Averaging) Count() int {
	return averagingCounts[a&0x07]
}

// ConversionTime is the ADC conversion time of one channel.
type ConversionTime uint8

const (
	Conv140us ConversionTime = iota
	Conv204us
	Conv332us
	Conv588us
	Conv1100us
	Conv2116us
	Conv4156us
	Conv8244us
)

var conversionDurations = [...]time.Duration{
	140 * time.Microsecond,
	204 * time.Microsecond,
	332 * time.Microsecond,
	588 * time.Microsecond,
	1100 * time.Microsecond,
	2116 * time.Microsecond,
	4156 * time.Microsecond,
	8244 * time.Microsecond,
}

// Duration returns the conversion time.
func (c ConversionTime) Duration() time.Duration {
	return conversionDurations[c&0x07]
}

// Mode is the ADC operating mode.
type Mode uint8

const (
	ModePowerDown Mode = iota
	ModeShuntTriggered
	ModeBusTriggered
	ModeShuntBusTriggered
	ModePowerDown2
	ModeShuntContinuous
	ModeBusContinuous
	ModeShuntBusContinuous
)

// ADCConfig is the content of MFR_ADC_CONFIG.
type ADCConfig struct {
	Averaging       Averaging
	BusConversion   ConversionTime
	ShuntConversion ConversionTime
	Mode            Mode
}

// DefaultADCConfig is the power-on configuration of the device.
var DefaultADCConfig = ADCConfig{
	Averaging:       Avg1,
	BusConversion:   Conv1100us,
	ShuntConversion: Conv1100us,
	Mode:            ModeShuntBusContinuous,
}

// SamplePeriod returns the time between two samples accumulated by READ_EIN
// in continuous shunt and bus mode.
func (c ADCConfig) SamplePeriod() time.Duration {
	return time.Duration(c.Averaging.Count()) * (c.BusConversion.Duration() + c.ShuntConversion.Duration())
}

// MaxDrainInterval is the longest time between two drains for which the
// 24 bit power accumulator cannot roll over, even with every sample at the
// full scale power code.
func (c ADCConfig) MaxDrainInterval() time.Duration {
	return maxWindowSamples * c.SamplePeriod()
}

// Number of full scale READ_PIN samples that fit in the power accumulator.
const maxWindowSamples = (1<<24 - 1) / 0xffff

const adcConfigMask uint16 = 0x0fff

func (c ADCConfig) encode() uint16 {
	return uint16(c.Averaging&0x07)<<9 |
		uint16(c.BusConversion&0x07)<<6 |
		uint16(c.ShuntConversion&0x07)<<3 |
		uint16(c.Mode&0x07)
}

func decodeADCConfig(v uint16) ADCConfig {
	return ADCConfig{
		Averaging:       Averaging(v >> 9 & 0x07),
		BusConversion:   ConversionTime(v >> 6 & 0x07),
		ShuntConversion: ConversionTime(v >> 3 & 0x07),
		Mode:            Mode(v & 0x07),
	}
}

// ReadADCConfig returns the ADC configuration.
func (d *Dev) ReadADCConfig(ctx context.Context) (ADCConfig, error) {
	v, err := d.readWord(ctx, regMfrADCConfig)
	if err != nil {
		return ADCConfig{}, err
	}
	return decodeADCConfig(v), nil
}

// SetADCConfig writes the ADC configuration. The reserved upper bits are
// preserved.
func (d *Dev) SetADCConfig(ctx context.Context, c ADCConfig) error {
	v, err := d.readWord(ctx, regMfrADCConfig)
	if err != nil {
		return err
	}
	v = v&^adcConfigMask | c.encode()
	return d.writeWord(ctx, regMfrADCConfig, v)
}

// Status is the set of PMBus status registers.
type Status struct {
	Byte        uint8
	Word        uint16
	Iout        uint8
	Input       uint8
	CML         uint8
	MfrSpecific uint8
}

// Faulted reports whether any status bit is set.
func (s Status) Faulted() bool {
	return s.Word != 0 || s.Byte != 0 || s.Iout != 0 || s.Input != 0 || s.CML != 0 || s.MfrSpecific != 0
}

// ReadStatus reads all status registers.
func (d *Dev) ReadStatus(ctx context.Context) (Status, error) {
	var s Status
	var err error
	if s.Byte, err = d.readByte(ctx, regStatusByte); err != nil {
		return s, err
	}
	if s.Word, err = d.readWord(ctx, regStatusWord); err != nil {
		return s, err
	}
	if s.Iout, err = d.readByte(ctx, regStatusIout); err != nil {
		return s, err
	}
	if s.Input, err = d.readByte(ctx, regStatusInput); err != nil {
		return s, err
	}
	if s.CML, err = d.readByte(ctx, regStatusCML); err != nil {
		return s, err
	}
	s.MfrSpecific, err = d.readByte(ctx, regStatusMfrSpecific)
	return s, err
}

// ClearFaults clears all fault and warning bits in the status registers.
func (d *Dev) ClearFaults(ctx context.Context) error {
	return d.p.WriteBytes(ctx, d.addr, regClearFaults, nil)
}

// RestoreDefaults resets every register to its power-on value. The session
// calibration is written back and the direction is forgotten, as after New
// with zero current.
func (d *Dev) RestoreDefaults(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.p.WriteBytes(ctx, d.addr, regRestoreDefaultAll, nil); err != nil {
		return err
	}
	d.dir = DirectionUnknown
	if err := d.p.WriteBytes(ctx, d.addr, regMfrCalibration, EncodeCalibrationWord(d.cal.Word)); err != nil {
		return err
	}
	now := d.clock.Now()
	if err := d.clearAccumulator(ctx); err != nil {
		return err
	}
	d.lastRead = now
	return nil
}

// ReadCapability returns the PMBus CAPABILITY byte.
func (d *Dev) ReadCapability(ctx context.Context) (byte, error) {
	return d.readByte(ctx, regCapability)
}

// Identity is the manufacturer information reported by the device.
type Identity struct {
	ID    string
	Model string
}

// ReadIdentity reads MFR_ID and MFR_MODEL. An INA233 reports "TI" and
// "INA233".
func (d *Dev) ReadIdentity(ctx context.Context) (Identity, error) {
	var id Identity
	b, err := d.readBlock(ctx, regMfrID, 2)
	if err != nil {
		return id, err
	}
	id.ID = string(b)
	if b, err = d.readBlock(ctx, regMfrModel, 6); err != nil {
		return id, err
	}
	id.Model = string(b)
	return id, nil
}

// SetAlertMask writes MFR_ALERT_MASK. A set bit keeps the corresponding
// condition from asserting the ALERT pin.
func (d *Dev) SetAlertMask(ctx context.Context, mask byte) error {
	return d.p.WriteBytes(ctx, d.addr, regMfrAlertMask, []byte{mask})
}

// WarnLimit selects a warning limit register.
type WarnLimit uint8

const (
	LimitOverCurrent WarnLimit = iota
	LimitOverVoltage
	LimitUnderVoltage
	LimitOverPower
)

var warnLimitRegs = [...]byte{regIoutOCWarnLimit, regVinOVWarnLimit, regVinUVWarnLimit, regPinOPWarnLimit}

// SetWarnLimit writes a raw warning limit code. Codes use the format of the
// corresponding READ register.
func (d *Dev) SetWarnLimit(ctx context.Context, l WarnLimit, code uint16) error {
	if int(l) >= len(warnLimitRegs) {
		return fmt.Errorf("ina233: invalid warn limit %d", l)
	}
	return d.writeWord(ctx, warnLimitRegs[l], code)
}

func (d *Dev) readByte(ctx context.Context, reg byte) (byte, error) {
	b, err := d.p.ReadBytes(ctx, d.addr, reg, 1)
	if err != nil {
		return 0, err
	}
	if len(b) != 1 {
		return 0, &ProtocolError{Reg: reg, Reason: fmt.Sprintf("expected 1 byte, got %d", len(b))}
	}
	return b[0], nil
}

func (d *Dev) writeWord(ctx context.Context, reg byte, v uint16) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return d.p.WriteBytes(ctx, d.addr, reg, b)
}

func (d *Dev) readBlock(ctx context.Context, reg byte, n int) ([]byte, error) {
	b, err := d.p.ReadBytes(ctx, d.addr, reg, n+1)
	if err != nil {
		return nil, err
	}
	return DecodeBlock(reg, b)
}
