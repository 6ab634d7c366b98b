// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"math"

	"periph.io/x/conn/v3/physic"
)

// Calibration holds the scale factors derived from the shunt resistance and
// the maximum expected current.
type Calibration struct {
	// CurrentLSB is the current represented by one READ_IIN count, in amps.
	CurrentLSB float64
	// PowerLSB is the power represented by one READ_PIN or READ_EIN count,
	// in watts. Always 25 * CurrentLSB.
	PowerLSB float64
	// Word is the value written to MFR_CALIBRATION.
	Word uint16
}

// ComputeCalibration returns the scale factors and calibration register value
// for a shunt resistance and maximum expected current.
//
// It does no I/O. If the calibration value does not fit the 16 bit register,
// a *CalibrationOutOfRangeError is returned and nothing should be written to
// the device.
func ComputeCalibration(shunt physic.ElectricResistance, maxCurrent physic.ElectricCurrent) (Calibration, error) {
	if shunt <= 0 {
		return Calibration{}, ErrInvalidShunt
	}
	if maxCurrent <= 0 {
		return Calibration{}, ErrInvalidMaxCurrent
	}
	ohms := float64(shunt) / float64(physic.Ohm)
	amps := float64(maxCurrent) / float64(physic.Ampere)

	currentLSB := amps / currentFullScale
	cal := math.Floor(calibrationScale / (currentLSB * ohms))
	// A zero calibration disables the current and power registers.
	if cal < 1 || cal > math.MaxUint16 {
		return Calibration{}, &CalibrationOutOfRangeError{Value: cal}
	}
	return Calibration{
		CurrentLSB: currentLSB,
		PowerLSB:   currentLSB * powerScale,
		Word:       uint16(cal),
	}, nil
}

func (c Calibration) current(code int16) physic.ElectricCurrent {
	return physic.ElectricCurrent(math.Round(float64(code) * c.CurrentLSB * float64(physic.Ampere)))
}

func (c Calibration) power(code uint16) physic.Power {
	return physic.Power(math.Round(float64(code) * c.PowerLSB * float64(physic.Watt)))
}
