// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestComputeCalibration(t *testing.T) {
	cal, err := ComputeCalibration(2*physic.MilliOhm, 150*physic.Ampere)
	if err != nil {
		t.Fatal(err)
	}
	if expected := 150.0 / 32768; cal.CurrentLSB != expected {
		t.Errorf("CurrentLSB %g != %g", cal.CurrentLSB, expected)
	}
	if expected := 150.0 / 32768 * 25; cal.PowerLSB != expected {
		t.Errorf("PowerLSB %g != %g", cal.PowerLSB, expected)
	}
	// floor(0.00512 / (0.00457763671875 * 0.002)) = floor(559.24)
	if cal.Word != 559 {
		t.Errorf("Word %d != 559", cal.Word)
	}
	if cal.PowerLSB != cal.CurrentLSB*25 {
		t.Errorf("PowerLSB %g is not 25 * CurrentLSB %g", cal.PowerLSB, cal.CurrentLSB)
	}
}

func TestComputeCalibrationIdempotent(t *testing.T) {
	a, err := ComputeCalibration(2*physic.MilliOhm, 150*physic.Ampere)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ComputeCalibration(2*physic.MilliOhm, 150*physic.Ampere)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("%+v != %+v", a, b)
	}
}

func TestComputeCalibrationErrors(t *testing.T) {
	var tests = []struct {
		name       string
		shunt      physic.ElectricResistance
		maxCurrent physic.ElectricCurrent
		err        error
	}{
		{"zero shunt", 0, physic.Ampere, ErrInvalidShunt},
		{"negative shunt", -physic.Ohm, physic.Ampere, ErrInvalidShunt},
		{"zero current", physic.Ohm, 0, ErrInvalidMaxCurrent},
		{"negative current", physic.Ohm, -physic.Ampere, ErrInvalidMaxCurrent},
		// 0.00512 / (0.1/32768 * 0.001) = 1677721
		{"too large", physic.MilliOhm, 100 * physic.MilliAmpere, ErrCalibrationOutOfRange},
		// 0.00512 / (100/32768 * 10) = 0.17
		{"zero word", 10 * physic.Ohm, 100 * physic.Ampere, ErrCalibrationOutOfRange},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ComputeCalibration(test.shunt, test.maxCurrent)
			if !errors.Is(err, test.err) {
				t.Errorf("expected %v, got %v", test.err, err)
			}
		})
	}
}

func TestCalibrationOutOfRangeError(t *testing.T) {
	_, err := ComputeCalibration(physic.MilliOhm, 100*physic.MilliAmpere)
	var e *CalibrationOutOfRangeError
	if !errors.As(err, &e) {
		t.Fatalf("expected *CalibrationOutOfRangeError, got %T", err)
	}
	if e.Value < 65536 {
		t.Errorf("Value %g should be >= 65536", e.Value)
	}
}
