// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"errors"
	"fmt"
)

var (
	// ErrBusTimeout is matched by a BusError raised because a transaction
	// did not complete within its bound.
	ErrBusTimeout = errors.New("ina233: bus timeout")
	// ErrCalibrationOutOfRange is matched by CalibrationOutOfRangeError.
	ErrCalibrationOutOfRange = errors.New("ina233: calibration out of range")

	// ErrPECAddress is returned by I2CPort when PEC is enabled for an
	// address that does not fit the 7 bit address byte the PEC covers.
	ErrPECAddress = errors.New("ina233: PEC requires a 7 bit address")

	ErrInvalidShunt      = errors.New("ina233: shunt resistance must be > 0")
	ErrInvalidMaxCurrent = errors.New("ina233: max current must be > 0")
)

// BusError is returned when a bus transaction failed or did not complete in
// time. The driver never retries; retry policy belongs to the caller.
type BusError struct {
	Op  string
	Reg byte
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("ina233: %s 0x%02x: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the transaction was abandoned because it exceeded
// its bound.
func (e *BusError) Timeout() bool {
	return errors.Is(e.Err, ErrBusTimeout)
}

// ProtocolError is returned when a reply was received but violated the
// expected framing. The device accumulator is left untouched so a retry is
// safe.
type ProtocolError struct {
	Reg    byte
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ina233: protocol error on 0x%02x: %s", e.Reg, e.Reason)
}

// CalibrationOutOfRangeError is returned when the shunt and current range
// cannot be represented in the 16 bit calibration register.
type CalibrationOutOfRangeError struct {
	Value float64
}

func (e *CalibrationOutOfRangeError) Error() string {
	return fmt.Sprintf("ina233: calibration value %.0f does not fit in 1..65535", e.Value)
}

func (e *CalibrationOutOfRangeError) Is(target error) bool {
	return target == ErrCalibrationOutOfRange
}
