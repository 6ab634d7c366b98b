// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"encoding/binary"
	"fmt"
)

// Accumulator is a decoded READ_EIN reply.
type Accumulator struct {
	// Power is the sum of the power codes of the accumulated samples. The
	// device rollover counter is folded in as the most significant byte.
	Power uint32
	// Samples is the number of samples accumulated into Power.
	Samples uint32
}

// DecodeTelemetryWord decodes a 2 byte register value, least significant
// byte first.
func DecodeTelemetryWord(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("ina233: telemetry word needs 2 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint16(b), nil
}

// EncodeCalibrationWord encodes the MFR_CALIBRATION value, least significant
// byte first.
func EncodeCalibrationWord(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// DecodeAccumulatorPacket decodes the 7 byte READ_EIN block reply:
//
//	byte 0     block byte count, always 6
//	bytes 1-3  power accumulator, LSB first (byte 3 is the rollover count)
//	bytes 4-6  sample count, LSB first
func DecodeAccumulatorPacket(b []byte) (Accumulator, error) {
	if len(b) != einBlockLen+1 {
		return Accumulator{}, &ProtocolError{Reg: regReadEin, Reason: fmt.Sprintf("expected %d bytes, got %d", einBlockLen+1, len(b))}
	}
	if b[0] != einBlockLen {
		return Accumulator{}, &ProtocolError{Reg: regReadEin, Reason: fmt.Sprintf("block count %d, expected %d", b[0], einBlockLen)}
	}
	return Accumulator{
		Power:   uint24(b[1:4]),
		Samples: uint24(b[4:7]),
	}, nil
}

// DecodeBlock returns the payload of a PMBus block read reply. The first
// byte is the payload length.
func DecodeBlock(reg byte, b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, &ProtocolError{Reg: reg, Reason: "empty block"}
	}
	n := int(b[0])
	if n > len(b)-1 {
		return nil, &ProtocolError{Reg: reg, Reason: fmt.Sprintf("block count %d exceeds %d received bytes", n, len(b)-1)}
	}
	return b[1 : 1+n], nil
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
