// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

// DefaultAddress is the bus address with A0 and A1 tied to GND.
const DefaultAddress uint16 = 0x40

// PMBus command codes.
const (
	regClearFaults       byte = 0x03
	regRestoreDefaultAll byte = 0x12
	regCapability        byte = 0x19
	regIoutOCWarnLimit   byte = 0x4a
	regVinOVWarnLimit    byte = 0x57
	regVinUVWarnLimit    byte = 0x58
	regPinOPWarnLimit    byte = 0x6b
	regStatusByte        byte = 0x78
	regStatusWord        byte = 0x79
	regStatusIout        byte = 0x7b
	regStatusInput       byte = 0x7c
	regStatusCML         byte = 0x7e
	regStatusMfrSpecific byte = 0x80
	regReadEin           byte = 0x86
	regReadVin           byte = 0x88
	regReadIin           byte = 0x89
	regReadPin           byte = 0x97
	regMfrID             byte = 0x99
	regMfrModel          byte = 0x9a
	regMfrADCConfig      byte = 0xd0
	regMfrReadVshunt     byte = 0xd1
	regMfrAlertMask      byte = 0xd2
	regMfrCalibration    byte = 0xd4
	regMfrDeviceConfig   byte = 0xd5
	regClearEin          byte = 0xd6
)

// MFR_DEVICE_CONFIG bits.
const (
	// Set by the device when the current changed direction since the last
	// clear. Cleared by writing the register with the bit at 0.
	einStatusBit byte = 1 << 7
	// EIN_accum selects which samples the energy accumulator integrates.
	einAccumShift      = 4
	einAccumMask  byte = 0x03 << einAccumShift
	einAccumAll   byte = 0x00
	einAccumPos   byte = 0x01
	einAccumNeg   byte = 0x02
)

// Fixed scale factors.
const (
	// powerLSB = currentLSB * powerScale.
	powerScale = 25
	// Calibration = calibrationScale / (currentLSB * Rshunt).
	calibrationScale = 0.00512
	// currentLSB = Imax / currentFullScale.
	currentFullScale = 1 << 15
)

// einBlockLen is the PMBus byte count prefix of the READ_EIN reply.
const einBlockLen = 6
