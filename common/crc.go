// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the SMBus/PMBus packet error code.
package common

// PEC calculates the SMBus Packet Error Code (CRC-8, polynomial
// x^8 + x^2 + x + 1, initial value 0) over the byte slice parameter. PMBus
// devices such as the INA233 append it to transactions when PEC is enabled.
//
// The PEC covers every byte on the wire, including the address bytes, so
// callers must prepend addr<<1 (and addr<<1|1 for the read phase).
func PEC(bytes []byte) byte {
	return crc8(0x07, 0x00, bytes)
}

func crc8(poly, init byte, bytes []byte) byte {
	crc := init
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (crc << 1) ^ poly
			}
		}
	}
	return crc
}
