// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeTelemetryWord(t *testing.T) {
	v, err := DecodeTelemetryWord([]byte{0x34, 0x12})
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x1234 {
		t.Errorf("0x%04x != 0x1234", v)
	}
	if _, err := DecodeTelemetryWord([]byte{0x34}); err == nil {
		t.Error("expected error for short word")
	}
}

func TestEncodeCalibrationWord(t *testing.T) {
	if b := EncodeCalibrationWord(0x022f); !bytes.Equal(b, []byte{0x2f, 0x02}) {
		t.Errorf("%#v != []byte{0x2f, 0x02}", b)
	}
}

func TestDecodeAccumulatorPacket(t *testing.T) {
	var tests = []struct {
		name  string
		bytes []byte
		acc   Accumulator
	}{
		{"zero", []byte{6, 0, 0, 0, 0, 0, 0}, Accumulator{}},
		{"million", []byte{6, 0x40, 0x42, 0x0f, 0xe8, 0x03, 0x00}, Accumulator{Power: 1000000, Samples: 1000}},
		{"rollover byte", []byte{6, 0xff, 0xff, 0x01, 0x01, 0x00, 0x00}, Accumulator{Power: 0x01ffff, Samples: 1}},
		{"max", []byte{6, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, Accumulator{Power: 0xffffff, Samples: 0xffffff}},
	}
	for _, test := range tests {
		acc, err := DecodeAccumulatorPacket(test.bytes)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if acc != test.acc {
			t.Errorf("%s: %+v != %+v", test.name, acc, test.acc)
		}
	}
}

func TestDecodeAccumulatorPacketFraming(t *testing.T) {
	var tests = [][]byte{
		{0, 0x40, 0x42, 0x0f, 0xe8, 0x03, 0x00},
		{7, 0x40, 0x42, 0x0f, 0xe8, 0x03, 0x00},
		{6, 0x40, 0x42, 0x0f, 0xe8, 0x03},
		{6, 0x40, 0x42, 0x0f, 0xe8, 0x03, 0x00, 0x00},
	}
	for _, b := range tests {
		_, err := DecodeAccumulatorPacket(b)
		var pe *ProtocolError
		if !errors.As(err, &pe) {
			t.Errorf("%#v: expected *ProtocolError, got %v", b, err)
			continue
		}
		if pe.Reg != regReadEin {
			t.Errorf("%#v: Reg 0x%02x != 0x%02x", b, pe.Reg, regReadEin)
		}
	}
}

func TestDecodeBlock(t *testing.T) {
	b, err := DecodeBlock(regMfrID, []byte{2, 'T', 'I'})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "TI" {
		t.Errorf("%q != \"TI\"", b)
	}
	if _, err := DecodeBlock(regMfrID, []byte{3, 'T', 'I'}); err == nil {
		t.Error("expected error for truncated block")
	}
	if _, err := DecodeBlock(regMfrID, nil); err == nil {
		t.Error("expected error for empty block")
	}
}
