// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ina233 controls a Texas Instruments INA233 PMBus current, voltage,
// power and energy monitor over an i2c bus.
//
// Besides single register telemetry, the package keeps a signed running
// energy total from the device's energy accumulator (READ_EIN). The device
// accumulates an unsigned power magnitude and can only be told to count
// positive or negative samples, so the driver keeps that mode synchronized
// with the direction of the current and discards the one window in which a
// direction change was reported. That loss is bounded by the poll interval;
// poll faster under bidirectional load to reduce it.
//
// # Limitations
//
// The host timestamp of a window is taken immediately before the READ_EIN
// transaction. The instant at which the device commits the accumulator reply
// relative to the CLEAR_EIN command is not documented, so the window
// duration is an approximation of the device's integration interval.
//
// If a bus error occurs after CLEAR_EIN was accepted by the device but
// before the window was added to the total, the window's energy is lost: the
// device accumulator is zero and the host total was not updated. Drain
// reports the error and the next window starts from the cleared accumulator.
//
// The accumulator is 24 bits wide. Drain must be called often enough that it
// does not roll over between calls; at the full scale power code this is
// 256 samples, so with the default 1.1ms conversion times and no averaging
// drains must be less than 563.2ms apart. ADCConfig.MaxDrainInterval returns
// the bound for any configuration; 250ms leaves a comfortable margin.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/ina233.pdf
package ina233
