// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package powermon is a container for the INA233 energy monitor driver and
// the ina233d daemon built on it.
//
// The driver lives in package ina233. cmd/ina233d polls it and reports the
// integrated energy.
package powermon
