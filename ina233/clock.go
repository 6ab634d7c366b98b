// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"time"
)

// Clock is the host time source used to measure accumulator windows.
type Clock interface {
	// Now returns a monotonic tick count in [0, Modulus()).
	Now() uint64
	// Modulus is the value at which Now wraps to 0. 0 means 2^64.
	Modulus() uint64
	// Resolution is the duration of one tick.
	Resolution() time.Duration
}

// Elapsed returns the number of ticks from from to to, assuming the clock
// wrapped at most once in between.
func Elapsed(c Clock, from, to uint64) uint64 {
	if to >= from {
		return to - from
	}
	m := c.Modulus()
	if m == 0 {
		// Unsigned arithmetic already wraps at 2^64.
		return to - from
	}
	return (m - from) + to
}

// HostClock is a microsecond tick counter derived from the Go monotonic
// clock. It wraps at 2^32 ticks, about 71 minutes.
type HostClock struct {
	start time.Time
}

// NewHostClock returns a HostClock starting at 0.
func NewHostClock() *HostClock {
	return &HostClock{start: time.Now()}
}

// Now implements Clock.
func (h *HostClock) Now() uint64 {
	return uint64(time.Since(h.start)/time.Microsecond) % h.Modulus()
}

// Modulus implements Clock.
func (h *HostClock) Modulus() uint64 {
	return 1 << 32
}

// Resolution implements Clock.
func (h *HostClock) Resolution() time.Duration {
	return time.Microsecond
}

var _ Clock = &HostClock{}
