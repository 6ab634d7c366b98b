// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"math"
	"testing"
	"time"
)

// fakeClock returns now and then advances it by step.
type fakeClock struct {
	now  uint64
	step uint64
	mod  uint64
}

func (c *fakeClock) Now() uint64 {
	v := c.now
	c.now += c.step
	if c.mod != 0 {
		c.now %= c.mod
	}
	return v
}

func (c *fakeClock) Modulus() uint64 {
	return c.mod
}

func (c *fakeClock) Resolution() time.Duration {
	return time.Microsecond
}

func TestElapsed(t *testing.T) {
	var tests = []struct {
		mod      uint64
		from, to uint64
		expected uint64
	}{
		{1 << 32, 100, 300, 200},
		{1 << 32, 300, 300, 0},
		{1 << 32, 1<<32 - 500000, 500000, 1000000},
		{1 << 32, 1<<32 - 1, 0, 1},
		{0, math.MaxUint64 - 9, 10, 20},
	}
	for _, test := range tests {
		c := &fakeClock{mod: test.mod}
		if got := Elapsed(c, test.from, test.to); got != test.expected {
			t.Errorf("Elapsed(%d, %d) mod %d = %d, expected %d", test.from, test.to, test.mod, got, test.expected)
		}
	}
}

func TestHostClock(t *testing.T) {
	c := NewHostClock()
	a := c.Now()
	time.Sleep(2 * time.Millisecond)
	b := c.Now()
	if e := Elapsed(c, a, b); e < 2000 {
		t.Errorf("elapsed %dµs < 2000µs", e)
	}
	if a >= c.Modulus() || b >= c.Modulus() {
		t.Errorf("ticks %d, %d not below modulus %d", a, b, c.Modulus())
	}
	if c.Resolution() != time.Microsecond {
		t.Errorf("resolution %s", c.Resolution())
	}
}
