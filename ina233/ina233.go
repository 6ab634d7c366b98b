// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ina233

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

// Direction is the sign of the current the accumulator is attributed to.
type Direction int8

const (
	// DirectionUnknown is only reported until the first nonzero current is
	// observed.
	DirectionUnknown Direction = iota
	// DirectionPositive counts positive (import) samples, adding to the total.
	DirectionPositive
	// DirectionNegative counts negative (export) samples, subtracting from
	// the total.
	DirectionNegative
)

func (d Direction) String() string {
	switch d {
	case DirectionPositive:
		return "positive"
	case DirectionNegative:
		return "negative"
	default:
		return "unknown"
	}
}

func directionOf(code int16) Direction {
	switch {
	case code > 0:
		return DirectionPositive
	case code < 0:
		return DirectionNegative
	default:
		return DirectionUnknown
	}
}

// WindowStatus tells whether a drained window contributed to the total.
type WindowStatus uint8

const (
	WindowValid WindowStatus = iota
	WindowDiscarded
)

func (s WindowStatus) String() string {
	if s == WindowValid {
		return "valid"
	}
	return "discarded"
}

// DiscardReason explains why a window was discarded.
type DiscardReason uint8

const (
	ReasonNone DiscardReason = iota
	// The device reported a current direction change during the window, so
	// the accumulated magnitude cannot be attributed to one sign.
	ReasonDirectionChanged
	// No nonzero current was observed yet.
	ReasonDirectionUnknown
	// The device reported no samples.
	ReasonNoSamples
)

func (r DiscardReason) String() string {
	switch r {
	case ReasonDirectionChanged:
		return "direction changed"
	case ReasonDirectionUnknown:
		return "direction unknown"
	case ReasonNoSamples:
		return "no samples"
	default:
		return "none"
	}
}

// Window is the outcome of one accumulator drain.
//
// A discarded window is a normal outcome, not an error.
type Window struct {
	Status WindowStatus
	Reason DiscardReason
	// Direction the window was attributed to. For a discarded window, the
	// direction in effect after reconciliation.
	Direction Direction
	// Raw accumulator contents.
	Accumulator Accumulator
	// Duration measured on the host clock since the previous drain.
	Duration time.Duration
	// AveragePower over the window. Zero for a discarded window.
	AveragePower physic.Power
	// Energy is the magnitude integrated over the window. Zero for a
	// discarded window.
	Energy physic.Energy
	// Err is only set on windows delivered by Integrate when the drain
	// failed. All other fields are zero in that case.
	Err error
}

// Valid reports whether the window contributed to the total.
func (w *Window) Valid() bool {
	return w.Err == nil && w.Status == WindowValid
}

// Delta is the signed contribution of the window to the total.
func (w *Window) Delta() physic.Energy {
	if !w.Valid() {
		return 0
	}
	if w.Direction == DirectionNegative {
		return -w.Energy
	}
	return w.Energy
}

// Opts holds the configuration options for the device.
type Opts struct {
	// Address is the device bus address. Default is DefaultAddress.
	Address uint16
	// Shunt is the shunt resistance. Must be > 0.
	Shunt physic.ElectricResistance
	// MaxCurrent is the maximum expected current through the shunt. Must be
	// > 0.
	MaxCurrent physic.ElectricCurrent
	// Clock measures window durations. Default is NewHostClock().
	Clock Clock
}

// DefaultOpts holds the default configuration options for the device: a 2mΩ
// shunt and a 10A range.
var DefaultOpts = Opts{
	Address:    DefaultAddress,
	Shunt:      2 * physic.MilliOhm,
	MaxCurrent: 10 * physic.Ampere,
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Direction   Direction
	Total       physic.Energy
	TotalJoules float64
	Last        Window
	Calibration Calibration
}

// Dev is an open session with one INA233.
//
// The energy state is owned by the Dev and only changed by Drain,
// Recalibrate and ResetTotal. Drains are serialized; a single device must
// not be driven by two Dev at once.
type Dev struct {
	p     Port
	addr  uint16
	clock Clock

	mu       sync.Mutex
	cal      Calibration
	dir      Direction
	lastRead uint64
	// Running total in joules.
	total float64
	last  Window

	stop chan struct{}
	wg   sync.WaitGroup
}

// New calibrates the device and opens an energy session.
//
// If the current is nonzero, the accumulator is set to integrate samples of
// that sign. The accumulator is then cleared so the first window starts with
// the host timestamp.
func New(ctx context.Context, p Port, opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Address == 0 {
		o.Address = DefaultAddress
	}
	if o.Clock == nil {
		o.Clock = NewHostClock()
	}
	// Fails before any bus access.
	cal, err := ComputeCalibration(o.Shunt, o.MaxCurrent)
	if err != nil {
		return nil, err
	}
	d := &Dev{p: p, addr: o.Address, clock: o.Clock}
	if err := d.p.WriteBytes(ctx, d.addr, regMfrCalibration, EncodeCalibrationWord(cal.Word)); err != nil {
		return nil, err
	}
	d.cal = cal

	code, err := d.readCurrentCode(ctx)
	if err != nil {
		return nil, err
	}
	if dir := directionOf(code); dir != DirectionUnknown {
		cfg, err := d.readDeviceConfig(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := d.writeDirection(ctx, cfg, dir); err != nil {
			return nil, err
		}
		d.dir = dir
	}
	if err := d.clearAccumulator(ctx); err != nil {
		return nil, err
	}
	d.lastRead = d.clock.Now()
	return d, nil
}

// Drain reads and clears the energy accumulator and updates the running
// total. Call it periodically; the cadence is up to the caller as long as the
// 24 bit accumulator does not overflow between calls.
//
// A window in which the device reported a direction change, a window with
// no samples and any window before the direction is known are returned with
// Status WindowDiscarded and leave the total unchanged.
//
// On error, the returned Window is zero. A *ProtocolError leaves the device
// accumulator and the session untouched. A *BusError leaves the session
// untouched except for device writes that had already been accepted; see
// the package documentation for the window lost when the error follows the
// accumulator clear.
func (d *Dev) Drain(ctx context.Context) (Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	b, err := d.p.ReadBytes(ctx, d.addr, regReadEin, einBlockLen+1)
	if err != nil {
		return Window{}, err
	}
	acc, err := DecodeAccumulatorPacket(b)
	if err != nil {
		return Window{}, err
	}
	cfg, err := d.readDeviceConfig(ctx)
	if err != nil {
		return Window{}, err
	}
	dur := time.Duration(Elapsed(d.clock, d.lastRead, now)) * d.clock.Resolution()

	if cfg&einStatusBit != 0 {
		return d.reconcile(ctx, cfg, now, acc, dur, ReasonDirectionChanged)
	}
	if d.dir == DirectionUnknown {
		return d.reconcile(ctx, cfg, now, acc, dur, ReasonDirectionUnknown)
	}

	w := Window{Direction: d.dir, Accumulator: acc, Duration: dur}
	if acc.Samples == 0 {
		if err := d.clearAccumulator(ctx); err != nil {
			return Window{}, err
		}
		w.Status = WindowDiscarded
		w.Reason = ReasonNoSamples
		d.lastRead = now
		d.last = w
		return w, nil
	}

	avg := float64(acc.Power) * d.cal.PowerLSB / float64(acc.Samples)
	energy := avg * dur.Seconds()
	if err := d.clearAccumulator(ctx); err != nil {
		return Window{}, err
	}
	if d.dir == DirectionPositive {
		d.total += energy
	} else {
		d.total -= energy
	}
	w.Status = WindowValid
	w.AveragePower = physic.Power(math.Round(avg * float64(physic.Watt)))
	w.Energy = physic.Energy(math.Round(energy * float64(physic.Joule)))
	d.lastRead = now
	d.last = w
	return w, nil
}

// reconcile resynchronizes the accumulator sign with the current and drops
// the window.
func (d *Dev) reconcile(ctx context.Context, cfg byte, now uint64, acc Accumulator, dur time.Duration, reason DiscardReason) (Window, error) {
	code, err := d.readCurrentCode(ctx)
	if err != nil {
		return Window{}, err
	}
	// Zero current is ambiguous: keep the previous direction.
	if dir := directionOf(code); dir != DirectionUnknown {
		if cfg, err = d.writeDirection(ctx, cfg, dir); err != nil {
			return Window{}, err
		}
		d.dir = dir
	}
	if err := d.clearAccumulator(ctx); err != nil {
		return Window{}, err
	}
	if cfg&einStatusBit != 0 {
		if err := d.writeDeviceConfig(ctx, cfg&^einStatusBit); err != nil {
			return Window{}, err
		}
	}
	w := Window{
		Status:      WindowDiscarded,
		Reason:      reason,
		Direction:   d.dir,
		Accumulator: acc,
		Duration:    dur,
	}
	d.lastRead = now
	d.last = w
	return w, nil
}

// Recalibrate writes a new calibration. The accumulated window was scaled
// with the previous calibration, so it is cleared and dropped.
func (d *Dev) Recalibrate(ctx context.Context, shunt physic.ElectricResistance, maxCurrent physic.ElectricCurrent) error {
	cal, err := ComputeCalibration(shunt, maxCurrent)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.p.WriteBytes(ctx, d.addr, regMfrCalibration, EncodeCalibrationWord(cal.Word)); err != nil {
		return err
	}
	d.cal = cal
	now := d.clock.Now()
	if err := d.clearAccumulator(ctx); err != nil {
		return err
	}
	d.lastRead = now
	return nil
}

// Total returns the running signed energy total.
//
// physic.Energy saturates at about 9.2GJ (2.5MWh); use TotalJoules for
// larger totals.
func (d *Dev) Total() physic.Energy {
	return physic.Energy(math.Round(d.TotalJoules() * float64(physic.Joule)))
}

// TotalJoules returns the running signed energy total in joules.
func (d *Dev) TotalJoules() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

// ResetTotal sets the running total to zero.
func (d *Dev) ResetTotal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.total = 0
}

// Direction returns the direction the accumulator is currently attributed
// to.
func (d *Dev) Direction() Direction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dir
}

// LastWindow returns the result of the most recent successful drain.
func (d *Dev) LastWindow() Window {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Calibration returns the calibration in effect.
func (d *Dev) Calibration() Calibration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cal
}

// Snapshot returns the session state.
func (d *Dev) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Direction:   d.dir,
		Total:       physic.Energy(math.Round(d.total * float64(physic.Joule))),
		TotalJoules: d.total,
		Last:        d.last,
		Calibration: d.cal,
	}
}

// Integrate drains the accumulator every interval and writes each window to
// the returned channel. A failed drain is delivered as a Window with Err
// set. To terminate, call Halt() or cancel ctx.
func (d *Dev) Integrate(ctx context.Context, interval time.Duration) (<-chan Window, error) {
	if interval <= 0 {
		return nil, errors.New("ina233: invalid interval")
	}
	d.mu.Lock()
	if d.stop != nil {
		d.mu.Unlock()
		return nil, errors.New("ina233: Integrate already running")
	}
	stop := make(chan struct{})
	d.stop = stop
	d.wg.Add(1)
	d.mu.Unlock()

	ch := make(chan Window, 16)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		defer func() {
			d.mu.Lock()
			if d.stop == stop {
				d.stop = nil
			}
			d.mu.Unlock()
		}()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				w, err := d.Drain(ctx)
				if err != nil {
					w = Window{Err: err}
				}
				select {
				case ch <- w:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// Halt stops a running Integrate. It does not change the device state.
// Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ina233{%v, 0x%02x}", d.p, d.addr)
}

func (d *Dev) readCurrentCode(ctx context.Context) (int16, error) {
	code, err := d.readWord(ctx, regReadIin)
	return int16(code), err
}

func (d *Dev) readWord(ctx context.Context, reg byte) (uint16, error) {
	b, err := d.p.ReadBytes(ctx, d.addr, reg, 2)
	if err != nil {
		return 0, err
	}
	return DecodeTelemetryWord(b)
}

func (d *Dev) readDeviceConfig(ctx context.Context) (byte, error) {
	return d.readByte(ctx, regMfrDeviceConfig)
}

func (d *Dev) writeDeviceConfig(ctx context.Context, cfg byte) error {
	return d.p.WriteBytes(ctx, d.addr, regMfrDeviceConfig, []byte{cfg})
}

// writeDirection sets EIN_accum to count only samples of sign dir and returns
// the resulting register value. The write is skipped if the mode is already
// set.
func (d *Dev) writeDirection(ctx context.Context, cfg byte, dir Direction) (byte, error) {
	mode := einAccumPos
	if dir == DirectionNegative {
		mode = einAccumNeg
	}
	next := cfg&^einAccumMask | mode<<einAccumShift
	if next == cfg {
		return cfg, nil
	}
	if err := d.writeDeviceConfig(ctx, next); err != nil {
		return cfg, err
	}
	return next, nil
}

func (d *Dev) clearAccumulator(ctx context.Context) error {
	return d.p.WriteBytes(ctx, d.addr, regClearEin, nil)
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
