// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor drives the energy session at a fixed cadence and fans the
// drained windows out to sinks.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/powermon/ina233"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
)

// Session is the part of *ina233.Dev the monitor drives.
type Session interface {
	Drain(ctx context.Context) (ina233.Window, error)
	Integrate(ctx context.Context, interval time.Duration) (<-chan ina233.Window, error)
	TotalJoules() float64
}

// Record is a drained window as handed to sinks.
type Record struct {
	Session      string    `json:"session"`
	Time         time.Time `json:"time"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	Direction    string    `json:"direction"`
	PowerCodeSum uint32    `json:"power_code_sum"`
	Samples      uint32    `json:"samples"`
	DurationSec  float64   `json:"duration_s"`
	AveragePower float64   `json:"average_power_w"`
	DeltaJoules  float64   `json:"delta_j"`
	TotalJoules  float64   `json:"total_j"`

	Window ina233.Window `json:"-"`
}

// NewRecord converts a window drained at t.
func NewRecord(session string, t time.Time, w ina233.Window, total float64) Record {
	r := Record{
		Session:      session,
		Time:         t,
		Status:       w.Status.String(),
		Direction:    w.Direction.String(),
		PowerCodeSum: w.Accumulator.Power,
		Samples:      w.Accumulator.Samples,
		DurationSec:  w.Duration.Seconds(),
		DeltaJoules:  float64(w.Delta()) / float64(physic.Joule),
		TotalJoules:  total,
		Window:       w,
	}
	if !w.Valid() {
		r.Reason = w.Reason.String()
	} else {
		r.AveragePower = float64(w.AveragePower) / float64(physic.Watt)
		if w.Direction == ina233.DirectionNegative {
			r.AveragePower = -r.AveragePower
		}
	}
	return r
}

// Sink consumes records.
type Sink interface {
	Handle(ctx context.Context, r Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Record) error

// Handle implements Sink.
func (f SinkFunc) Handle(ctx context.Context, r Record) error {
	return f(ctx, r)
}

// Monitor polls a Session.
type Monitor struct {
	s        Session
	id       string
	interval time.Duration
	sinks    []Sink
	now      func() time.Time
}

// New returns a Monitor draining s every interval. id tags every record.
func New(s Session, id string, interval time.Duration, sinks ...Sink) (*Monitor, error) {
	if interval <= 0 {
		return nil, errors.New("monitor: invalid interval")
	}
	return &Monitor{s: s, id: id, interval: interval, sinks: sinks, now: time.Now}, nil
}

// Poll drains the session once and delivers the record to every sink.
func (m *Monitor) Poll(ctx context.Context) (Record, error) {
	w, err := m.s.Drain(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("drain: %w", err)
	}
	return m.deliver(ctx, w), nil
}

// deliver logs w and hands it to every sink. A failing sink is logged and
// does not prevent delivery to the others.
func (m *Monitor) deliver(ctx context.Context, w ina233.Window) Record {
	r := NewRecord(m.id, m.now(), w, m.s.TotalJoules())
	ev := log.Debug()
	if !w.Valid() {
		ev = log.Info().Str("reason", r.Reason)
	}
	ev.Str("direction", r.Direction).
		Uint32("samples", r.Samples).
		Dur("duration", w.Duration).
		Float64("average_power_w", r.AveragePower).
		Float64("total_j", r.TotalJoules).
		Msg("window " + r.Status)
	for _, s := range m.sinks {
		if err := s.Handle(ctx, r); err != nil {
			log.Error().Err(err).Str("sink", fmt.Sprintf("%T", s)).Msg("sink failed")
		}
	}
	return r
}

// Run consumes the session's Integrate stream until ctx is done or the
// session is halted. Drain failures are logged and integration continues;
// the session is unchanged by a failed drain.
func (m *Monitor) Run(ctx context.Context) error {
	ch, err := m.s.Integrate(ctx, m.interval)
	if err != nil {
		return err
	}
	log.Info().Str("session", m.id).Dur("interval", m.interval).Msg("monitor started")
	for w := range ch {
		if w.Err != nil {
			var be *ina233.BusError
			if errors.As(w.Err, &be) && be.Timeout() {
				log.Warn().Err(w.Err).Msg("device did not answer")
			} else {
				log.Error().Err(w.Err).Msg("drain failed")
			}
			continue
		}
		m.deliver(ctx, w)
	}
	log.Info().Str("session", m.id).Float64("total_j", m.s.TotalJoules()).Msg("monitor stopped")
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("monitor: session halted")
}
