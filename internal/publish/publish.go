// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package publish emits drained windows on NATS.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GermanBionicSystems/powermon/internal/monitor"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Conn is the part of *nats.Conn used by Publisher.
type Conn interface {
	Publish(subj string, data []byte) error
}

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// Subject returns the subject windows of session are published on.
func Subject(prefix, session string) string {
	return fmt.Sprintf("%s.%s.window", prefix, session)
}

// Publisher publishes records as JSON.
type Publisher struct {
	nc      Conn
	subject string
}

// New returns a Publisher for session on nc.
func New(nc Conn, prefix, session string) *Publisher {
	return &Publisher{nc: nc, subject: Subject(prefix, session)}
}

// Connect dials the NATS server at url.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

// Handle implements monitor.Sink.
func (p *Publisher) Handle(ctx context.Context, r monitor.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

var _ monitor.Sink = &Publisher{}
var _ Conn = &nats.Conn{}
