// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package storage appends drained windows to a PostgreSQL table.
//
// The log is write only. Nothing is read back into a session, so totals do
// not survive a restart.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/powermon/internal/monitor"
	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS energy_window (
	id BIGSERIAL PRIMARY KEY,
	session UUID NOT NULL,
	drained_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	reason TEXT,
	direction TEXT NOT NULL,
	power_code_sum BIGINT NOT NULL,
	samples BIGINT NOT NULL,
	duration_s DOUBLE PRECISION NOT NULL,
	average_power_w DOUBLE PRECISION NOT NULL,
	delta_j DOUBLE PRECISION NOT NULL,
	total_j DOUBLE PRECISION NOT NULL
)`

const insertWindow = `INSERT INTO energy_window
	(session, drained_at, status, reason, direction, power_code_sum, samples,
	 duration_s, average_power_w, delta_j, total_j)
	VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PostgresStore implements monitor.Sink for PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	ex execer
}

// Opts holds the connection pool settings.
type Opts struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// NewPostgresStore opens and pings the database at dsn and creates the
// window table if needed.
func NewPostgresStore(ctx context.Context, dsn string, opts *Opts) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts != nil {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{db: db, ex: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the window table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.ex.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create energy_window: %w", err)
	}
	return nil
}

// Handle implements monitor.Sink.
func (s *PostgresStore) Handle(ctx context.Context, r monitor.Record) error {
	_, err := s.ex.ExecContext(ctx, insertWindow,
		r.Session, r.Time, r.Status, r.Reason, r.Direction,
		int64(r.PowerCodeSum), int64(r.Samples),
		r.DurationSec, r.AveragePower, r.DeltaJoules, r.TotalJoules)
	if err != nil {
		return fmt.Errorf("insert window: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ monitor.Sink = &PostgresStore{}
