// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the ina233d daemon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/GermanBionicSystems/powermon/ina233"
	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Poll     PollConfig     `yaml:"poll"`
	Log      LogConfig      `yaml:"log"`
	NATS     NATSConfig     `yaml:"nats"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Plot     PlotConfig     `yaml:"plot"`
	Gauge    GaugeConfig    `yaml:"gauge"`
}

// DeviceConfig describes the monitored INA233.
type DeviceConfig struct {
	// Bus is the I²C bus name as understood by i2creg.Open. Empty selects
	// the first bus.
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
	// ShuntMilliOhm is the shunt resistance.
	ShuntMilliOhm float64 `yaml:"shunt_milliohm"`
	// MaxCurrentAmpere is the largest expected current.
	MaxCurrentAmpere float64       `yaml:"max_current_ampere"`
	Timeout          time.Duration `yaml:"timeout"`
	PEC              bool          `yaml:"pec"`
}

// PollConfig sets the drain cadence. The interval must not exceed the
// accumulator overflow bound of the device's power-on ADC configuration.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// NATSConfig represents NATS configuration. An empty URL disables
// publishing.
type NATSConfig struct {
	URL               string        `yaml:"url"`
	SubjectPrefix     string        `yaml:"subject_prefix"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// HTTPConfig represents the status API configuration. An empty Addr disables
// the API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig represents database configuration. An empty DSN disables
// the window log.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// PlotConfig sizes the window history chart.
type PlotConfig struct {
	History int `yaml:"history"`
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
}

// GaugeConfig controls the terminal power gauge.
type GaugeConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Width          int     `yaml:"width"`
	FullScaleWatts float64 `yaml:"full_scale_watts"`
}

// Default returns the configuration used for missing fields.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Address:          0x40,
			ShuntMilliOhm:    2,
			MaxCurrentAmpere: 10,
			Timeout:          50 * time.Millisecond,
		},
		Poll: PollConfig{Interval: 250 * time.Millisecond},
		Log:  LogConfig{Level: "info"},
		NATS: NATSConfig{
			SubjectPrefix:     "energy",
			MaxReconnects:     -1,
			ReconnectInterval: 2 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			ConnMaxLifetime: time.Hour,
		},
		Plot:  PlotConfig{History: 300, Width: 640, Height: 240},
		Gauge: GaugeConfig{Width: 40, FullScaleWatts: 100},
	}
}

// Load reads the YAML file at filename over the defaults and applies
// environment overrides. An empty filename only uses defaults and
// environment.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if bus := os.Getenv("INA233_I2C_BUS"); bus != "" {
		c.Device.Bus = bus
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}
}

// Validate checks that the configuration can start a session.
func (c *Config) Validate() error {
	var errs []error
	if c.Device.Address == 0 || c.Device.Address > 0x7f {
		errs = append(errs, fmt.Errorf("device.address 0x%x is not a 7 bit address", c.Device.Address))
	}
	if c.Device.ShuntMilliOhm <= 0 {
		errs = append(errs, errors.New("device.shunt_milliohm must be > 0"))
	}
	if c.Device.MaxCurrentAmpere <= 0 {
		errs = append(errs, errors.New("device.max_current_ampere must be > 0"))
	}
	if c.Device.Timeout <= 0 {
		errs = append(errs, errors.New("device.timeout must be > 0"))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("poll.interval must be > 0"))
	} else if limit := ina233.DefaultADCConfig.MaxDrainInterval(); c.Poll.Interval > limit {
		errs = append(errs, fmt.Errorf("poll.interval %s exceeds %s, the energy accumulator would overflow", c.Poll.Interval, limit))
	}
	if c.Plot.History <= 0 {
		errs = append(errs, errors.New("plot.history must be > 0"))
	}
	if c.Gauge.Enabled && (c.Gauge.Width <= 0 || c.Gauge.FullScaleWatts <= 0) {
		errs = append(errs, errors.New("gauge.width and gauge.full_scale_watts must be > 0"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
