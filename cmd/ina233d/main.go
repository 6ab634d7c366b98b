// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ina233d integrates the bidirectional energy measured by an INA233 and
// reports it over NATS, PostgreSQL, HTTP and the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/powermon/ina233"
	"github.com/GermanBionicSystems/powermon/internal/api"
	"github.com/GermanBionicSystems/powermon/internal/config"
	"github.com/GermanBionicSystems/powermon/internal/monitor"
	"github.com/GermanBionicSystems/powermon/internal/plot"
	"github.com/GermanBionicSystems/powermon/internal/publish"
	"github.com/GermanBionicSystems/powermon/internal/storage"
	"github.com/GermanBionicSystems/powermon/powerbar"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	identify := flag.Bool("identify", false, "print the device identity and status, then exit")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", *configPath).Msg("failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := mainImpl(ctx, cfg, *identify); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("ina233d failed")
		os.Exit(1)
	}
}

func mainImpl(ctx context.Context, cfg *config.Config, identify bool) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(cfg.Device.Bus)
	if err != nil {
		return fmt.Errorf("open I²C bus %q: %w", cfg.Device.Bus, err)
	}
	defer bus.Close()

	port := ina233.NewI2CPort(bus, &ina233.PortOpts{Timeout: cfg.Device.Timeout, PEC: cfg.Device.PEC})
	dev, err := ina233.New(ctx, port, &ina233.Opts{
		Address:    cfg.Device.Address,
		Shunt:      physic.ElectricResistance(cfg.Device.ShuntMilliOhm * float64(physic.MilliOhm)),
		MaxCurrent: physic.ElectricCurrent(cfg.Device.MaxCurrentAmpere * float64(physic.Ampere)),
	})
	if err != nil {
		return err
	}
	defer dev.Halt()
	if identify {
		return printIdentity(ctx, dev)
	}

	session := publish.NewSessionID()
	cal := dev.Calibration()
	log.Info().
		Str("session", session).
		Str("device", dev.String()).
		Uint16("calibration", cal.Word).
		Float64("power_lsb_w", cal.PowerLSB).
		Str("direction", dev.Direction().String()).
		Msg("session started")

	history, err := plot.NewHistory(cfg.Plot.History)
	if err != nil {
		return err
	}
	sinks := []monitor.Sink{
		monitor.SinkFunc(func(ctx context.Context, r monitor.Record) error {
			history.Add(r.Time, r.Window)
			return nil
		}),
	}

	if cfg.NATS.URL != "" {
		nc, err := publish.Connect(cfg.NATS.URL,
			nats.Name("ina233d"),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects))
		if err != nil {
			return err
		}
		defer nc.Drain()
		sinks = append(sinks, publish.New(nc, cfg.NATS.SubjectPrefix, session))
		log.Info().Str("subject", publish.Subject(cfg.NATS.SubjectPrefix, session)).Msg("publishing windows")
	}

	if cfg.Database.DSN != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.Database.DSN, &storage.Opts{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	if cfg.Gauge.Enabled {
		gauge, err := powerbar.New(&powerbar.Opts{
			X:         cfg.Gauge.Width,
			FullScale: physic.Power(cfg.Gauge.FullScaleWatts * float64(physic.Watt)),
		})
		if err != nil {
			return err
		}
		defer gauge.Halt()
		sinks = append(sinks, monitor.SinkFunc(func(ctx context.Context, r monitor.Record) error {
			return gauge.ShowWindow(r.Window)
		}))
	}

	if cfg.HTTP.Addr != "" {
		srv := api.NewServer(session, dev, history, &plot.Opts{
			Width:    cfg.Plot.Width,
			Height:   cfg.Plot.Height,
			FontSize: plot.DefaultOpts.FontSize,
		})
		go func() {
			if err := srv.ListenAndServe(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("status API failed")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	m, err := monitor.New(dev, session, cfg.Poll.Interval, sinks...)
	if err != nil {
		return err
	}
	return m.Run(ctx)
}

func printIdentity(ctx context.Context, dev *ina233.Dev) error {
	id, err := dev.ReadIdentity(ctx)
	if err != nil {
		return err
	}
	adc, err := dev.ReadADCConfig(ctx)
	if err != nil {
		return err
	}
	st, err := dev.ReadStatus(ctx)
	if err != nil {
		return err
	}
	pm, err := dev.Sense(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s on %s\n", id.ID, id.Model, dev)
	fmt.Printf("ADC: %d samples, sample period %s\n", adc.Averaging.Count(), adc.SamplePeriod())
	fmt.Printf("Status: %+v faulted=%t\n", st, st.Faulted())
	fmt.Println(pm)
	return nil
}
