// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package api serves the session state over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/GermanBionicSystems/powermon/ina233"
	"github.com/GermanBionicSystems/powermon/internal/plot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// Source is the part of *ina233.Dev exposed over HTTP.
type Source interface {
	Snapshot() ina233.Snapshot
	ResetTotal()
	Sense(ctx context.Context) (ina233.PowerMonitor, error)
}

// Server is the status API server.
type Server struct {
	session  string
	src      Source
	history  *plot.History
	plotOpts plot.Opts
	router   chi.Router
	server   *http.Server
}

// NewServer returns a Server for the session src. history may be nil, in
// which case the chart endpoint answers 404.
func NewServer(session string, src Source, history *plot.History, plotOpts *plot.Opts) *Server {
	s := &Server{
		session:  session,
		src:      src,
		history:  history,
		plotOpts: plot.DefaultOpts,
		router:   chi.NewRouter(),
	}
	if plotOpts != nil {
		s.plotOpts = *plotOpts
	}
	s.setupRoutes()
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(10 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", s.HandleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/energy", s.HandleGetEnergy)
		r.Post("/energy/reset", s.HandleResetEnergy)
		r.Get("/telemetry", s.HandleGetTelemetry)
		r.Get("/plot.png", s.HandleGetPlot)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("starting status API")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
