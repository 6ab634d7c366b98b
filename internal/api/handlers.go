// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/GermanBionicSystems/powermon/ina233"
	"github.com/GermanBionicSystems/powermon/internal/plot"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
)

type windowResponse struct {
	Status       string  `json:"status"`
	Reason       string  `json:"reason,omitempty"`
	Direction    string  `json:"direction"`
	Samples      uint32  `json:"samples"`
	DurationSec  float64 `json:"duration_s"`
	AveragePower float64 `json:"average_power_w"`
	DeltaJoules  float64 `json:"delta_j"`
}

type energyResponse struct {
	Session     string         `json:"session"`
	Direction   string         `json:"direction"`
	TotalJoules float64        `json:"total_j"`
	Total       string         `json:"total"`
	Last        windowResponse `json:"last"`
	Calibration struct {
		CurrentLSB float64 `json:"current_lsb_a"`
		PowerLSB   float64 `json:"power_lsb_w"`
		Word       uint16  `json:"word"`
	} `json:"calibration"`
}

// HandleHealth handles the liveness probe.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetEnergy returns the running total and the last window.
func (s *Server) HandleGetEnergy(w http.ResponseWriter, r *http.Request) {
	snap := s.src.Snapshot()
	resp := energyResponse{
		Session:     s.session,
		Direction:   snap.Direction.String(),
		TotalJoules: snap.TotalJoules,
		Total:       snap.Total.String(),
		Last: windowResponse{
			Status:      snap.Last.Status.String(),
			Direction:   snap.Last.Direction.String(),
			Samples:     snap.Last.Accumulator.Samples,
			DurationSec: snap.Last.Duration.Seconds(),
			DeltaJoules: float64(snap.Last.Delta()) / float64(physic.Joule),
		},
	}
	if snap.Last.Valid() {
		resp.Last.AveragePower = float64(snap.Last.AveragePower) / float64(physic.Watt)
		if snap.Last.Direction == ina233.DirectionNegative {
			resp.Last.AveragePower = -resp.Last.AveragePower
		}
	} else {
		resp.Last.Reason = snap.Last.Reason.String()
	}
	resp.Calibration.CurrentLSB = snap.Calibration.CurrentLSB
	resp.Calibration.PowerLSB = snap.Calibration.PowerLSB
	resp.Calibration.Word = snap.Calibration.Word
	s.respondJSON(w, http.StatusOK, resp)
}

// HandleResetEnergy zeroes the running total.
func (s *Server) HandleResetEnergy(w http.ResponseWriter, r *http.Request) {
	s.src.ResetTotal()
	log.Info().Str("session", s.session).Msg("energy total reset")
	s.respondJSON(w, http.StatusOK, map[string]float64{"total_j": 0})
}

// HandleGetTelemetry reads the instantaneous registers.
func (s *Server) HandleGetTelemetry(w http.ResponseWriter, r *http.Request) {
	pm, err := s.src.Sense(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to read telemetry")
		s.respondError(w, http.StatusBadGateway, "failed to read device")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]float64{
		"bus_voltage_v":   float64(pm.Voltage) / float64(physic.Volt),
		"shunt_voltage_v": float64(pm.Shunt) / float64(physic.Volt),
		"current_a":       float64(pm.Current) / float64(physic.Ampere),
		"power_w":         float64(pm.Power) / float64(physic.Watt),
	})
}

// HandleGetPlot renders the window history.
func (s *Server) HandleGetPlot(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotFound, "history disabled")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := plot.WritePNG(w, s.history.Points(), &s.plotOpts); err != nil {
		log.Error().Err(err).Msg("failed to render plot")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
