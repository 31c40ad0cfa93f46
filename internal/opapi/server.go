// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package opapi implements the read-only operator-facing HTTP API of
// spec.md §6: telemetry/decision/state/window/event introspection plus a
// single mode-change endpoint.
package opapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"coolsup/internal/control"
	"coolsup/internal/eventsink"
)

// Server serves the operator API over the control store and event sink.
// It never mutates control state directly, except via RequestMode, which
// only records the operator's request for the scheduler to observe at the
// next tick boundary (§6: "mode changes take effect at the next tick").
type Server struct {
	store *control.Store
	sink  *eventsink.Sink
}

// NewServer builds a Server bound to a store and event sink.
func NewServer(store *control.Store, sink *eventsink.Sink) *Server {
	return &Server{store: store, sink: sink}
}

// RegisterRoutes wires the §6 endpoints onto mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/telemetry", s.handleTelemetry)
	mux.HandleFunc("/decision", s.handleDecision)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/window", s.handleWindow)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/mode", s.handleMode)
}

// ListenAndServe starts the HTTP server on addr with conservative timeouts,
// in the teacher's server-construction style.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	fmt.Printf("operator API listening on %s\n", addr)
	return httpServer.ListenAndServe()
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.LatestFrame())
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.LatestDecision())
}

// stateView is the JSON shape for /state: per-group persistent state plus
// scheduler health, assembled here rather than exposing control.Store's
// internal map types directly.
type stateView struct {
	Groups            map[string]control.GroupState `json:"groups"`
	Degraded          bool                           `json:"degraded"`
	Mode              string                         `json:"mode"`
	TickIndex         int64                          `json:"tick_index"`
	ConsecutiveStale  int                            `json:"consecutive_stale"`
	ConsecutiveMisses int                            `json:"consecutive_misses"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	states := s.store.GroupStates()
	named := make(map[string]control.GroupState, len(states))
	for g, st := range states {
		named[g.String()] = st
	}
	writeJSON(w, stateView{
		Groups:            named,
		Degraded:          s.store.Degraded(),
		Mode:              s.store.CurrentMode().String(),
		TickIndex:         s.store.TickIndex(),
		ConsecutiveStale:  s.store.ConsecutiveStale(),
		ConsecutiveMisses: s.store.ConsecutiveMisses(),
	})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	window := s.store.Window()
	writeJSON(w, struct {
		FillRatio float64                 `json:"fill_ratio"`
		Len       int                     `json:"len"`
		Samples   []control.TelemetryFrame `json:"samples"`
	}{
		FillRatio: window.FillRatio(),
		Len:       window.Len(),
		Samples:   window.Snapshot(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	n := 100
	if q := r.URL.Query().Get("n"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			n = parsed
		}
	}
	writeJSON(w, struct {
		Events  []eventsink.Event `json:"events"`
		Dropped int64             `json:"dropped"`
	}{
		Events:  s.sink.Recent(n),
		Dropped: s.sink.Dropped(),
	})
}

// handleMode accepts POST {"mode": "auto"|"manual-fixed-60Hz"|"safe-hold"}
// and records the request for the scheduler to pick up at the next tick.
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "mode changes require POST", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	mode, ok := control.ParseOperatorMode(body.Mode)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown mode %q", body.Mode), http.StatusBadRequest)
		return
	}
	s.store.RequestMode(mode)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
