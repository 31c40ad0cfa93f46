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

// Package control: this file implements the control-state store (C8):
// the single-writer, multi-reader holder of the latest telemetry, the
// latest decision, and per-group persistent state. The teacher's
// internal/ratelimiter/core/store.go uses a sync.Map because its key
// space is open (arbitrary API keys); here the key space is exactly three
// known groups, so a plain RWMutex-guarded struct is the better-fitting
// adaptation of the same "single writer, many readers, atomic snapshot at
// tick boundaries" idea.
package control

import (
	"sync"
	"time"
)

// OperatorMode is the operator-requested mode from spec.md §6. The
// scheduler observes a mode change at the next tick boundary.
type OperatorMode int

const (
	ModeAuto OperatorMode = iota
	ModeManualFixed60Hz
	ModeSafeHold
)

func (m OperatorMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeManualFixed60Hz:
		return "manual-fixed-60hz"
	case ModeSafeHold:
		return "safe-hold"
	default:
		return "unknown"
	}
}

// ParseOperatorMode accepts the three spec.md §6 mode names.
func ParseOperatorMode(s string) (OperatorMode, bool) {
	switch s {
	case "auto":
		return ModeAuto, true
	case "manual-fixed-60Hz", "manual-fixed-60hz":
		return ModeManualFixed60Hz, true
	case "safe-hold":
		return ModeSafeHold, true
	default:
		return 0, false
	}
}

// Store holds the latest telemetry frame, latest decision, per-group
// state, and the rolling window, written only by the scheduler at the end
// of each tick and read by the event sink and the operator API (§4.8).
type Store struct {
	mu sync.RWMutex

	window *Window

	latestFrame    TelemetryFrame
	latestDecision Decision
	groupStates    map[Group]GroupState

	degraded         bool
	consecutiveStale int
	consecutiveMiss  int
	tickIndex        int64
	lastTickAt       time.Time

	requestedMode OperatorMode
}

// NewStore creates a store seeded with the given window and initial
// per-group state (typically each group's minimum frequency and count).
func NewStore(window *Window, initial map[Group]GroupState) *Store {
	states := make(map[Group]GroupState, len(Groups))
	for _, g := range Groups {
		states[g] = initial[g]
	}
	return &Store{window: window, groupStates: states, requestedMode: ModeAuto}
}

// Window exposes the store's window by reference; callers must use its
// own synchronization (Window is independently thread-safe).
func (s *Store) Window() *Window { return s.window }

// GroupStates returns a copy of the current per-group state, safe for a
// reader to retain.
func (s *Store) GroupStates() map[Group]GroupState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Group]GroupState, len(s.groupStates))
	for g, st := range s.groupStates {
		out[g] = st
	}
	return out
}

// LatestFrame returns the most recently committed telemetry frame.
func (s *Store) LatestFrame() TelemetryFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestFrame
}

// LatestDecision returns the most recently committed decision.
func (s *Store) LatestDecision() Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestDecision
}

// Degraded reports whether the scheduler is currently in degraded mode
// (spec.md §4.7, §7: three consecutive deadline misses).
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// RequestMode records an operator mode-change request (§6), observed by
// the scheduler at the next tick boundary.
func (s *Store) RequestMode(mode OperatorMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestedMode = mode
}

// CurrentMode returns the last-observed operator mode.
func (s *Store) CurrentMode() OperatorMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requestedMode
}

// CommitTick atomically publishes the outcome of one completed tick: the
// frame, decision, per-group state, degraded flag, and bookkeeping
// counters. Readers calling LatestFrame/LatestDecision/GroupStates after
// CommitTick returns see a fully-consistent post-tick snapshot, never a
// partial one (§5: "readers see the state at the end of some completed
// tick, never a partial mid-tick state").
func (s *Store) CommitTick(frame TelemetryFrame, decision Decision, states map[Group]GroupState, degraded bool, consecutiveStale, consecutiveMiss int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestFrame = frame
	s.latestDecision = decision
	for g, st := range states {
		s.groupStates[g] = st
	}
	s.degraded = degraded
	s.consecutiveStale = consecutiveStale
	s.consecutiveMiss = consecutiveMiss
	s.tickIndex = decision.TickIndex
	s.lastTickAt = time.Now()
}

// ConsecutiveStale reports the current run-length of stale frames.
func (s *Store) ConsecutiveStale() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consecutiveStale
}

// ConsecutiveMisses reports the current run-length of deadline misses.
func (s *Store) ConsecutiveMisses() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consecutiveMiss
}

// TickIndex reports the index of the last committed tick.
func (s *Store) TickIndex() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tickIndex
}
