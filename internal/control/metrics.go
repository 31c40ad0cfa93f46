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

// Metrics tracks in-process scheduler counters with plain atomics, in the
// style of the teacher's internal/ratelimiter/core/metrics.go. These are
// the numbers the Prometheus adapter in internal/eventsink reads; control
// itself stays free of any Prometheus import.
package control

import "sync/atomic"

// Metrics is a set of lock-free counters updated once per tick.
type Metrics struct {
	ticksTotal      atomic.Int64
	deadlineMisses  atomic.Int64
	staleFrames     atomic.Int64
	safetyOverrides atomic.Int64
	countChanges    atomic.Int64
	degradedTicks   atomic.Int64
	predictionsUsed atomic.Int64
}

// NewMetrics returns a zeroed Metrics.
func NewMetrics() *Metrics { return &Metrics{} }

// RecordTick updates every counter from the outcome of one tick.
func (m *Metrics) RecordTick(missed, stale, safetyOverride, degraded, usedPrediction bool, countChanges int) {
	m.ticksTotal.Add(1)
	if missed {
		m.deadlineMisses.Add(1)
	}
	if stale {
		m.staleFrames.Add(1)
	}
	if safetyOverride {
		m.safetyOverrides.Add(1)
	}
	if degraded {
		m.degradedTicks.Add(1)
	}
	if usedPrediction {
		m.predictionsUsed.Add(1)
	}
	if countChanges > 0 {
		m.countChanges.Add(int64(countChanges))
	}
}

// Snapshot is a point-in-time copy of every counter, safe to hand to a
// metrics exporter without it racing further updates.
type Snapshot struct {
	TicksTotal      int64
	DeadlineMisses  int64
	StaleFrames     int64
	SafetyOverrides int64
	CountChanges    int64
	DegradedTicks   int64
	PredictionsUsed int64
}

// Snapshot reads every counter into a Snapshot.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TicksTotal:      m.ticksTotal.Load(),
		DeadlineMisses:  m.deadlineMisses.Load(),
		StaleFrames:     m.staleFrames.Load(),
		SafetyOverrides: m.safetyOverrides.Load(),
		CountChanges:    m.countChanges.Load(),
		DegradedTicks:   m.degradedTicks.Load(),
		PredictionsUsed: m.predictionsUsed.Load(),
	}
}
