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

package telemetry

import (
	"context"
	"math"
	"sync"
	"time"

	"coolsup/internal/control"
)

// Simulator is an in-process, dependency-free stand-in for a live PLC
// link: it generates plausible drifting telemetry and lets commands
// written to it nudge future readings toward their target, the same way
// the teacher's LoggingRedisEvaler stands in for a real Redis client so
// the "redis" adapter selector works without external infrastructure.
// Not for production use.
type Simulator struct {
	mu sync.Mutex

	frame    control.TelemetryFrame
	commands map[control.Group]control.GroupCommand

	startedAt time.Time
	ticks     int64
}

// NewSimulator returns a Simulator seeded at a plausible steady state.
func NewSimulator() *Simulator {
	return &Simulator{
		frame: control.TelemetryFrame{
			T1: 32, T2: 30, T3: 30, T4: 34, T5: 36, T6: 45, T7: 40,
			PX1:           2.5,
			EngineLoadPct: 55,
			CaptureNanos:  time.Now().UnixNano(),
		},
		commands: map[control.Group]control.GroupCommand{
			control.SWPumps: {FrequencyHz: 50, Count: 1},
			control.FWPumps: {FrequencyHz: 50, Count: 1},
			control.ERFans:  {FrequencyHz: 50, Count: 2},
		},
		startedAt: time.Now(),
	}
}

// Read implements Adapter. Each call advances the simulated plant by one
// step: temperatures drift toward a setpoint determined by the most
// recently commanded frequency of the group cooling that channel, plus a
// small deterministic oscillation so the rolling window has a visible
// trend for the predictor to fit. Engine load follows its own sinusoid and
// does not feed into the setpoint; PX1 keeps its seeded value.
func (s *Simulator) Read(ctx context.Context) (control.TelemetryFrame, error) {
	select {
	case <-ctx.Done():
		return control.TelemetryFrame{}, ErrTimeout
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks++
	t := float64(s.ticks)

	swHz := s.commands[control.SWPumps].FrequencyHz
	fwHz := s.commands[control.FWPumps].FrequencyHz
	erHz := s.commands[control.ERFans].FrequencyHz

	// Higher commanded frequency cools faster; a mild sinusoid models
	// sea-state/engine-load noise on top of the controlled drift.
	drift := func(cur, coolingHz float64) float64 {
		target := 60 - (coolingHz-40)*0.6
		return cur + (target-cur)*0.05 + 0.3*math.Sin(t/7)
	}

	s.frame.T1 = drift(s.frame.T1, swHz)
	s.frame.T2 = drift(s.frame.T2, swHz)
	s.frame.T3 = drift(s.frame.T3, swHz)
	s.frame.T4 = drift(s.frame.T4, fwHz)
	s.frame.T5 = drift(s.frame.T5, fwHz)
	s.frame.T6 = drift(s.frame.T6, erHz)
	s.frame.T7 = drift(s.frame.T7, erHz)
	s.frame.EngineLoadPct = 55 + 10*math.Sin(t/20)
	s.frame.CaptureNanos = time.Now().UnixNano()
	s.frame.IsStale = false

	return s.frame, nil
}

// Write implements Adapter: records the commanded frequencies so the next
// Read reflects their cooling effect.
func (s *Simulator) Write(ctx context.Context, cmd control.CommandFrame) error {
	select {
	case <-ctx.Done():
		return ErrTimeout
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for g, gc := range cmd.Commands {
		s.commands[g] = gc
	}
	return nil
}

// Close implements Adapter; the simulator holds no external resources.
func (s *Simulator) Close() error { return nil }
