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

// Package control implements the closed-loop cooling-control kernel: the
// sequence buffer, predictor contract, safety layer, predictive-feedback
// controller, equipment count state machine, control-state store and the
// scheduler that ties them together every two seconds.
package control

import (
	"fmt"
	"math"
)

// Group identifies one of the three VFD groups sharing a target frequency
// and a running unit count.
type Group int

const (
	SWPumps Group = iota
	FWPumps
	ERFans
	groupCount
)

func (g Group) String() string {
	switch g {
	case SWPumps:
		return "sw_pumps"
	case FWPumps:
		return "fw_pumps"
	case ERFans:
		return "er_fans"
	default:
		return "unknown"
	}
}

// Groups lists all groups in a stable order, used whenever the scheduler
// or store needs to iterate deterministically.
var Groups = [groupCount]Group{SWPumps, FWPumps, ERFans}

// TelemetryFrame is one immutable sample of plant telemetry. Timestamps
// across frames produced by the same adapter are strictly increasing
// (CaptureNanos is a monotonic clock reading, not wall time).
type TelemetryFrame struct {
	T1, T2, T3, T4, T5, T6, T7 float64 // degrees C
	PX1                        float64 // bar
	EngineLoadPct              float64 // 0..100
	CaptureNanos               int64   // monotonic capture timestamp
	IsStale                    bool    // true when synthesized from the last good frame
}

// Temp returns the named channel's value by 1-based channel number
// (T1..T7), or NaN for any other number. The safety rules and the
// predictor read the named fields directly rather than through Temp.
func (f TelemetryFrame) Temp(channel int) float64 {
	switch channel {
	case 1:
		return f.T1
	case 2:
		return f.T2
	case 3:
		return f.T3
	case 4:
		return f.T4
	case 5:
		return f.T5
	case 6:
		return f.T6
	case 7:
		return f.T7
	default:
		return math.NaN()
	}
}

// Validate checks the §3 invariants: no NaN, and every channel within its
// physical envelope. It does not check the strictly-increasing-timestamp
// invariant, which is a cross-frame property enforced by the adapter.
func (f TelemetryFrame) Validate() error {
	temps := [...]float64{f.T1, f.T2, f.T3, f.T4, f.T5, f.T6, f.T7}
	for i, t := range temps {
		if math.IsNaN(t) {
			return fmt.Errorf("telemetry: T%d is NaN", i+1)
		}
		if t < -50 || t > 120 {
			return fmt.Errorf("telemetry: T%d=%.2f out of range [-50,120]", i+1, t)
		}
	}
	if math.IsNaN(f.PX1) {
		return fmt.Errorf("telemetry: PX1 is NaN")
	}
	if f.PX1 < 0 || f.PX1 > 10 {
		return fmt.Errorf("telemetry: PX1=%.2f out of range [0,10]", f.PX1)
	}
	if math.IsNaN(f.EngineLoadPct) || f.EngineLoadPct < 0 || f.EngineLoadPct > 100 {
		return fmt.Errorf("telemetry: engine_load=%.2f out of range [0,100]", f.EngineLoadPct)
	}
	return nil
}

// GroupEnvelope bounds the legal frequency and count range for one group.
// Immutable configuration, set once at start-up.
type GroupEnvelope struct {
	FrequencyMin, FrequencyMax float64 // Hz
	CountMin, CountMax         int
	RatedKWPerUnit             float64
}

// DefaultEnvelopes returns the per-group envelopes from spec.md §3.
func DefaultEnvelopes() map[Group]GroupEnvelope {
	return map[Group]GroupEnvelope{
		SWPumps: {FrequencyMin: 40, FrequencyMax: 60, CountMin: 1, CountMax: 2},
		FWPumps: {FrequencyMin: 40, FrequencyMax: 60, CountMin: 1, CountMax: 2},
		ERFans:  {FrequencyMin: 40, FrequencyMax: 60, CountMin: 2, CountMax: 4},
	}
}

// GroupCommand is the per-group portion of a CommandFrame.
type GroupCommand struct {
	FrequencyHz float64
	Count       int
	Reason      string
}

// CommandFrame is the immutable per-tick output written back to the PLC.
type CommandFrame struct {
	Commands       map[Group]GroupCommand
	SafetyOverride bool
}

// Validate checks the command against the given envelopes (§3 invariant:
// frequency and count within envelope, no NaN field).
func (c CommandFrame) Validate(envelopes map[Group]GroupEnvelope) error {
	for _, g := range Groups {
		gc, ok := c.Commands[g]
		if !ok {
			return fmt.Errorf("command: missing group %s", g)
		}
		if math.IsNaN(gc.FrequencyHz) {
			return fmt.Errorf("command: %s frequency is NaN", g)
		}
		env := envelopes[g]
		if gc.FrequencyHz < env.FrequencyMin || gc.FrequencyHz > env.FrequencyMax {
			return fmt.Errorf("command: %s frequency=%.2f out of envelope [%.2f,%.2f]", g, gc.FrequencyHz, env.FrequencyMin, env.FrequencyMax)
		}
		if gc.Count < env.CountMin || gc.Count > env.CountMax {
			return fmt.Errorf("command: %s count=%d out of envelope [%d,%d]", g, gc.Count, env.CountMin, env.CountMax)
		}
	}
	return nil
}

// GroupState is the per-group state carried across ticks (§3). time_at_max
// and time_at_min are mutually exclusive: at most one is non-zero at any
// time, enforced by CountMachine.Step.
type GroupState struct {
	PrevFrequencyHz   float64
	PrevCount         int
	TimeAtMaxSeconds  float64
	TimeAtMinSeconds  float64
	CooldownRemaining float64
}

// Prediction carries the predictor's forward-looking estimate for the
// three contractually-required channels (T4, T5, T6) at three horizons.
// Confidence is an opaque scalar in [0,1]; the controller only compares
// it against a threshold, never interprets its derivation.
type Prediction struct {
	T4At5Min, T4At10Min, T4At15Min float64
	T5At5Min, T5At10Min, T5At15Min float64
	T6At5Min, T6At10Min, T6At15Min float64
	Confidence                     float64
	InferenceLatencyNanos          int64
}

// ControlMode classifies the combined-error regime a group's controller
// decision fell into this tick (§4.5 step 7).
type ControlMode int

const (
	ModeStable ControlMode = iota
	ModeCooling
	ModeEnergySaving
	ModeForced // safety_override or degraded/safe-hold froze the target
)

func (m ControlMode) String() string {
	switch m {
	case ModeStable:
		return "stable"
	case ModeCooling:
		return "cooling"
	case ModeEnergySaving:
		return "energy_saving"
	case ModeForced:
		return "forced"
	default:
		return "unknown"
	}
}

// GroupDecision is one group's contribution to the tick's Decision.
type GroupDecision struct {
	TargetFrequencyHz float64
	TargetCount       int
	Reason            string
	AppliedRules      []string
	Mode              ControlMode
}

// Decision is the immutable per-tick decision record (§3).
type Decision struct {
	Groups         map[Group]GroupDecision
	SafetyOverride bool
	UsedPrediction bool
	TickIndex      int64
	CaptureNanos   int64
}

// Command renders the decision into the CommandFrame the adapter writes
// back to the PLC.
func (d Decision) Command() CommandFrame {
	cf := CommandFrame{Commands: make(map[Group]GroupCommand, len(Groups)), SafetyOverride: d.SafetyOverride}
	for _, g := range Groups {
		gd := d.Groups[g]
		cf.Commands[g] = GroupCommand{FrequencyHz: gd.TargetFrequencyHz, Count: gd.TargetCount, Reason: gd.Reason}
	}
	return cf
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
