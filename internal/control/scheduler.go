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

package control

import (
	"context"
	"log"
	"time"

	"coolsup/internal/config"
)

// Telemetry is the minimal capability the scheduler needs from the
// telemetry layer: read the latest frame under a deadline, and push a
// command frame to the equipment. Defined here (not in the telemetry
// package) so control stays free of any import on telemetry's transport
// details, mirroring the teacher's pattern of defining narrow consumer-side
// interfaces next to the code that calls them.
type Telemetry interface {
	Read(ctx context.Context) (TelemetryFrame, error)
	Write(ctx context.Context, cmd CommandFrame) error
}

// EventEmitter is the narrow capability the scheduler uses to publish
// tick-level events; internal/eventsink.Sink satisfies it.
type EventEmitter interface {
	Emit(kind string, fields map[string]any)
}

// noopEmitter discards events. Used when no sink is wired, so the
// scheduler never has to nil-check its emitter.
type noopEmitter struct{}

func (noopEmitter) Emit(string, map[string]any) {}

// Scheduler runs the fixed 2-second tick loop of spec.md §4.7: read
// telemetry under a deadline, run the three-layer decision pipeline, write
// the resulting command, and commit the outcome to the Store. It follows
// the teacher's ticker+select+stopChan idiom (worker.go's run loop) rather
// than a time.Sleep loop, so shutdown is cooperative and immediate.
type Scheduler struct {
	cfg        config.Configuration
	telemetry  Telemetry
	predictor  Predictor
	controller *Controller
	counts     *CountMachine
	store      *Store
	emitter    EventEmitter
	logger     *log.Logger
	metrics    *Metrics

	stopCh chan struct{}
	doneCh chan struct{}
}

// Metrics exposes the scheduler's counters for an exporter to read.
func (s *Scheduler) Metrics() *Metrics { return s.metrics }

// NewScheduler wires the four decision-pipeline components and the store
// into a runnable scheduler. emitter may be nil, in which case events are
// discarded.
func NewScheduler(cfg config.Configuration, telemetry Telemetry, predictor Predictor, store *Store, emitter EventEmitter, logger *log.Logger) *Scheduler {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		cfg:        cfg,
		telemetry:  telemetry,
		predictor:  predictor,
		controller: NewController(cfg),
		counts:     NewCountMachine(cfg),
		store:      store,
		emitter:    emitter,
		logger:     logger,
		metrics:    NewMetrics(),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Run blocks, executing one tick every cfg.TickPeriod, until Stop is
// called. On return from Stop, Run performs one final safe-hold tick
// (§4.7: "on shutdown, the scheduler performs one final tick that holds
// every group at its current frequency and count, then stops") before
// closing doneCh.
func (s *Scheduler) Run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()

	var tickIndex int64
	var consecutiveStale int
	var consecutiveMiss int

	for {
		select {
		case <-s.stopCh:
			s.safeHoldTick(tickIndex)
			return
		case <-ticker.C:
			tickIndex++
			consecutiveStale, consecutiveMiss = s.runTick(tickIndex, consecutiveStale, consecutiveMiss)
		}
	}
}

// Stop requests the scheduler to halt and blocks until the final
// safe-hold tick has been committed.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// runTick executes one complete tick and returns the updated
// consecutive-stale and consecutive-miss counters.
func (s *Scheduler) runTick(tickIndex int64, consecutiveStale, consecutiveMiss int) (int, int) {
	deadline := s.cfg.TransportDeadline
	if deadline <= 0 {
		deadline = 200 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	start := time.Now()
	frame, err := s.telemetry.Read(ctx)
	missed := time.Since(start) > deadline

	if err != nil {
		missed = true
		s.emitter.Emit("telemetry_read_failed", map[string]any{"tick": tickIndex, "error": err.Error()})
		frame = s.store.LatestFrame()
		frame.IsStale = true
	}

	if frame.IsStale {
		consecutiveStale++
	} else {
		consecutiveStale = 0
	}
	if missed {
		consecutiveMiss++
		s.emitter.Emit("deadline_miss", map[string]any{"tick": tickIndex, "consecutive": consecutiveMiss})
	} else {
		consecutiveMiss = 0
	}

	window := s.store.Window()
	window.TryAppend(frame)

	degraded := consecutiveMiss >= s.cfg.ConsecutiveMissesForDegraded

	var pred Prediction
	if !degraded && window.FillRatio() >= MinWindowFillRatio {
		pred = s.predictor.Predict(window)
	}

	states := s.store.GroupStates()
	safetyRes := EvaluateSafety(frame, states, s.cfg, consecutiveStale)
	for _, ra := range safetyRes.RuleActivations {
		s.emitter.Emit("rule_activated", map[string]any{"tick": tickIndex, "rule": ra.RuleID, "group": ra.Group.String()})
	}

	mode := s.store.CurrentMode()

	decision := Decision{
		Groups:         make(map[Group]GroupDecision, len(Groups)),
		SafetyOverride: len(safetyRes.RuleActivations) > 0,
		TickIndex:      tickIndex,
		CaptureNanos:   frame.CaptureNanos,
	}

	nextStates := make(map[Group]GroupState, len(Groups))

	for _, g := range Groups {
		st := states[g]
		var gd GroupDecision
		var usedPrediction bool

		switch {
		case mode == ModeSafeHold:
			gd = GroupDecision{TargetFrequencyHz: st.PrevFrequencyHz, TargetCount: st.PrevCount, Reason: "operator safe-hold", Mode: ModeForced}
		case mode == ModeManualFixed60Hz:
			gd = GroupDecision{TargetFrequencyHz: 60, TargetCount: st.PrevCount, Reason: "operator manual fixed 60Hz", Mode: ModeForced}
		case safetyRes.Forced[g]:
			gd = safetyRes.Decisions[g]
		case degraded:
			gd = GroupDecision{TargetFrequencyHz: st.PrevFrequencyHz, TargetCount: st.PrevCount, Reason: "degraded mode: controller frozen at previous target", Mode: ModeForced}
		default:
			var warn bool
			gd, usedPrediction, warn = s.controller.Decide(g, frame, pred, st)
			if warn {
				s.emitter.Emit("envelope_warning", map[string]any{"tick": tickIndex, "group": g.String()})
			}
		}

		if usedPrediction {
			decision.UsedPrediction = true
		}

		countRes := s.counts.Step(g, gd.TargetFrequencyHz, st.PrevCount, st, s.cfg.TickPeriod.Seconds())
		gd.TargetFrequencyHz = countRes.FrequencyHz
		gd.TargetCount = countRes.Count

		nextStates[g] = GroupState{
			PrevFrequencyHz:   countRes.FrequencyHz,
			PrevCount:         countRes.Count,
			TimeAtMaxSeconds:  countRes.State.TimeAtMaxSeconds,
			TimeAtMinSeconds:  countRes.State.TimeAtMinSeconds,
			CooldownRemaining: countRes.State.CooldownRemaining,
		}

		if countRes.CountChanged {
			s.emitter.Emit("count_changed", map[string]any{"tick": tickIndex, "group": g.String(), "count": countRes.Count})
		}

		decision.Groups[g] = gd
	}

	writeCtx, writeCancel := context.WithTimeout(context.Background(), deadline)
	if err := s.telemetry.Write(writeCtx, decision.Command()); err != nil {
		s.emitter.Emit("command_write_failed", map[string]any{"tick": tickIndex, "error": err.Error()})
	}
	writeCancel()

	s.store.CommitTick(frame, decision, nextStates, degraded, consecutiveStale, consecutiveMiss)
	s.emitter.Emit("tick_committed", map[string]any{"tick": tickIndex, "degraded": degraded, "safety_override": decision.SafetyOverride})

	var countChanges int
	for _, g := range Groups {
		if nextStates[g].PrevCount != states[g].PrevCount {
			countChanges++
		}
	}
	s.metrics.RecordTick(missed, frame.IsStale, decision.SafetyOverride, degraded, decision.UsedPrediction, countChanges)

	if degraded {
		s.logger.Printf("scheduler degraded: tick=%d consecutive_misses=%d", tickIndex, consecutiveMiss)
	}

	return consecutiveStale, consecutiveMiss
}

// safeHoldTick commits a shutdown tick that forces every group to hold its
// current frequency and count, per §4.7's shutdown contract.
func (s *Scheduler) safeHoldTick(tickIndex int64) {
	states := s.store.GroupStates()
	frame := s.store.LatestFrame()

	decision := Decision{
		Groups:    make(map[Group]GroupDecision, len(Groups)),
		TickIndex: tickIndex + 1,
	}
	for _, g := range Groups {
		st := states[g]
		decision.Groups[g] = GroupDecision{
			TargetFrequencyHz: st.PrevFrequencyHz,
			TargetCount:       st.PrevCount,
			Reason:            "shutdown safe-hold",
			Mode:              ModeForced,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TransportDeadline)
	defer cancel()
	if err := s.telemetry.Write(ctx, decision.Command()); err != nil {
		s.logger.Printf("shutdown safe-hold write failed: %v", err)
	}

	s.store.CommitTick(frame, decision, states, false, 0, 0)
	s.emitter.Emit("shutdown_safe_hold", map[string]any{"tick": decision.TickIndex})
}
