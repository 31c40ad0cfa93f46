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

package eventsink

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coolsup/internal/control"
)

var (
	eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coolsup_events_total",
		Help: "Total scheduler events emitted, by kind",
	}, []string{"kind"})

	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coolsup_ticks_total",
		Help: "Total scheduler ticks completed",
	})
	deadlineMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coolsup_deadline_misses_total",
		Help: "Total ticks that exceeded the per-operation deadline",
	})
	staleFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coolsup_stale_frames_total",
		Help: "Total ticks that ran on a stale (non-fresh) telemetry frame",
	})
	safetyOverridesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coolsup_safety_overrides_total",
		Help: "Total ticks where at least one group was safety-forced",
	})
	countChangesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coolsup_count_changes_total",
		Help: "Total equipment count transitions across all groups",
	})
	degradedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coolsup_degraded",
		Help: "1 if the scheduler is currently in degraded mode, 0 otherwise",
	})
	groupFrequencyGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "coolsup_group_frequency_hz",
		Help: "Most recently committed target frequency per group",
	}, []string{"group"})
	groupCountGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "coolsup_group_count",
		Help: "Most recently committed running unit count per group",
	}, []string{"group"})
	eventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coolsup_events_dropped_total",
		Help: "Total events overwritten in the in-memory ring by newer events",
	})
)

func init() {
	prometheus.MustRegister(eventsTotal, ticksTotal, deadlineMissesTotal, staleFramesTotal,
		safetyOverridesTotal, countChangesTotal, degradedGauge, groupFrequencyGauge,
		groupCountGauge, eventsDroppedTotal)
}

// observeEvent increments the per-kind event counter. Called from
// Sink.Emit for every event regardless of which backends are configured,
// so Prometheus visibility does not depend on the file or Redis sinks
// being enabled.
func observeEvent(kind string) {
	eventsTotal.WithLabelValues(kind).Inc()
}

// ObserveMetricsSnapshot copies a control.Metrics snapshot and the latest
// decision's per-group targets into the Prometheus gauges/counters. The
// scheduler or its caller should invoke this once per tick.
func ObserveMetricsSnapshot(snap control.Snapshot, decision control.Decision) {
	ticksTotal.Add(float64(snap.TicksTotal) - ticksCursor.swap(snap.TicksTotal))
	deadlineMissesTotal.Add(float64(snap.DeadlineMisses) - missesCursor.swap(snap.DeadlineMisses))
	staleFramesTotal.Add(float64(snap.StaleFrames) - staleCursor.swap(snap.StaleFrames))
	safetyOverridesTotal.Add(float64(snap.SafetyOverrides) - overridesCursor.swap(snap.SafetyOverrides))
	countChangesTotal.Add(float64(snap.CountChanges) - countChangesCursor.swap(snap.CountChanges))

	for g, gd := range decision.Groups {
		groupFrequencyGauge.WithLabelValues(g.String()).Set(gd.TargetFrequencyHz)
		groupCountGauge.WithLabelValues(g.String()).Set(float64(gd.TargetCount))
	}
}

// SetDegraded sets the degraded gauge explicitly; the supervisor's metrics
// loop calls this once per tick period with control.Store.Degraded().
func SetDegraded(degraded bool) {
	if degraded {
		degradedGauge.Set(1)
	} else {
		degradedGauge.Set(0)
	}
}

// SetEventsDropped mirrors Sink.Dropped into a gauge-like monotonic
// counter; called periodically by the caller, not on every event, to
// avoid a lock round-trip per emit.
func SetEventsDropped(total int64) {
	eventsDroppedTotal.Add(float64(total) - eventsDroppedCursor.swap(total))
}

// monotonicCursor tracks the last-observed value of a monotonically
// increasing counter so repeated snapshots can be translated into
// Prometheus counter .Add() deltas without double-counting. A value below
// the last one observed is treated as a restarted source: swap reports 0 as
// the previous value, so the delta never goes negative.
type monotonicCursor struct {
	last int64
}

func (c *monotonicCursor) swap(v int64) float64 {
	prev := c.last
	c.last = v
	if v < prev {
		return 0
	}
	return float64(prev)
}

var (
	ticksCursor         monotonicCursor
	missesCursor        monotonicCursor
	staleCursor         monotonicCursor
	overridesCursor     monotonicCursor
	countChangesCursor  monotonicCursor
	eventsDroppedCursor monotonicCursor
)

// ServeMetrics starts a dedicated HTTP server exposing /metrics on addr,
// in the teacher's churn-package style (a tiny standalone server rather
// than requiring the caller to already run one). Safe to call at most
// once per process.
func ServeMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
