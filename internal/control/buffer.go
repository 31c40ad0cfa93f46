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
	"math"
	"sync"
)

// Window is a fixed-capacity ring of the most recent telemetry samples,
// stride-gated so that however often the scheduler ticks, the retained
// history always spans roughly Capacity*Stride of wall time (spec.md §4.2:
// "a stable 30-minute horizon regardless of tick rate drift"). It is never
// allowed to grow past Capacity; append discards the oldest entry.
type Window struct {
	mu       sync.RWMutex
	capacity int
	stride   int64 // nanoseconds
	samples  []TelemetryFrame
}

// NewWindow creates an empty window with the given capacity and minimum
// stride between retained samples, both expressed per spec.md §4.2 (90
// samples, 20s stride by default).
func NewWindow(capacity int, stride int64) *Window {
	if capacity <= 0 {
		capacity = 90
	}
	return &Window{
		capacity: capacity,
		stride:   stride,
		samples:  make([]TelemetryFrame, 0, capacity),
	}
}

// TryAppend appends frame if the stride condition holds (time delta to the
// last retained sample is >= stride, allowing for scheduler jitter handled
// by the caller). It returns whether the frame was retained. The first
// sample is always retained.
func (w *Window) TryAppend(frame TelemetryFrame) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n := len(w.samples); n > 0 {
		last := w.samples[n-1]
		if frame.CaptureNanos-last.CaptureNanos < w.stride {
			return false
		}
	}
	if len(w.samples) == w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.capacity-1]
	}
	w.samples = append(w.samples, frame)
	return true
}

// Len reports the number of retained samples (<= capacity).
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.samples)
}

// Capacity reports the configured maximum sample count.
func (w *Window) Capacity() int {
	return w.capacity
}

// FillRatio reports len/capacity, used by the predictor's sufficiency gate
// (spec.md §4.3: "at least 75% full").
func (w *Window) FillRatio() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.capacity == 0 {
		return 0
	}
	return float64(len(w.samples)) / float64(w.capacity)
}

// ChannelStats summarizes one channel's current value, mean, population
// standard deviation, and least-squares slope (per retained-sample index,
// not per second — callers that need per-second slope divide by stride).
type ChannelStats struct {
	Current float64
	Mean    float64
	StdDev  float64
	Slope   float64
}

// Stats computes ChannelStats for the given channel accessor over all
// retained samples. O(n) with n <= Capacity.
func (w *Window) Stats(channel func(TelemetryFrame) float64) ChannelStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n := len(w.samples)
	if n == 0 {
		return ChannelStats{}
	}
	values := make([]float64, n)
	var sum float64
	for i, s := range w.samples {
		v := channel(s)
		values[i] = v
		sum += v
	}
	mean := sum / float64(n)

	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	stddev := math.Sqrt(sqDiff / float64(n))

	slope := linearRegressionSlope(values)

	return ChannelStats{
		Current: values[n-1],
		Mean:    mean,
		StdDev:  stddev,
		Slope:   slope,
	}
}

// linearRegressionSlope fits y = a + b*x over x = 0..n-1 and returns b.
func linearRegressionSlope(y []float64) float64 {
	n := float64(len(y))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Snapshot returns a copy of the retained samples, oldest first. Intended
// for read-only consumers (event sink summaries, operator API) that must
// not observe a partially-mutated window mid-append.
func (w *Window) Snapshot() []TelemetryFrame {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]TelemetryFrame, len(w.samples))
	copy(out, w.samples)
	return out
}
