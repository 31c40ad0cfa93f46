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
	"os"
	"sync/atomic"
	"time"
)

// MinWindowFillRatio is the §4.3 sufficiency gate: predictions are only
// produced once the window is at least 75% full (>= 68 of 90 samples).
const MinWindowFillRatio = 0.75

// Predictor is the stateless transform from a buffered window to a
// Prediction. Implementations must be safe for concurrent use, though the
// scheduler only ever calls Predict from the tick goroutine.
type Predictor interface {
	Predict(w *Window) Prediction
}

// NullPredictor always reports zero confidence. It is substituted whenever
// no artefact is configured or artefact load fails (spec.md §4.3, §9's
// explicit-state recasting of exception-for-fallback: LoadOutcome is
// either Loaded(artefact) or Null, never a thrown error the controller has
// to catch).
type NullPredictor struct{}

// Predict implements Predictor.
func (NullPredictor) Predict(w *Window) Prediction {
	return Prediction{}
}

// Artefact is the opaque byte blob a trained model arrives as. The core
// never parses it; ArtefactPredictor's extrapolation below does not depend
// on the blob's contents beyond "it loaded", matching spec.md's contract
// that the core validates only that the loader accepted the bytes.
type Artefact struct {
	Bytes []byte
}

// ArtefactPredictor produces short-horizon extrapolations for T4, T5, T6
// from the window's linear trend (slope) plus its current value, scaled to
// the three contractual horizons. This is a deliberately simple, fast
// (well under the 10ms inference bound of §4.3) stand-in for whatever
// model the opaque artefact actually encodes — the contract this repo
// owns is the Predictor interface and the confidence gate, not the
// model's internals.
type ArtefactPredictor struct {
	artefact atomic.Pointer[Artefact]
}

// NewArtefactPredictor constructs a predictor bound to the given loaded
// artefact.
func NewArtefactPredictor(a Artefact) *ArtefactPredictor {
	p := &ArtefactPredictor{}
	p.artefact.Store(&a)
	return p
}

// Swap atomically replaces the loaded artefact, invalidating any internal
// caches (there are none to invalidate here, but the atomic pointer swap
// is the mechanism spec.md §5 calls for: "a single atomic pointer update
// observable at the next tick").
func (p *ArtefactPredictor) Swap(a Artefact) {
	p.artefact.Store(&a)
}

// Predict implements Predictor.
func (p *ArtefactPredictor) Predict(w *Window) Prediction {
	start := time.Now()
	if w.FillRatio() < MinWindowFillRatio {
		return Prediction{InferenceLatencyNanos: time.Since(start).Nanoseconds()}
	}

	t4 := w.Stats(func(f TelemetryFrame) float64 { return f.T4 })
	t5 := w.Stats(func(f TelemetryFrame) float64 { return f.T5 })
	t6 := w.Stats(func(f TelemetryFrame) float64 { return f.T6 })

	// Slope is per-sample; convert to per-minute using the window's
	// nominal 20s stride (3 samples/minute) so horizons in minutes map
	// directly onto a sample count.
	const samplesPerMinute = 3.0
	extrapolate := func(s ChannelStats, minutes float64) float64 {
		return s.Current + s.Slope*samplesPerMinute*minutes
	}

	pred := Prediction{
		T4At5Min:  extrapolate(t4, 5),
		T4At10Min: extrapolate(t4, 10),
		T4At15Min: extrapolate(t4, 15),
		T5At5Min:  extrapolate(t5, 5),
		T5At10Min: extrapolate(t5, 10),
		T5At15Min: extrapolate(t5, 15),
		T6At5Min:  extrapolate(t6, 5),
		T6At10Min: extrapolate(t6, 10),
		T6At15Min: extrapolate(t6, 15),
		Confidence: confidenceFromFit(t4, t5, t6),
	}
	pred.InferenceLatencyNanos = time.Since(start).Nanoseconds()
	return pred
}

// confidenceFromFit derives an opaque-to-the-controller confidence scalar
// from each channel's population standard deviation about its window mean
// (floored at 0.05; lower stddev => higher confidence), averaged over the
// channels. The spread is measured about the mean, not about the trend
// line, so a steadily trending channel scores lower. This heuristic lives
// entirely inside the predictor; spec.md is explicit that confidence
// semantics are the model's private concern (§9 open question) and the
// controller must only compare it to a threshold.
func confidenceFromFit(stats ...ChannelStats) float64 {
	var total float64
	for _, s := range stats {
		spread := s.StdDev
		if spread < 0.05 {
			spread = 0.05
		}
		total += 1.0 / (1.0 + spread)
	}
	c := total / float64(len(stats))
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

// LoadOutcome is the explicit result of attempting to load a predictor
// artefact at start-up, replacing the exception-for-fallback pattern the
// source material uses (spec.md §9).
type LoadOutcome struct {
	Predictor Predictor
	Loaded    bool
	Err       error
}

// LoadArtefactPredictor reads the artefact at path and wraps it in an
// ArtefactPredictor. An empty path means "no predictor configured" and is
// not an error; spec.md §6 says an absent path simply means a null
// predictor. A read failure is reported but is not fatal to start-up: the
// caller substitutes NullPredictor and continues (§4.3, §7
// PredictorLoadFailed).
func LoadArtefactPredictor(path string) LoadOutcome {
	if path == "" {
		return LoadOutcome{Predictor: NullPredictor{}, Loaded: false}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return LoadOutcome{Predictor: NullPredictor{}, Loaded: false, Err: err}
	}
	return LoadOutcome{Predictor: NewArtefactPredictor(Artefact{Bytes: raw}), Loaded: true}
}
