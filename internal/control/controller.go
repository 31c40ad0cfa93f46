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

	"coolsup/internal/config"
)

// Controller implements the V3 predictive-feedback control law of spec.md
// §4.5. It runs only for groups the safety layer did not force. The
// controller is target-agnostic: target temperatures live in
// Configuration, not here, matching §4.5's closing note.
type Controller struct {
	cfg       config.Configuration
	envelopes map[Group]GroupEnvelope
}

// NewController builds a Controller bound to a fixed configuration
// snapshot, shared read-only for the process lifetime (§5).
func NewController(cfg config.Configuration) *Controller {
	return &Controller{cfg: cfg, envelopes: envelopesFromConfig(cfg)}
}

// channelFor returns the temperature this group is controlled against.
func channelFor(g Group, frame TelemetryFrame) float64 {
	switch g {
	case SWPumps:
		return frame.T5
	case FWPumps:
		return frame.T4
	case ERFans:
		return frame.T6
	default:
		return math.NaN()
	}
}

// predictedChannelAt5Min returns the +5min prediction for this group's
// controlled channel.
func predictedChannelAt5Min(g Group, pred Prediction) float64 {
	switch g {
	case SWPumps:
		return pred.T5At5Min
	case FWPumps:
		return pred.T4At5Min
	case ERFans:
		return pred.T6At5Min
	default:
		return math.NaN()
	}
}

// Decide computes group's decision per the seven-step law of §4.5. It
// never violates the frequency envelope or slew limit (§4.5 contract);
// out-of-envelope prev is clamped and reported via warn. usedPrediction
// reports whether the predictive term was live (confidence gate passed).
func (c *Controller) Decide(g Group, frame TelemetryFrame, pred Prediction, state GroupState) (decision GroupDecision, usedPrediction, warn bool) {
	env := c.envelopes[g]
	targetTemp := c.cfg.TargetTempC[g.String()]

	prev := state.PrevFrequencyHz
	if prev < env.FrequencyMin || prev > env.FrequencyMax {
		warn = true
		prev = clamp(prev, env.FrequencyMin, env.FrequencyMax)
	}

	// Step 1: current error.
	eCurrent := channelFor(g, frame) - targetTemp

	// Step 2: predicted error, gated on confidence.
	usedPrediction = pred.Confidence >= c.cfg.PredictionConfidenceThreshold
	ePredicted := eCurrent
	if usedPrediction {
		ePredicted = predictedChannelAt5Min(g, pred) - targetTemp
	}

	// Step 3: weight selection (V3 contract).
	var wc, wp float64
	switch {
	case math.Abs(ePredicted) > c.cfg.Weights.HighPredictedErrorAbs:
		wc, wp = 0.2, 0.8
	case math.Abs(eCurrent) > c.cfg.Weights.HighCurrentErrorAbs:
		wc, wp = 0.6, 0.4
	default:
		wc, wp = 0.4, 0.6
	}

	// Step 4: combined error.
	e := wc*eCurrent + wp*ePredicted

	// Step 5: slew-limited adjustment. RegionGainMultiplier is the
	// reserved GPS/region hook (spec.md §9 open question); it defaults to
	// 1.0 and is a no-op unless a future configuration sets it.
	kp := c.cfg.KP * c.cfg.RegionGainMultiplier
	delta := clamp(kp*e, -c.cfg.SlewMaxHzPerTick, c.cfg.SlewMaxHzPerTick)

	// Step 6: new target within envelope.
	target := clamp(prev+delta, env.FrequencyMin, env.FrequencyMax)

	// Step 7: mode classification.
	mode := ModeStable
	switch {
	case math.Abs(e) < 0.3:
		mode = ModeStable
	case e > 0:
		mode = ModeCooling
	default:
		mode = ModeEnergySaving
	}

	return GroupDecision{
		TargetFrequencyHz: target,
		TargetCount:       state.PrevCount,
		Reason:            "predictive-feedback control law",
		AppliedRules:      nil,
		Mode:              mode,
	}, usedPrediction, warn
}
