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

import "testing"

func TestControllerNeverExceedsSlewLimit(t *testing.T) {
	cfg := testConfig()
	c := NewController(cfg)
	frame := TelemetryFrame{T5: 60} // way above target: should push hard toward max
	state := GroupState{PrevFrequencyHz: 40, PrevCount: 1}
	decision, _, _ := c.Decide(SWPumps, frame, Prediction{}, state)
	delta := decision.TargetFrequencyHz - state.PrevFrequencyHz
	if delta > cfg.SlewMaxHzPerTick+1e-9 {
		t.Fatalf("decision must not exceed the slew limit: delta=%v max=%v", delta, cfg.SlewMaxHzPerTick)
	}
}

func TestControllerStaysWithinEnvelope(t *testing.T) {
	cfg := testConfig()
	c := NewController(cfg)
	frame := TelemetryFrame{T5: 80}
	state := GroupState{PrevFrequencyHz: 59.5, PrevCount: 1}
	decision, _, _ := c.Decide(SWPumps, frame, Prediction{}, state)
	if decision.TargetFrequencyHz > 60 {
		t.Fatalf("decision must not exceed the frequency envelope max, got %v", decision.TargetFrequencyHz)
	}
}

func TestControllerIgnoresLowConfidencePrediction(t *testing.T) {
	cfg := testConfig()
	c := NewController(cfg)
	frame := TelemetryFrame{T5: 36} // exactly at target: zero current error
	pred := Prediction{T5At5Min: 70, Confidence: 0.1} // below threshold, should be ignored
	state := GroupState{PrevFrequencyHz: 50, PrevCount: 1}
	decision, usedPrediction, _ := c.Decide(SWPumps, frame, pred, state)
	if usedPrediction {
		t.Fatalf("prediction below confidence threshold must not be used")
	}
	if decision.TargetFrequencyHz != 50 {
		t.Fatalf("with zero current error and an ignored prediction, target should stay at previous value, got %v", decision.TargetFrequencyHz)
	}
}

func TestControllerUsesHighConfidencePrediction(t *testing.T) {
	cfg := testConfig()
	c := NewController(cfg)
	frame := TelemetryFrame{T5: 36} // zero current error
	pred := Prediction{T5At5Min: 50, Confidence: 0.9}
	state := GroupState{PrevFrequencyHz: 50, PrevCount: 1}
	decision, usedPrediction, _ := c.Decide(SWPumps, frame, pred, state)
	if !usedPrediction {
		t.Fatalf("prediction above confidence threshold must be used")
	}
	if decision.TargetFrequencyHz <= 50 {
		t.Fatalf("a predicted rise should push the target up even with zero current error, got %v", decision.TargetFrequencyHz)
	}
}

func TestControllerWarnsOnOutOfEnvelopePrevious(t *testing.T) {
	cfg := testConfig()
	c := NewController(cfg)
	frame := TelemetryFrame{T5: 36}
	state := GroupState{PrevFrequencyHz: 65, PrevCount: 1} // invalid: above max
	_, _, warn := c.Decide(SWPumps, frame, Prediction{}, state)
	if !warn {
		t.Fatalf("an out-of-envelope previous frequency should be reported via warn")
	}
}
