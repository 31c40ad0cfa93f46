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
	"sync"
	"testing"
)

func newTestStore() *Store {
	w := NewWindow(90, 1)
	initial := map[Group]GroupState{
		SWPumps: {PrevFrequencyHz: 40, PrevCount: 1},
		FWPumps: {PrevFrequencyHz: 40, PrevCount: 1},
		ERFans:  {PrevFrequencyHz: 40, PrevCount: 2},
	}
	return NewStore(w, initial)
}

func TestStoreCommitTickPublishesConsistentSnapshot(t *testing.T) {
	s := newTestStore()
	frame := TelemetryFrame{T1: 30, CaptureNanos: 100}
	decision := Decision{Groups: map[Group]GroupDecision{SWPumps: {TargetFrequencyHz: 45}}, TickIndex: 1}
	states := map[Group]GroupState{SWPumps: {PrevFrequencyHz: 45, PrevCount: 1}}

	s.CommitTick(frame, decision, states, false, 0, 0)

	if got := s.LatestFrame(); got.T1 != 30 {
		t.Fatalf("expected committed frame, got %+v", got)
	}
	if got := s.LatestDecision().TickIndex; got != 1 {
		t.Fatalf("expected tick index 1, got %d", got)
	}
	if got := s.GroupStates()[SWPumps].PrevFrequencyHz; got != 45 {
		t.Fatalf("expected updated sw_pumps state, got %v", got)
	}
	if s.TickIndex() != 1 {
		t.Fatalf("expected store tick index 1, got %d", s.TickIndex())
	}
}

func TestStoreModeRoundTrip(t *testing.T) {
	s := newTestStore()
	if s.CurrentMode() != ModeAuto {
		t.Fatalf("expected default mode auto")
	}
	s.RequestMode(ModeSafeHold)
	if s.CurrentMode() != ModeSafeHold {
		t.Fatalf("expected requested mode to be observable")
	}
}

func TestParseOperatorModeRejectsUnknown(t *testing.T) {
	if _, ok := ParseOperatorMode("turbo"); ok {
		t.Fatalf("unknown mode string must not parse")
	}
	if m, ok := ParseOperatorMode("safe-hold"); !ok || m != ModeSafeHold {
		t.Fatalf("expected safe-hold to parse correctly")
	}
}

func TestStoreConcurrentReadersDoNotRace(t *testing.T) {
	s := newTestStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.LatestFrame()
			_ = s.GroupStates()
			_ = s.Degraded()
		}()
	}
	for i := 0; i < 5; i++ {
		s.CommitTick(TelemetryFrame{CaptureNanos: int64(i)}, Decision{TickIndex: int64(i)}, map[Group]GroupState{}, false, 0, 0)
	}
	wg.Wait()
}
