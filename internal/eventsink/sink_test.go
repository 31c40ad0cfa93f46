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

import "testing"

func TestSinkRecentReturnsNewestLast(t *testing.T) {
	s := New(3, nil, nil)
	s.Emit("a", nil)
	s.Emit("b", nil)
	s.Emit("c", nil)

	recent := s.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	if recent[0].Kind != "a" || recent[2].Kind != "c" {
		t.Fatalf("expected events in emission order, got %v %v %v", recent[0].Kind, recent[1].Kind, recent[2].Kind)
	}
}

func TestSinkDropsOldestAtCapacity(t *testing.T) {
	s := New(2, nil, nil)
	s.Emit("a", nil)
	s.Emit("b", nil)
	s.Emit("c", nil)

	recent := s.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("expected ring capped at 2, got %d", len(recent))
	}
	if recent[0].Kind != "b" || recent[1].Kind != "c" {
		t.Fatalf("expected the oldest event dropped, got %v %v", recent[0].Kind, recent[1].Kind)
	}
	if s.Dropped() != 1 {
		t.Fatalf("expected dropped counter 1, got %d", s.Dropped())
	}
}

func TestSinkDefaultsCapacityWhenNonPositive(t *testing.T) {
	s := New(0, nil, nil)
	if s.capacity != 1024 {
		t.Fatalf("expected default capacity 1024, got %d", s.capacity)
	}
}

func TestSinkEmitExtractsTickFromFields(t *testing.T) {
	s := New(4, nil, nil)
	s.Emit("tick_committed", map[string]any{"tick": int64(7)})
	got := s.Recent(1)[0]
	if got.Tick != 7 {
		t.Fatalf("expected tick 7 extracted from fields, got %d", got.Tick)
	}
}

func TestSinkMarshalRecentJSONProducesValidArray(t *testing.T) {
	s := New(4, nil, nil)
	s.Emit("a", nil)
	data, err := s.MarshalRecentJSON(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 || data[0] != '[' {
		t.Fatalf("expected a JSON array, got %s", data)
	}
}

type errBackend struct{ err error }

func (b errBackend) Export(Event) error { return b.err }

func TestSinkExportFailureDoesNotPanic(t *testing.T) {
	s := New(4, nil, errBackend{err: assertErr{}})
	s.Emit("a", nil) // must not panic even though the backend always errors
	if len(s.Recent(10)) != 1 {
		t.Fatalf("expected the event still recorded despite export failure")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "export failed" }
