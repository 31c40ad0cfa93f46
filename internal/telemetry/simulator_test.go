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
	"testing"

	"coolsup/internal/control"
)

func TestSimulatorReadProducesFreshFrames(t *testing.T) {
	s := NewSimulator()
	frame, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.IsStale {
		t.Fatalf("a successful read must not be marked stale")
	}
	if frame.CaptureNanos == 0 {
		t.Fatalf("expected a non-zero capture timestamp")
	}
}

func TestSimulatorWriteInfluencesFutureReads(t *testing.T) {
	s := NewSimulator()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if _, err := s.Read(ctx); err != nil {
			t.Fatalf("unexpected error on read %d: %v", i, err)
		}
	}
	hot := s.frame.T2

	cmd := control.CommandFrame{Commands: map[control.Group]control.GroupCommand{
		control.SWPumps: {FrequencyHz: 60, Count: 2},
	}}
	if err := s.Write(ctx, cmd); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	for i := 0; i < 50; i++ {
		if _, err := s.Read(ctx); err != nil {
			t.Fatalf("unexpected error on read %d: %v", i, err)
		}
	}
	cooled := s.frame.T2

	if cooled >= hot {
		t.Fatalf("commanding sw_pumps to max frequency should drive T2 down over time: before=%v after=%v", hot, cooled)
	}
}

func TestSimulatorReadRespectsCanceledContext(t *testing.T) {
	s := NewSimulator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Read(ctx); err != ErrTimeout {
		t.Fatalf("expected ErrTimeout on a canceled context, got %v", err)
	}
}

func TestSimulatorCloseIsNoop(t *testing.T) {
	s := NewSimulator()
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error closing simulator: %v", err)
	}
}
