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
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFileAppenderRoundTripsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	a, err := OpenFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.append(Event{Kind: "tick_committed", Tick: 1})
	a.append(Event{Kind: "count_changed", Tick: 2})
	if err := a.Flush(); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("unexpected error reopening file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []Event
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("unexpected unmarshal error: %v", err)
		}
		lines = append(lines, e)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL records, got %d", len(lines))
	}
	if lines[0].Kind != "tick_committed" || lines[1].Kind != "count_changed" {
		t.Fatalf("unexpected record contents: %+v", lines)
	}
}

func TestFileAppenderAppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	a1, err := OpenFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a1.append(Event{Kind: "a"})
	if err := a1.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a2, err := OpenFile(path)
	if err != nil {
		t.Fatalf("unexpected error reopening: %v", err)
	}
	a2.append(Event{Kind: "b"})
	if err := a2.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var count int
	for _, b := range data {
		if b == '\n' {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected append mode to preserve both records across reopen, got %d newlines", count)
	}
}
