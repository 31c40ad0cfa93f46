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
	"sync"
	"time"
)

// fileAppender is a buffered JSONL append-only sink for events, the same
// shape as the teacher's SBatchFileSink: open in append mode, and flush
// on an append that comes more than 100ms after the previous flush. Events
// written after the last flush stay buffered until the next such append,
// Flush, or Close.
type fileAppender struct {
	mu        sync.Mutex
	f         *os.File
	w         *bufio.Writer
	lastFlush time.Time
}

// OpenFile opens (or creates) the JSONL file at path in append mode.
func OpenFile(path string) (*fileAppender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileAppender{f: f, w: bufio.NewWriterSize(f, 1<<16), lastFlush: time.Now()}, nil
}

func (a *fileAppender) append(e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	enc := json.NewEncoder(a.w)
	if err := enc.Encode(&e); err != nil {
		_ = a.w.Flush()
		_ = enc.Encode(&e)
	}
	if time.Since(a.lastFlush) > 100*time.Millisecond {
		_ = a.w.Flush()
		a.lastFlush = time.Now()
	}
}

// Flush forces buffered data to disk.
func (a *fileAppender) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastFlush = time.Now()
	return a.w.Flush()
}

// Close flushes and closes the underlying file.
func (a *fileAppender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.w.Flush()
	return a.f.Close()
}
