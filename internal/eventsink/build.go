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

import "coolsup/internal/config"

// Build constructs a Sink from configuration: always a bounded in-memory
// ring; a JSONL file if EventSink.FilePath is set; a Redis export backend
// if EventSink.RedisStream is set. Any of these may be absent without
// affecting the others, matching spec.md §6's "event sink backends are
// independent and optional".
func Build(cfg config.EventSinkConfig) (*Sink, error) {
	var file *fileAppender
	if cfg.FilePath != "" {
		f, err := OpenFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		file = f
	}

	var backend ExportBackend
	if cfg.RedisStream != "" {
		backend = NewRedisExportBackend(cfg.RedisAddr, cfg.RedisStream)
	}

	return New(cfg.RingCapacity, file, backend), nil
}
