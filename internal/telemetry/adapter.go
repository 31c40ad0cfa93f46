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

// Package telemetry implements the plant-facing transport boundary: the
// Adapter interface the control scheduler reads frames from and writes
// commands to, a deterministic Simulator for demo/test use, and a PLC
// transport for a live register-mapped link.
package telemetry

import (
	"context"
	"errors"

	"coolsup/internal/control"
)

// Sentinel transport errors, replacing the exception-for-timeout pattern
// with typed values the scheduler can match against (spec.md §9).
var (
	ErrTimeout    = errors.New("telemetry: deadline exceeded")
	ErrTransport  = errors.New("telemetry: transport failure")
	ErrOutOfRange = errors.New("telemetry: reading out of physical range")
)

// Adapter is the transport-level capability: read one frame, write one
// command. control.Telemetry is the scheduler-facing narrowing of this
// same interface.
type Adapter interface {
	Read(ctx context.Context) (control.TelemetryFrame, error)
	Write(ctx context.Context, cmd control.CommandFrame) error
	Close() error
}
