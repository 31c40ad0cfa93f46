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
	"fmt"

	"coolsup/internal/config"
)

// Build constructs an Adapter from configuration. Supported kinds:
//   - "simulator": in-process deterministic physics stand-in (default)
//   - "plc": live transport dialed over TCPRegisterIO to cfg.Adapter.Addr
func Build(ctx context.Context, cfg config.Configuration) (Adapter, error) {
	switch cfg.Adapter.Kind {
	case "", "simulator":
		return NewSimulator(), nil
	case "plc":
		if cfg.Adapter.Addr == "" {
			return nil, fmt.Errorf("telemetry: plc adapter requires adapter.addr")
		}
		io, err := DialTCPRegisterIO(ctx, cfg.Adapter.Addr)
		if err != nil {
			return nil, err
		}
		return NewPLCTransport(io), nil
	default:
		return nil, fmt.Errorf("telemetry: unknown adapter kind %q", cfg.Adapter.Kind)
	}
}
