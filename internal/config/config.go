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

// Package config parses and validates the supervisor's structured
// start-up configuration document (spec.md §6). The parsed Configuration
// is immutable for the lifetime of the process; changing it requires a
// restart, so unlike the sibling engine-config package this corpus also
// carries (99souls-ariadne), there is no file watcher here.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GroupEnvelopeDoc is the YAML shape of a per-group envelope.
type GroupEnvelopeDoc struct {
	FrequencyMin   float64 `yaml:"frequency_min"`
	FrequencyMax   float64 `yaml:"frequency_max"`
	CountMin       int     `yaml:"count_min"`
	CountMax       int     `yaml:"count_max"`
	RatedKWPerUnit float64 `yaml:"rated_kw_per_unit"`
}

// SafetyThresholds holds the tunable constants for rules S1-S6 (§4.4).
type SafetyThresholds struct {
	S1SeawaterHighTempC    float64 `yaml:"s1_seawater_high_temp_c"`
	S2FreshwaterHighTempC  float64 `yaml:"s2_freshwater_high_temp_c"`
	S3LowPressureBar       float64 `yaml:"s3_low_pressure_bar"`
	S4aT5HighC             float64 `yaml:"s4a_t5_high_c"`
	S4bT5LowC              float64 `yaml:"s4b_t5_low_c"`
	S5EmergencyT6C         float64 `yaml:"s5_emergency_t6_c"`
	S6StaleTicksThreshold  int     `yaml:"s6_stale_ticks_threshold"`
}

// ControllerWeights is the V3 weight table from spec.md §4.5 step 3.
type ControllerWeights struct {
	HighPredictedErrorAbs float64 `yaml:"high_predicted_error_abs"` // > this => (0.2, 0.8)
	HighCurrentErrorAbs   float64 `yaml:"high_current_error_abs"`   // > this => (0.6, 0.4)
}

// Configuration is the immutable, start-up-validated settings document.
type Configuration struct {
	Envelopes map[string]GroupEnvelopeDoc `yaml:"envelopes"`

	TargetTempC map[string]float64 `yaml:"target_temp_c"`

	Safety SafetyThresholds `yaml:"safety"`

	KP                            float64           `yaml:"k_p"`
	SlewMaxHzPerTick              float64           `yaml:"slew_max_hz_per_tick"`
	Weights                       ControllerWeights `yaml:"weights"`
	PredictionConfidenceThreshold float64           `yaml:"prediction_confidence_threshold"`

	DwellSeconds    float64 `yaml:"dwell_seconds"`
	CooldownSeconds float64 `yaml:"cooldown_seconds"`
	ShedHz          float64 `yaml:"shed_hz"`

	TickPeriod                   time.Duration `yaml:"tick_period"`
	TelemetryStride               time.Duration `yaml:"telemetry_stride"`
	WindowCapacity                int           `yaml:"window_capacity"`
	TransportDeadline             time.Duration `yaml:"transport_deadline"`
	ConsecutiveMissesForDegraded  int           `yaml:"consecutive_misses_for_degraded"`

	PredictorArtefactPath string `yaml:"predictor_artefact_path"`

	// RegionGainMultiplier is an unused-today hook reserved for future
	// GPS/region-based gain adaptation (spec.md §9 open question). It
	// multiplies K_p and defaults to 1.0 (no-op).
	RegionGainMultiplier float64 `yaml:"region_gain_multiplier"`

	Adapter AdapterConfig `yaml:"adapter"`

	EventSink EventSinkConfig `yaml:"event_sink"`

	OperatorAPIAddr string `yaml:"operator_api_addr"`
	MetricsAddr     string `yaml:"metrics_addr"`
}

// AdapterConfig selects and parameterizes the telemetry transport (C1).
type AdapterConfig struct {
	Kind string `yaml:"kind"` // "simulator" or "plc"
	Addr string `yaml:"addr"` // register-IO endpoint for "plc"
}

// EventSinkConfig parameterizes the structured event sink (C9).
type EventSinkConfig struct {
	RingCapacity int    `yaml:"ring_capacity"`
	FilePath     string `yaml:"file_path"`     // empty disables file export
	RedisAddr    string `yaml:"redis_addr"`    // empty uses the logging stand-in publisher
	RedisStream  string `yaml:"redis_stream"`  // empty disables redis export
}

// Load reads and validates a configuration document from path.
func Load(path string) (Configuration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document with strict unknown-field rejection (§6:
// "unknown options are rejected") and applies defaults plus validation.
func Parse(raw []byte) (Configuration, error) {
	var cfg Configuration
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Configuration{}, fmt.Errorf("config: %w", ErrConfigurationInvalid(err))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Configuration{}, fmt.Errorf("config: %w", ErrConfigurationInvalid(err))
	}
	return cfg, nil
}

func (c *Configuration) applyDefaults() {
	if c.RegionGainMultiplier == 0 {
		c.RegionGainMultiplier = 1.0
	}
	if c.WindowCapacity == 0 {
		c.WindowCapacity = 90
	}
	if c.TelemetryStride == 0 {
		c.TelemetryStride = 20 * time.Second
	}
	if c.TickPeriod == 0 {
		c.TickPeriod = 2 * time.Second
	}
	if c.TransportDeadline == 0 {
		c.TransportDeadline = 200 * time.Millisecond
	}
	if c.ConsecutiveMissesForDegraded == 0 {
		c.ConsecutiveMissesForDegraded = 3
	}
	if c.Safety.S6StaleTicksThreshold == 0 {
		c.Safety.S6StaleTicksThreshold = 2
	}
	if c.EventSink.RingCapacity == 0 {
		c.EventSink.RingCapacity = 1024
	}
	if c.Adapter.Kind == "" {
		c.Adapter.Kind = "simulator"
	}
}

// Validate enforces the required-field and range checks spec.md §6
// mandates at start-up ("missing required options abort start-up").
func (c Configuration) Validate() error {
	required := []string{"sw_pumps", "fw_pumps", "er_fans"}
	for _, g := range required {
		env, ok := c.Envelopes[g]
		if !ok {
			return fmt.Errorf("missing envelope for group %q", g)
		}
		if env.FrequencyMin <= 0 || env.FrequencyMax <= env.FrequencyMin {
			return fmt.Errorf("group %q: invalid frequency envelope [%v,%v]", g, env.FrequencyMin, env.FrequencyMax)
		}
		if env.CountMin <= 0 || env.CountMax < env.CountMin {
			return fmt.Errorf("group %q: invalid count envelope [%d,%d]", g, env.CountMin, env.CountMax)
		}
		if _, ok := c.TargetTempC[g]; !ok {
			return fmt.Errorf("missing target_temp_c for group %q", g)
		}
	}
	if c.KP <= 0 {
		return fmt.Errorf("k_p must be positive")
	}
	if c.SlewMaxHzPerTick <= 0 {
		return fmt.Errorf("slew_max_hz_per_tick must be positive")
	}
	if c.PredictionConfidenceThreshold < 0 || c.PredictionConfidenceThreshold > 1 {
		return fmt.Errorf("prediction_confidence_threshold must be in [0,1]")
	}
	if c.DwellSeconds <= 0 || c.CooldownSeconds <= 0 {
		return fmt.Errorf("dwell_seconds and cooldown_seconds must be positive")
	}
	if c.Safety.S5EmergencyT6C <= 0 {
		return fmt.Errorf("safety.s5_emergency_t6_c must be set")
	}
	switch c.Adapter.Kind {
	case "simulator", "plc":
	default:
		return fmt.Errorf("adapter.kind must be %q or %q, got %q", "simulator", "plc", c.Adapter.Kind)
	}
	return nil
}

// ErrConfigurationInvalid wraps any parse/validation failure. Per spec.md
// §7, this error class is fatal only at start-up; it never appears once
// the supervisor is running.
func ErrConfigurationInvalid(cause error) error {
	return fmt.Errorf("configuration invalid: %w", cause)
}
