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

package config

import (
	"strings"
	"testing"
	"time"
)

const validDoc = `
envelopes:
  sw_pumps: {frequency_min: 40, frequency_max: 60, count_min: 1, count_max: 2}
  fw_pumps: {frequency_min: 40, frequency_max: 60, count_min: 1, count_max: 2}
  er_fans:  {frequency_min: 40, frequency_max: 60, count_min: 2, count_max: 4}
target_temp_c: {sw_pumps: 36, fw_pumps: 34, er_fans: 45}
safety:
  s1_seawater_high_temp_c: 38
  s2_freshwater_high_temp_c: 40
  s3_low_pressure_bar: 1.5
  s4a_t5_high_c: 42
  s4b_t5_low_c: 28
  s5_emergency_t6_c: 55
  s6_stale_ticks_threshold: 2
k_p: 1.5
slew_max_hz_per_tick: 2
weights: {high_predicted_error_abs: 3, high_current_error_abs: 2}
prediction_confidence_threshold: 0.5
dwell_seconds: 10
cooldown_seconds: 30
shed_hz: 8
`

func TestParseValidDocumentSucceeds(t *testing.T) {
	cfg, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KP != 1.5 {
		t.Fatalf("expected k_p 1.5, got %v", cfg.KP)
	}
	if cfg.Adapter.Kind != "simulator" {
		t.Fatalf("expected default adapter kind simulator, got %q", cfg.Adapter.Kind)
	}
	if cfg.TickPeriod != 2*time.Second {
		t.Fatalf("expected default tick period 2s, got %v", cfg.TickPeriod)
	}
	if cfg.WindowCapacity != 90 {
		t.Fatalf("expected default window capacity 90, got %d", cfg.WindowCapacity)
	}
	if cfg.RegionGainMultiplier != 1.0 {
		t.Fatalf("expected default region gain multiplier 1.0, got %v", cfg.RegionGainMultiplier)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	doc := validDoc + "\nnot_a_real_field: 1\n"
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatalf("expected an error for an unknown field")
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("not: [valid yaml"))
	if err == nil {
		t.Fatalf("expected an error for malformed YAML")
	}
}

func TestValidateRejectsMissingEnvelope(t *testing.T) {
	cfg := validConfiguration()
	delete(cfg.Envelopes, "er_fans")
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "er_fans") {
		t.Fatalf("expected an error naming the missing group, got %v", err)
	}
}

func TestValidateRejectsInvalidFrequencyEnvelope(t *testing.T) {
	cfg := validConfiguration()
	env := cfg.Envelopes["sw_pumps"]
	env.FrequencyMax = env.FrequencyMin
	cfg.Envelopes["sw_pumps"] = env
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for a non-increasing frequency envelope")
	}
}

func TestValidateRejectsNonPositiveKP(t *testing.T) {
	cfg := validConfiguration()
	cfg.KP = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for k_p <= 0")
	}
}

func TestValidateRejectsOutOfRangeConfidenceThreshold(t *testing.T) {
	cfg := validConfiguration()
	cfg.PredictionConfidenceThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for a confidence threshold above 1")
	}
}

func TestValidateRejectsNonPositiveDwellOrCooldown(t *testing.T) {
	cfg := validConfiguration()
	cfg.CooldownSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for cooldown_seconds <= 0")
	}
}

func TestValidateRejectsUnsetEmergencyThreshold(t *testing.T) {
	cfg := validConfiguration()
	cfg.Safety.S5EmergencyT6C = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for an unset s5_emergency_t6_c")
	}
}

func TestValidateRejectsUnknownAdapterKind(t *testing.T) {
	cfg := validConfiguration()
	cfg.Adapter.Kind = "serial"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for an unknown adapter kind")
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load("/nonexistent/path/to/config.yaml"); err == nil {
		t.Fatalf("expected an error reading a nonexistent file")
	}
}

func validConfiguration() Configuration {
	cfg, err := Parse([]byte(validDoc))
	if err != nil {
		panic(err)
	}
	return cfg
}
