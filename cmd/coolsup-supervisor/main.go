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

// Package main provides the entry point for the cooling-control
// supervisor: it reads telemetry from a PLC or simulator, runs the
// three-layer safety/predictive/feedback decision pipeline every two
// seconds, writes equipment commands back, and exposes an operator API
// and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coolsup/internal/config"
	"coolsup/internal/control"
	"coolsup/internal/eventsink"
	"coolsup/internal/opapi"
	"coolsup/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "configs/supervisor.yaml", "Path to the supervisor YAML configuration")
	flag.Parse()

	logger := log.New(os.Stdout, "coolsup-supervisor: ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration %s: %v", *configPath, err)
	}

	ctx, cancelDial := context.WithCancel(context.Background())
	adapter, err := telemetry.Build(ctx, cfg)
	cancelDial()
	if err != nil {
		log.Fatalf("failed to build telemetry adapter: %v", err)
	}

	loadOutcome := control.LoadArtefactPredictor(cfg.PredictorArtefactPath)
	if loadOutcome.Err != nil {
		logger.Printf("predictor artefact load failed, falling back to null predictor: path=%s error=%v", cfg.PredictorArtefactPath, loadOutcome.Err)
	} else if loadOutcome.Loaded {
		logger.Printf("predictor artefact loaded: path=%s", cfg.PredictorArtefactPath)
	}

	window := control.NewWindow(cfg.WindowCapacity, cfg.TelemetryStride.Nanoseconds())
	initialStates := make(map[control.Group]control.GroupState, len(control.Groups))
	envelopes := control.DefaultEnvelopes()
	for _, g := range control.Groups {
		env := envelopes[g]
		initialStates[g] = control.GroupState{PrevFrequencyHz: env.FrequencyMin, PrevCount: env.CountMin}
	}
	store := control.NewStore(window, initialStates)

	sink, err := eventsink.Build(cfg.EventSink)
	if err != nil {
		log.Fatalf("failed to build event sink: %v", err)
	}

	if cfg.MetricsAddr != "" {
		eventsink.ServeMetrics(cfg.MetricsAddr)
	}

	scheduler := control.NewScheduler(cfg, adapter, loadOutcome.Predictor, store, sink, logger)

	if cfg.MetricsAddr != "" {
		go func() {
			ticker := time.NewTicker(cfg.TickPeriod)
			defer ticker.Stop()
			for range ticker.C {
				eventsink.ObserveMetricsSnapshot(scheduler.Metrics().Snapshot(), store.LatestDecision())
				eventsink.SetDegraded(store.Degraded())
				eventsink.SetEventsDropped(sink.Dropped())
			}
		}()
	}

	opServer := opapi.NewServer(store, sink)
	if cfg.OperatorAPIAddr != "" {
		go func() {
			if err := opServer.ListenAndServe(cfg.OperatorAPIAddr); err != nil {
				logger.Printf("operator API server stopped: %v", err)
			}
		}()
	}

	go scheduler.Run()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("shutting down supervisor, performing final safe-hold tick...")
	scheduler.Stop()

	if err := adapter.Close(); err != nil {
		logger.Printf("telemetry adapter close failed: %v", err)
	}

	fmt.Println("supervisor stopped.")
}
