// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package main is the entry point for the Verascope server.
//
// Verascope post-processes the verdict of an external deepfake classifier
// into a multi-signal forensic report: visual forensics, audio-visual
// consistency, a per-frame manipulation timeline, Grad-CAM overlays, a fake
// type assessment and an aggregate threat score, served over a REST API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file and environment (Koanf v2)
//  2. Logging: global zerolog logger
//  3. Archive: BadgerDB store for completed analysis reports
//  4. Media extractor: FFmpeg frame and audio decoding behind a circuit breaker
//  5. Classifier client: optional remote predictor (VERASCOPE_MODEL__URL)
//  6. Analysis pipeline: forensics, multimodal, timeline, gradcam, threat
//  7. HTTP server: chi router under a suture supervision tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (VERASCOPE_ prefix, __ separates nesting)
//   - Config file (config.yaml, or VERASCOPE_CONFIG_PATH)
//   - Built-in defaults
//
// # Classifier Service
//
// Verascope never loads model weights itself. Point it at an inference
// service to enable classifier-backed sections of the report:
//
//	export VERASCOPE_MODEL__URL=http://classifier:9000
//	./verascope
//
// Without a classifier the pipeline still runs and marks the prediction,
// timeline and gradcam sections as degraded.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight analyses up to the configured
// shutdown timeout, then closes the archive.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/verascope/verascope/internal/api"
	"github.com/verascope/verascope/internal/config"
	"github.com/verascope/verascope/internal/logging"
	"github.com/verascope/verascope/internal/media"
	"github.com/verascope/verascope/internal/model"
	"github.com/verascope/verascope/internal/pipeline"
	"github.com/verascope/verascope/internal/store"
	"github.com/verascope/verascope/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("store_dir", cfg.Store.Dir).
		Bool("classifier_enabled", cfg.Model.URL != "").
		Msg("Starting Verascope")

	archive, err := store.Open(cfg.Store.Dir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open analysis archive")
	}
	defer func() {
		if err := archive.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing analysis archive")
		}
	}()

	extractor := media.NewExtractor(cfg.Pipeline.Extractor)

	// A typed nil must not reach the Predictor interface, the pipeline
	// checks it against nil to decide whether to degrade.
	var predictor model.Predictor
	if remote := model.NewRemotePredictor(cfg.Model); remote != nil {
		predictor = remote
		logging.Info().Str("url", cfg.Model.URL).Msg("Classifier service configured")
	} else {
		logging.Warn().Msg("No classifier configured. Prediction, timeline and gradcam sections will degrade")
	}

	// No backbone in the default build: Grad-CAM needs in-process
	// activations, which only an embedding integration can provide.
	pipe := pipeline.New(cfg.Pipeline, extractor, predictor, nil)

	server := api.NewServer(cfg.Server, pipe, archive)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.Add(supervisor.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}
	logging.Info().Msg("Shutdown complete")
}
