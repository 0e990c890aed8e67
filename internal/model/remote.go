// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package model

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// RemoteConfig points at a classifier inference service.
type RemoteConfig struct {
	// URL is the service base URL; empty disables the classifier.
	URL     string        `koanf:"url" json:"url"`
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
}

// DefaultRemoteConfig returns production defaults.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{Timeout: 5 * time.Minute}
}

// RemotePredictor consults a classifier service over HTTP. The service
// receives the server-visible video path and returns verdicts and logits;
// Verascope never loads model weights itself.
type RemotePredictor struct {
	cfg    RemoteConfig
	client *http.Client
}

// NewRemotePredictor builds a predictor client. Returns nil when no URL is
// configured, which the pipeline treats as "no classifier available".
func NewRemotePredictor(cfg RemoteConfig) *RemotePredictor {
	if cfg.URL == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteConfig().Timeout
	}
	return &RemotePredictor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type remoteRequest struct {
	VideoPath string `json:"video_path"`
}

// Predict implements Predictor.
func (r *RemotePredictor) Predict(ctx context.Context, videoPath string) (Prediction, error) {
	var resp Prediction
	if err := r.post(ctx, "/predict", remoteRequest{VideoPath: videoPath}, &resp); err != nil {
		return Prediction{}, err
	}
	return resp, nil
}

type frameLogitsResponse struct {
	Logits       []Logits  `json:"logits"`
	TimestampsMS []float64 `json:"timestamps_ms"`
}

// FrameLogits implements Predictor.
func (r *RemotePredictor) FrameLogits(ctx context.Context, videoPath string) ([]Logits, []float64, error) {
	var resp frameLogitsResponse
	if err := r.post(ctx, "/frame_logits", remoteRequest{VideoPath: videoPath}, &resp); err != nil {
		return nil, nil, err
	}
	if resp.TimestampsMS != nil && len(resp.TimestampsMS) != len(resp.Logits) {
		return nil, nil, fmt.Errorf("classifier returned %d timestamps for %d logits",
			len(resp.TimestampsMS), len(resp.Logits))
	}
	return resp.Logits, resp.TimestampsMS, nil
}

func (r *RemotePredictor) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding classifier request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding classifier response: %w", err)
	}
	return nil
}
