// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package gradcam computes class activation saliency maps from the
// classifier backbone and renders them as heatmap overlays on the source
// frames.
//
// Saliency requires a working backbone capture; unlike the other analyzers
// this stage fails hard when activations or gradients are unavailable,
// because a silently wrong heatmap is worse than none.
package gradcam

import (
	"context"
	"errors"
	"fmt"

	"github.com/verascope/verascope/internal/imgproc"
	"github.com/verascope/verascope/internal/media"
	"github.com/verascope/verascope/internal/model"
)

// ErrCaptureFailed reports that the backbone did not produce a usable
// activation/gradient capture.
var ErrCaptureFailed = errors.New("saliency capture failed")

// ClassPredicted asks HeatmapForFrame to explain whichever class the forward
// pass scored highest.
const ClassPredicted = -1

// Config tunes saliency rendering.
type Config struct {
	// Alpha is the heatmap blend weight over the source frame.
	Alpha float64 `koanf:"alpha" json:"alpha"`
	// MaxFrames caps how many frames get overlays per analysis.
	MaxFrames int `koanf:"max_frames" json:"max_frames"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{Alpha: 0.5, MaxFrames: 16}
}

// Explainer derives Grad-CAM heatmaps from a backbone.
type Explainer struct {
	backbone model.Backbone
	cfg      Config
}

// New builds an explainer, filling zero config values with defaults.
func New(backbone model.Backbone, cfg Config) *Explainer {
	def := DefaultConfig()
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = def.Alpha
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = def.MaxFrames
	}
	return &Explainer{backbone: backbone, cfg: cfg}
}

// HeatmapForFrame runs one forward/backward pass and reduces the capture to
// a normalized saliency plane at the backbone's layer resolution. class is
// the logit index to explain; ClassPredicted follows the forward verdict, so
// a frame the classifier calls real is explained through its real evidence.
func (e *Explainer) HeatmapForFrame(ctx context.Context, frame *media.Frame, class int) (*imgproc.Plane, error) {
	if frame == nil || frame.Gray == nil {
		return nil, fmt.Errorf("%w: no frame data", ErrCaptureFailed)
	}

	logits, capture, err := e.backbone.Forward(ctx, frame.Gray.Pix, frame.Gray.W, frame.Gray.H)
	if err != nil {
		return nil, fmt.Errorf("%w: forward pass: %v", ErrCaptureFailed, err)
	}
	if class < 0 {
		class = logits.ArgMax()
	}
	if err := e.backbone.Backward(ctx, capture, class); err != nil {
		return nil, fmt.Errorf("%w: backward pass: %v", ErrCaptureFailed, err)
	}
	if !capture.Valid() {
		return nil, fmt.Errorf("%w: incomplete capture", ErrCaptureFailed)
	}
	return camFromCapture(capture), nil
}

// camFromCapture computes the Grad-CAM map: channel weights are the global
// average pooled gradients, the map is the ReLU of the weighted activation
// sum, min-max normalized to [0, 1].
func camFromCapture(capture *model.Capture) *imgproc.Plane {
	act, grad := capture.Activations, capture.Gradients
	h, w := act.H, act.W
	planeSize := h * w

	weights := make([]float64, act.Channels)
	for c := 0; c < act.Channels; c++ {
		sum := 0.0
		for i := 0; i < planeSize; i++ {
			sum += grad.Data[c*planeSize+i]
		}
		weights[c] = sum / float64(planeSize)
	}

	cam := imgproc.NewPlane(w, h)
	for i := 0; i < planeSize; i++ {
		sum := 0.0
		for c := 0; c < act.Channels; c++ {
			sum += weights[c] * act.Data[c*planeSize+i]
		}
		if sum > 0 {
			cam.Pix[i] = sum
		}
	}

	minV, maxV := cam.Pix[0], cam.Pix[0]
	for _, v := range cam.Pix {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	span := maxV - minV
	if span < 1e-12 {
		// Uniform saliency collapses to zero rather than amplifying noise.
		for i := range cam.Pix {
			cam.Pix[i] = 0
		}
		return cam
	}
	for i := range cam.Pix {
		cam.Pix[i] = (cam.Pix[i] - minV) / span
	}
	return cam
}
