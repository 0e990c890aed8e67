// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package model defines the contract between Verascope and the external
// fake/real classifier. Verascope never trains or runs a network itself; it
// consumes logits, activations and gradients produced by an implementation
// of these interfaces.
package model

import (
	"context"
	"math"
)

// Class indices in the classifier's logit vector.
const (
	ClassFake = 0
	ClassReal = 1
)

// Logits is a raw two-class output, index 0 fake and index 1 real.
type Logits [2]float64

// Softmax converts logits to a probability distribution. The computation is
// shifted by the max logit so large values cannot overflow.
func (l Logits) Softmax() [2]float64 {
	maxL := l[0]
	if l[1] > maxL {
		maxL = l[1]
	}
	e0 := math.Exp(l[0] - maxL)
	e1 := math.Exp(l[1] - maxL)
	sum := e0 + e1
	return [2]float64{e0 / sum, e1 / sum}
}

// ArgMax returns the index of the higher logit. Ties go to fake.
func (l Logits) ArgMax() int {
	if l[ClassReal] > l[ClassFake] {
		return ClassReal
	}
	return ClassFake
}

// Prediction is a whole-video verdict from the classifier.
type Prediction struct {
	// Label is "FAKE", "REAL" or "UNKNOWN".
	Label string `json:"label"`
	// Confidence is the classifier's confidence in the label, 0-100.
	Confidence float64 `json:"confidence"`
}

// Predictor produces classifier outputs for a video.
type Predictor interface {
	// Predict returns the whole-video verdict.
	Predict(ctx context.Context, videoPath string) (Prediction, error)

	// FrameLogits returns per-frame logits in frame order, with optional
	// per-frame timestamps in milliseconds. A nil timestamp slice means
	// timestamps should be derived from the frame rate.
	FrameLogits(ctx context.Context, videoPath string) ([]Logits, []float64, error)
}

// Activation is a feature map from a convolutional layer: Channels planes of
// H×W values, channel-major.
type Activation struct {
	Channels int
	H, W     int
	Data     []float64
}

// At returns the value at (c, y, x).
func (a *Activation) At(c, y, x int) float64 {
	return a.Data[c*a.H*a.W+y*a.W+x]
}

// Capture holds the activations and gradients recorded during one
// forward/backward pass. Each call to Backbone.Forward produces a fresh
// Capture; captures are never shared between concurrent analyses.
type Capture struct {
	Activations *Activation
	Gradients   *Activation
}

// Valid reports whether both tensors are present with matching shapes.
func (c *Capture) Valid() bool {
	if c == nil || c.Activations == nil || c.Gradients == nil {
		return false
	}
	a, g := c.Activations, c.Gradients
	return a.Channels == g.Channels && a.H == g.H && a.W == g.W &&
		len(a.Data) == a.Channels*a.H*a.W && len(g.Data) == len(a.Data)
}

// Backbone exposes the classifier's final convolutional layer for saliency
// extraction.
type Backbone interface {
	// Forward runs the network on one frame and returns its logits together
	// with a capture that will receive gradients on Backward.
	Forward(ctx context.Context, frame []float64, w, h int) (Logits, *Capture, error)

	// Backward backpropagates from the given class logit into the capture's
	// gradient tensor.
	Backward(ctx context.Context, capture *Capture, class int) error
}
