// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package media handles decoding of input video and audio. Frame and audio
// extraction shells out to ffmpeg/ffprobe behind a circuit breaker; WAV
// parsing is done natively so malformed decoder output is caught with typed
// errors instead of crashes.
package media

import (
	"image"

	"github.com/verascope/verascope/internal/imgproc"
)

// Frame is one decoded video frame.
type Frame struct {
	// Index is the zero-based extraction index.
	Index int
	// TimestampMS is the frame's position in the video in milliseconds.
	TimestampMS float64
	Width       int
	Height      int
	// Gray is the luma plane the analyzers operate on.
	Gray *imgproc.Plane
	// RGBA is retained for overlay rendering.
	RGBA *image.RGBA
}

// Audio is a decoded mono PCM stream with samples in [-1, 1].
type Audio struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the audio length in seconds.
func (a *Audio) Duration() float64 {
	if a == nil || a.SampleRate == 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}
