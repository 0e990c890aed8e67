// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package multimodal implements the audio-visual analyzers: voice spoof
// heuristics on the audio track and audio-to-mouth-motion synchronization.
//
// Pitch and jitter scores are suspicion scores: higher means more
// synthetic-looking. Synthetic speech tends to be either unnaturally flat
// or unnaturally jittery compared to a human larynx.
package multimodal

import (
	"math"

	"github.com/verascope/verascope/internal/dsp"
	"github.com/verascope/verascope/internal/media"
)

// AudioFeatures are the voice characteristics extracted from the track.
type AudioFeatures struct {
	PitchMeanHz float64 `json:"pitch_mean_hz"`
	PitchStdHz  float64 `json:"pitch_std_hz"`
	// PitchScore is a 0-100 suspicion score for pitch variability.
	PitchScore float64 `json:"pitch_score"`
	Jitter     float64 `json:"jitter"`
	// JitterScore is a 0-100 suspicion score for period irregularity.
	JitterScore        float64   `json:"jitter_score"`
	EnergyProfile      []float64 `json:"energy_profile"`
	ZeroCrossingRate   float64   `json:"zero_crossing_rate"`
	SpectralCentroidHz float64   `json:"spectral_centroid_hz"`
}

// analyzeAudio extracts all voice features from a decoded track.
func analyzeAudio(audio *media.Audio, cfg Config) AudioFeatures {
	f := AudioFeatures{}
	f.PitchMeanHz, f.PitchStdHz, f.PitchScore = pitchTrack(audio.Samples, audio.SampleRate, cfg)
	f.Jitter, f.JitterScore = jitterOf(audio.Samples)
	f.EnergyProfile = energyProfile(audio.Samples, cfg.EnergySegments)
	f.ZeroCrossingRate = zeroCrossingRate(audio.Samples)
	f.SpectralCentroidHz = spectralCentroid(audio.Samples, audio.SampleRate, cfg)
	return f
}

// pitchTrack estimates fundamental frequency per window via autocorrelation
// and scores the pitch contour's variability. Both an unnaturally flat
// contour and an erratic one raise the score.
func pitchTrack(samples []float64, rate int, cfg Config) (mean, std, score float64) {
	minLag := rate / 500
	maxLag := rate / 50
	if minLag < 1 {
		minLag = 1
	}

	var pitches []float64
	for start := 0; start+cfg.PitchWindow <= len(samples); start += cfg.PitchHop {
		window := samples[start : start+cfg.PitchWindow]
		ac := dsp.Autocorrelation(window, maxLag)
		if len(ac) <= minLag {
			continue
		}

		peak := minLag
		for lag := minLag; lag < len(ac) && lag < maxLag; lag++ {
			if ac[lag] > ac[peak] {
				peak = lag
			}
		}
		// A real periodic peak retains a sizable fraction of lag-0 energy.
		if ac[0] <= 0 || ac[peak] < 0.3*ac[0] {
			continue
		}
		pitch := float64(rate) / float64(peak)
		if pitch > 50 && pitch < 500 {
			pitches = append(pitches, pitch)
		}
	}

	if len(pitches) == 0 {
		return 0, 0, 50
	}
	mean = dsp.Mean(pitches)
	std = dsp.Std(pitches)

	cv := std / (mean + 1e-6)
	switch {
	case cv < 0.05:
		score = 70 + (0.05-cv)*600
	case cv > 0.3:
		score = 50 + (cv-0.3)*100
	default:
		score = cv * 100
	}
	return mean, std, dsp.Clamp(score, 0, 100)
}

// jitterOf measures cycle-to-cycle period variation from zero crossings.
// Human voices carry 0.5-1% jitter; vocoders are either near-perfect or
// wildly unstable.
func jitterOf(samples []float64) (jitter, score float64) {
	crossings := dsp.ZeroCrossings(samples)
	if len(crossings) < 4 {
		return 0, 50
	}

	var periods []float64
	for i := 0; i+2 < len(crossings); i += 2 {
		p := float64(crossings[i+2] - crossings[i])
		// Periods outside 25-500 Hz at 16 kHz are noise, not voicing.
		if p > 32 && p < 640 {
			periods = append(periods, p)
		}
	}
	if len(periods) < 3 {
		return 0, 50
	}

	var deltas []float64
	for i := 1; i < len(periods); i++ {
		deltas = append(deltas, math.Abs(periods[i]-periods[i-1]))
	}
	jitter = dsp.Mean(deltas) / (dsp.Mean(periods) + 1e-6)

	switch {
	case jitter < 0.001:
		score = 80
	case jitter > 0.02:
		score = math.Min(100, 50+jitter*1000)
	default:
		score = jitter * 2500
	}
	return jitter, score
}

// energyProfile splits the signal into equal segments and returns per-segment
// RMS energy.
func energyProfile(samples []float64, segments int) []float64 {
	if len(samples) == 0 || segments <= 0 {
		return nil
	}
	if segments > len(samples) {
		segments = len(samples)
	}
	profile := make([]float64, segments)
	segLen := len(samples) / segments
	for s := 0; s < segments; s++ {
		start := s * segLen
		end := start + segLen
		if s == segments-1 {
			end = len(samples)
		}
		sum := 0.0
		for _, v := range samples[start:end] {
			sum += v * v
		}
		profile[s] = math.Sqrt(sum / float64(end-start))
	}
	return profile
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return float64(len(dsp.ZeroCrossings(samples))) / float64(len(samples))
}

// spectralCentroid returns the amplitude-weighted mean frequency averaged
// over Hann-windowed frames.
func spectralCentroid(samples []float64, rate int, cfg Config) float64 {
	if len(samples) < cfg.CentroidWindow {
		return 0
	}
	hann := dsp.HannWindow(cfg.CentroidWindow)
	frame := make([]float64, cfg.CentroidWindow)

	var centroids []float64
	for start := 0; start+cfg.CentroidWindow <= len(samples); start += cfg.CentroidHop {
		for i := range frame {
			frame[i] = samples[start+i] * hann[i]
		}
		spectrum := dsp.RealSpectrum(frame)
		binHz := float64(rate) / float64((len(spectrum)-1)*2)
		var num, den float64
		for i, mag := range spectrum {
			num += float64(i) * binHz * mag
			den += mag
		}
		if den > 0 {
			centroids = append(centroids, num/den)
		}
	}
	return dsp.Mean(centroids)
}
