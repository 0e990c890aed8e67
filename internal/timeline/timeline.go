// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package timeline turns per-frame classifier logits into a temporal view of
// the video: per-frame fake probabilities, sudden-change anomalies, a
// smoothed trend and summary statistics.
package timeline

import (
	"fmt"
	"math"

	"github.com/verascope/verascope/internal/dsp"
	"github.com/verascope/verascope/internal/model"
)

// Config tunes timeline construction.
type Config struct {
	// AnomalyThreshold is the probability jump between consecutive frames
	// that flags an anomaly.
	AnomalyThreshold float64 `koanf:"anomaly_threshold" json:"anomaly_threshold"`
	// SmoothingWindow is the centered moving-average window size.
	SmoothingWindow int `koanf:"smoothing_window" json:"smoothing_window"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		AnomalyThreshold: 0.3,
		SmoothingWindow:  5,
	}
}

// FrameScore is one timeline entry.
type FrameScore struct {
	Index       int     `json:"index"`
	TimestampMS float64 `json:"timestamp_ms"`
	FakeProb    float64 `json:"fake_prob"`
	RealProb    float64 `json:"real_prob"`
	Smoothed    float64 `json:"smoothed"`
	IsAnomaly   bool    `json:"is_anomaly"`
	// AnomalyScore is the probability jump that triggered the flag.
	AnomalyScore float64 `json:"anomaly_score,omitempty"`
}

// Stats summarize the fake-probability series.
type Stats struct {
	MeanFakeProb float64 `json:"mean_fake_prob"`
	StdFakeProb  float64 `json:"std_fake_prob"`
	MaxFakeProb  float64 `json:"max_fake_prob"`
	MinFakeProb  float64 `json:"min_fake_prob"`
	// TemporalVariance is the mean absolute frame-to-frame change.
	TemporalVariance float64 `json:"temporal_variance"`
	// Consistency is 0-100, higher meaning a steadier probability series.
	Consistency  float64 `json:"consistency"`
	AnomalyCount int     `json:"anomaly_count"`
	AnomalyRatio float64 `json:"anomaly_ratio"`
}

// Timeline is the full temporal analysis of one video.
type Timeline struct {
	Frames []FrameScore `json:"frames"`
	Stats  Stats        `json:"stats"`
}

// Build converts per-frame logits into a timeline. timestamps, when non-nil,
// must parallel logits and carry milliseconds; otherwise timestamps are
// derived from fps.
func Build(logits []model.Logits, timestamps []float64, fps float64, cfg Config) Timeline {
	if cfg.AnomalyThreshold <= 0 {
		cfg.AnomalyThreshold = DefaultConfig().AnomalyThreshold
	}
	if cfg.SmoothingWindow <= 0 {
		cfg.SmoothingWindow = DefaultConfig().SmoothingWindow
	}

	frames := make([]FrameScore, len(logits))
	fakeProbs := make([]float64, len(logits))
	for i, l := range logits {
		probs := l.Softmax()
		ts := 0.0
		switch {
		case timestamps != nil && i < len(timestamps):
			ts = timestamps[i]
		case fps > 0:
			ts = float64(i) / fps * 1000
		}
		frames[i] = FrameScore{
			Index:       i,
			TimestampMS: ts,
			FakeProb:    probs[model.ClassFake],
			RealProb:    probs[model.ClassReal],
		}
		fakeProbs[i] = probs[model.ClassFake]
	}

	for i := 1; i < len(frames); i++ {
		change := math.Abs(fakeProbs[i] - fakeProbs[i-1])
		if change > cfg.AnomalyThreshold {
			frames[i].IsAnomaly = true
			frames[i].AnomalyScore = change
		}
	}

	smoothed := smooth(fakeProbs, cfg.SmoothingWindow)
	for i := range frames {
		frames[i].Smoothed = smoothed[i]
	}

	return Timeline{Frames: frames, Stats: statsOf(frames, fakeProbs)}
}

// ChartPoint marks one anomalous frame in the chart export.
type ChartPoint struct {
	Frame int     `json:"frame"`
	Value float64 `json:"value"`
}

// Chart is the dashboard-ready projection of a timeline: one label per
// frame, parallel probability series scaled to percent, and the anomalies
// as explicit points so they can be drawn as markers.
type Chart struct {
	Labels          []string     `json:"labels"`
	TimestampsSec   []float64    `json:"timestamps_sec"`
	FakePercent     []float64    `json:"fake_percent"`
	RealPercent     []float64    `json:"real_percent"`
	SmoothedPercent []float64    `json:"smoothed_percent"`
	Anomalies       []ChartPoint `json:"anomalies"`
	Stats           Stats        `json:"stats"`
}

// Chart exports the timeline in chart-ready form.
func (t Timeline) Chart() Chart {
	n := len(t.Frames)
	c := Chart{
		Labels:          make([]string, n),
		TimestampsSec:   make([]float64, n),
		FakePercent:     make([]float64, n),
		RealPercent:     make([]float64, n),
		SmoothedPercent: make([]float64, n),
		Stats:           t.Stats,
	}
	for i, f := range t.Frames {
		c.Labels[i] = fmt.Sprintf("Frame %d", f.Index)
		c.TimestampsSec[i] = f.TimestampMS / 1000
		c.FakePercent[i] = f.FakeProb * 100
		c.RealPercent[i] = f.RealProb * 100
		c.SmoothedPercent[i] = f.Smoothed * 100
		if f.IsAnomaly {
			c.Anomalies = append(c.Anomalies, ChartPoint{Frame: f.Index, Value: f.FakeProb * 100})
		}
	}
	return c
}

// smooth applies a centered moving average; edges shrink the window rather
// than padding.
func smooth(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	half := window / 2
	for i := range x {
		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + half + 1
		if end > len(x) {
			end = len(x)
		}
		out[i] = dsp.Mean(x[start:end])
	}
	return out
}

func statsOf(frames []FrameScore, fakeProbs []float64) Stats {
	s := Stats{}
	if len(fakeProbs) == 0 {
		return s
	}

	s.MeanFakeProb = dsp.Mean(fakeProbs)
	s.StdFakeProb = dsp.Std(fakeProbs)
	s.MaxFakeProb = fakeProbs[0]
	s.MinFakeProb = fakeProbs[0]
	for _, p := range fakeProbs {
		if p > s.MaxFakeProb {
			s.MaxFakeProb = p
		}
		if p < s.MinFakeProb {
			s.MinFakeProb = p
		}
	}

	if len(fakeProbs) > 1 {
		sum := 0.0
		for i := 1; i < len(fakeProbs); i++ {
			sum += math.Abs(fakeProbs[i] - fakeProbs[i-1])
		}
		s.TemporalVariance = sum / float64(len(fakeProbs)-1)
	}
	s.Consistency = math.Max(0, 100*(1-s.TemporalVariance/0.5))

	for _, f := range frames {
		if f.IsAnomaly {
			s.AnomalyCount++
		}
	}
	s.AnomalyRatio = float64(s.AnomalyCount) / float64(len(frames))
	return s
}
