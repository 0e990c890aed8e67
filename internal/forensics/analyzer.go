// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package forensics implements the visual forensic analyzers: face region
// consistency, blink cadence, temporal stability and compression artifact
// scoring. Each signal yields a 0-100 plausibility score where higher means
// more consistent with authentic footage.
//
// The analyzer is stateful and single-use per video: feed frames in order
// with AddFrame, read the scores with Compute, then Reset before reuse.
// Scores are deterministic for identical frame sequences.
package forensics

import (
	"sync"

	"github.com/verascope/verascope/internal/dsp"
	"github.com/verascope/verascope/internal/facedet"
	"github.com/verascope/verascope/internal/imgproc"
	"github.com/verascope/verascope/internal/media"
)

// Config tunes the forensic analyzers.
type Config struct {
	// FaceCropSize is the side length face crops are normalized to before
	// histogram comparison.
	FaceCropSize int `koanf:"face_crop_size" json:"face_crop_size"`
	// FaceHistBins is the intensity histogram resolution.
	FaceHistBins int `koanf:"face_hist_bins" json:"face_hist_bins"`
	// EARThreshold is the eye aspect ratio below which an eye counts as
	// closed.
	EARThreshold float64 `koanf:"ear_threshold" json:"ear_threshold"`
	// BlinkMinFrames is the minimum consecutive closed frames for a blink.
	BlinkMinFrames int `koanf:"blink_min_frames" json:"blink_min_frames"`
	// StabilitySize is the side length frames are normalized to for flow
	// and structural similarity.
	StabilitySize int `koanf:"stability_size" json:"stability_size"`
	// FlowBlockSize is the block-matching block side length.
	FlowBlockSize int `koanf:"flow_block_size" json:"flow_block_size"`
	// FlowSearchRadius is the block-matching search radius in pixels.
	FlowSearchRadius int `koanf:"flow_search_radius" json:"flow_search_radius"`
	// SpectrumSize is the side length frames are normalized to for the
	// frequency anomaly check. Must be a power of two.
	SpectrumSize int `koanf:"spectrum_size" json:"spectrum_size"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FaceCropSize:     64,
		FaceHistBins:     64,
		EARThreshold:     0.2,
		BlinkMinFrames:   2,
		StabilitySize:    256,
		FlowBlockSize:    16,
		FlowSearchRadius: 7,
		SpectrumSize:     256,
	}
}

// Metrics is the output of a forensic analysis.
type Metrics struct {
	FaceConsistency float64 `json:"face_consistency"`
	BlinkScore      float64 `json:"blink_score"`
	BlinkCount      int     `json:"blink_count"`
	BlinkRatePerMin float64 `json:"blink_rate_per_min"`
	StabilityScore  float64 `json:"stability_score"`
	BlockinessScore float64 `json:"blockiness_score"`
	FrequencyScore  float64 `json:"frequency_score"`
	// Overall is the weighted forensic score, 0-100, higher meaning more
	// consistent with authentic footage.
	Overall    float64  `json:"overall"`
	FrameCount int      `json:"frame_count"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Analyzer accumulates per-frame observations and derives the forensic
// scores. Safe for use from one goroutine at a time; the mutex guards
// against accidental concurrent feeding.
type Analyzer struct {
	mu    sync.Mutex
	cfg   Config
	faces facedet.FaceDetector
	eyes  facedet.EyeDetector

	frameCount  int
	faceHists   [][]float64
	faceWidths  []float64
	faceCenters [][2]float64
	earHistory  []float64
	prevStab    *imgproc.Plane
	flowMags    []float64
	ssimVals    []float64
	blockiness  []float64
	freqAnomaly []float64
}

// New builds an analyzer with the given detectors. Zero config values fall
// back to defaults.
func New(cfg Config, faces facedet.FaceDetector, eyes facedet.EyeDetector) *Analyzer {
	def := DefaultConfig()
	if cfg.FaceCropSize <= 0 {
		cfg.FaceCropSize = def.FaceCropSize
	}
	if cfg.FaceHistBins <= 0 {
		cfg.FaceHistBins = def.FaceHistBins
	}
	if cfg.EARThreshold <= 0 {
		cfg.EARThreshold = def.EARThreshold
	}
	if cfg.BlinkMinFrames <= 0 {
		cfg.BlinkMinFrames = def.BlinkMinFrames
	}
	if cfg.StabilitySize <= 0 {
		cfg.StabilitySize = def.StabilitySize
	}
	if cfg.FlowBlockSize <= 0 {
		cfg.FlowBlockSize = def.FlowBlockSize
	}
	if cfg.FlowSearchRadius <= 0 {
		cfg.FlowSearchRadius = def.FlowSearchRadius
	}
	if cfg.SpectrumSize <= 0 {
		cfg.SpectrumSize = def.SpectrumSize
	}
	if faces == nil {
		faces = facedet.NewHeuristicDetector()
	}
	if eyes == nil {
		eyes = facedet.NewHeuristicDetector()
	}
	return &Analyzer{cfg: cfg, faces: faces, eyes: eyes}
}

// AddFrame ingests one grayscale frame, updating all per-signal state.
func (a *Analyzer) AddFrame(gray *imgproc.Plane) {
	if gray == nil || len(gray.Pix) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frameCount++
	a.observeFace(gray)
	a.observeStability(gray)
	a.blockiness = append(a.blockiness, blockinessOf(gray))
	a.freqAnomaly = append(a.freqAnomaly, frequencyAnomalyOf(gray, a.cfg.SpectrumSize))
}

// Compute derives the forensic scores from the accumulated state. fps is the
// sampling rate the frames were extracted at; it only affects the blink rate
// conversion.
func (a *Analyzer) Compute(fps float64) Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := Metrics{FrameCount: a.frameCount}

	var reason string
	m.FaceConsistency, reason = faceConsistencyScore(a.faceHists, a.faceWidths, a.faceCenters)
	if reason != "" {
		m.Reasons = append(m.Reasons, reason)
	}

	m.BlinkCount, m.BlinkRatePerMin, m.BlinkScore = blinkScore(a.earHistory, a.cfg.EARThreshold, a.cfg.BlinkMinFrames, fps)

	m.StabilityScore = stabilityScore(a.flowMags, a.ssimVals)

	m.BlockinessScore = dsp.Clamp(dsp.Mean(a.blockiness)*30, 0, 100)
	m.FrequencyScore = dsp.Clamp(dsp.Mean(a.freqAnomaly)*100, 0, 100)
	artifactPenalty := (m.BlockinessScore + m.FrequencyScore) / 2

	m.Overall = dsp.Clamp(
		0.25*m.FaceConsistency+
			0.20*m.BlinkScore+
			0.25*m.StabilityScore+
			0.30*(100-artifactPenalty),
		0, 100)
	return m
}

// Reset clears all accumulated state so the analyzer can process another
// video.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frameCount = 0
	a.faceHists = nil
	a.faceWidths = nil
	a.faceCenters = nil
	a.earHistory = nil
	a.prevStab = nil
	a.flowMags = nil
	a.ssimVals = nil
	a.blockiness = nil
	a.freqAnomaly = nil
}

// AnalyzeFrames resets the analyzer, feeds every frame and computes scores.
func (a *Analyzer) AnalyzeFrames(frames []media.Frame, fps float64) Metrics {
	a.Reset()
	for i := range frames {
		a.AddFrame(frames[i].Gray)
	}
	return a.Compute(fps)
}

// observeFace records histogram, size and center of the detected face, and
// the frame's eye aspect ratio. Caller holds the mutex.
func (a *Analyzer) observeFace(gray *imgproc.Plane) {
	face, ok := a.faces.DetectFace(gray)
	if !ok {
		// Neutral EAR keeps the blink series aligned with the frame series.
		a.earHistory = append(a.earHistory, a.cfg.EARThreshold*1.5)
		return
	}

	crop := gray.SubRect(face.X, face.Y, face.W, face.H)
	if crop == nil {
		a.earHistory = append(a.earHistory, a.cfg.EARThreshold*1.5)
		return
	}

	normalized := imgproc.Resize(crop, a.cfg.FaceCropSize, a.cfg.FaceCropSize)
	a.faceHists = append(a.faceHists, imgproc.Histogram(normalized, a.cfg.FaceHistBins))
	a.faceWidths = append(a.faceWidths, float64(face.W))
	a.faceCenters = append(a.faceCenters, [2]float64{face.CenterX(), face.CenterY()})

	a.earHistory = append(a.earHistory, frameEAR(crop, a.eyes, a.cfg.EARThreshold))
}

// frameEAR returns the mean eye aspect ratio over the detected eyes, or a
// neutral open value when fewer than two eyes are found.
func frameEAR(face *imgproc.Plane, eyes facedet.EyeDetector, threshold float64) float64 {
	regions := eyes.DetectEyes(face)
	if len(regions) < 2 {
		return threshold * 1.5
	}
	sum := 0.0
	for _, r := range regions {
		crop := face.SubRect(r.X, r.Y, r.W, r.H)
		if crop == nil {
			return threshold * 1.5
		}
		sum += facedet.EyeAspectRatio(crop)
	}
	return sum / float64(len(regions))
}

// observeStability updates the flow and similarity series against the
// previous frame. Caller holds the mutex.
func (a *Analyzer) observeStability(gray *imgproc.Plane) {
	stab := imgproc.Resize(gray, a.cfg.StabilitySize, a.cfg.StabilitySize)
	if a.prevStab != nil {
		a.flowMags = append(a.flowMags, meanFlowMagnitude(a.prevStab, stab, a.cfg.FlowBlockSize, a.cfg.FlowSearchRadius))
		a.ssimVals = append(a.ssimVals, ssim(a.prevStab, stab))
	}
	a.prevStab = stab
}
