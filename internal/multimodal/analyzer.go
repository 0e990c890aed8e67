// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package multimodal

import (
	"github.com/verascope/verascope/internal/dsp"
	"github.com/verascope/verascope/internal/facedet"
	"github.com/verascope/verascope/internal/media"
)

// Config tunes the audio-visual analyzers.
type Config struct {
	// PitchWindow and PitchHop set the pitch tracking frame geometry.
	PitchWindow int `koanf:"pitch_window" json:"pitch_window"`
	PitchHop    int `koanf:"pitch_hop" json:"pitch_hop"`
	// EnergySegments is the resolution of the audio energy envelope.
	EnergySegments int `koanf:"energy_segments" json:"energy_segments"`
	// CentroidWindow and CentroidHop set the spectral centroid frame
	// geometry.
	CentroidWindow int `koanf:"centroid_window" json:"centroid_window"`
	CentroidHop    int `koanf:"centroid_hop" json:"centroid_hop"`
	// SyncCorrThreshold is the local correlation below which a window is
	// flagged as a mismatch region.
	SyncCorrThreshold float64 `koanf:"sync_corr_threshold" json:"sync_corr_threshold"`
	// MouthCropW and MouthCropH normalize mouth crops before differencing.
	MouthCropW int `koanf:"mouth_crop_w" json:"mouth_crop_w"`
	MouthCropH int `koanf:"mouth_crop_h" json:"mouth_crop_h"`
	// MinAudioSamples is the minimum track length considered analyzable.
	MinAudioSamples int `koanf:"min_audio_samples" json:"min_audio_samples"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PitchWindow:       1024,
		PitchHop:          512,
		EnergySegments:    50,
		CentroidWindow:    2048,
		CentroidHop:       1024,
		SyncCorrThreshold: 0.2,
		MouthCropW:        64,
		MouthCropH:        32,
		MinAudioSamples:   1024,
	}
}

// Metrics is the output of a multimodal analysis.
type Metrics struct {
	Audio   *AudioFeatures   `json:"audio,omitempty"`
	LipSync *LipSyncFeatures `json:"lip_sync,omitempty"`
	// SpoofScore is 0-100, higher meaning more synthetic-sounding audio.
	SpoofScore float64 `json:"spoof_score"`
	// CombinedScore is 0-100, higher meaning more authentic.
	CombinedScore float64 `json:"combined_score"`
	// Confidence is 0-100 and reflects how much signal was available.
	Confidence float64  `json:"confidence"`
	AudioValid bool     `json:"audio_valid"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Analyzer runs the audio-visual checks. Stateless between calls; safe for
// concurrent use with distinct inputs.
type Analyzer struct {
	cfg   Config
	faces facedet.FaceDetector
}

// New builds an analyzer, filling zero config values with defaults.
func New(cfg Config, faces facedet.FaceDetector) *Analyzer {
	def := DefaultConfig()
	if cfg.PitchWindow <= 0 {
		cfg.PitchWindow = def.PitchWindow
	}
	if cfg.PitchHop <= 0 {
		cfg.PitchHop = def.PitchHop
	}
	if cfg.EnergySegments <= 0 {
		cfg.EnergySegments = def.EnergySegments
	}
	if cfg.CentroidWindow <= 0 {
		cfg.CentroidWindow = def.CentroidWindow
	}
	if cfg.CentroidHop <= 0 {
		cfg.CentroidHop = def.CentroidHop
	}
	if cfg.SyncCorrThreshold <= 0 {
		cfg.SyncCorrThreshold = def.SyncCorrThreshold
	}
	if cfg.MouthCropW <= 0 {
		cfg.MouthCropW = def.MouthCropW
	}
	if cfg.MouthCropH <= 0 {
		cfg.MouthCropH = def.MouthCropH
	}
	if cfg.MinAudioSamples <= 0 {
		cfg.MinAudioSamples = def.MinAudioSamples
	}
	if faces == nil {
		faces = facedet.NewHeuristicDetector()
	}
	return &Analyzer{cfg: cfg, faces: faces}
}

// Analyze runs the audio and lip-sync checks and fuses them into a combined
// authenticity score. A missing or too-short audio track degrades to a
// neutral result with reasons rather than an error.
func (a *Analyzer) Analyze(audio *media.Audio, frames []media.Frame, fps float64) Metrics {
	m := Metrics{}
	m.AudioValid = audio != nil && len(audio.Samples) >= a.cfg.MinAudioSamples && audio.SampleRate > 0

	spoof := 50.0
	if m.AudioValid {
		features := analyzeAudio(audio, a.cfg)
		m.Audio = &features
		spoof = 0.5*features.PitchScore + 0.5*features.JitterScore
	} else {
		m.Reasons = append(m.Reasons, "audio track missing or too short for voice analysis")
	}
	m.SpoofScore = spoof

	lipSyncScore := 50.0
	if m.AudioValid && m.Audio != nil && len(m.Audio.EnergyProfile) > 0 {
		mouth := mouthActivity(frames, a.faces, a.cfg)
		features := analyzeLipSync(m.Audio.EnergyProfile, mouth, fps, a.cfg)
		m.LipSync = &features
		lipSyncScore = features.SyncScore
		if features.MouthSamples == 0 {
			m.Reasons = append(m.Reasons, "no mouth motion extracted for lip-sync analysis")
		}
	} else {
		m.Reasons = append(m.Reasons, "lip-sync analysis skipped without usable audio")
	}

	m.CombinedScore = dsp.Clamp((100-spoof)*0.4+lipSyncScore*0.6, 0, 100)

	confidence := 30.0
	if m.AudioValid {
		confidence = 80
	}
	if m.LipSync != nil && m.LipSync.MouthSamples > 50 {
		confidence += 20
	}
	if confidence > 100 {
		confidence = 100
	}
	m.Confidence = confidence
	return m
}
