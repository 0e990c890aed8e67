// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package multimodal

import (
	"math"

	"github.com/verascope/verascope/internal/dsp"
	"github.com/verascope/verascope/internal/facedet"
	"github.com/verascope/verascope/internal/imgproc"
	"github.com/verascope/verascope/internal/media"
)

// MismatchRegion is a time range where mouth motion and audio energy
// disagree.
type MismatchRegion struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// LipSyncFeatures describe the audio-visual synchronization of the video.
type LipSyncFeatures struct {
	// SyncScore is 0-100, higher meaning better synchronization.
	SyncScore float64 `json:"sync_score"`
	// Correlation is the peak normalized cross-correlation.
	Correlation float64 `json:"correlation"`
	// LagFrames is the offset of the correlation peak in frame units;
	// positive means audio leads the mouth.
	LagFrames       int              `json:"lag_frames"`
	MismatchRegions []MismatchRegion `json:"mismatch_regions,omitempty"`
	MouthSamples    int              `json:"mouth_samples"`
}

// mouthActivity extracts a per-frame-pair motion series from the mouth
// region. Frames without a detected face contribute zero activity so the
// series stays aligned with the timeline.
func mouthActivity(frames []media.Frame, faces facedet.FaceDetector, cfg Config) []float64 {
	if len(frames) < 2 {
		return nil
	}

	crops := make([]*imgproc.Plane, len(frames))
	for i := range frames {
		crops[i] = mouthCrop(frames[i].Gray, faces, cfg)
	}

	activity := make([]float64, 0, len(frames)-1)
	for i := 1; i < len(crops); i++ {
		if crops[i-1] == nil || crops[i] == nil {
			activity = append(activity, 0)
			continue
		}
		activity = append(activity, imgproc.MeanAbsDiff(crops[i-1], crops[i]))
	}
	return activity
}

// mouthCrop isolates the mouth: the lower 30% of the face box height,
// central 60% of its width, normalized to a fixed size.
func mouthCrop(gray *imgproc.Plane, faces facedet.FaceDetector, cfg Config) *imgproc.Plane {
	if gray == nil {
		return nil
	}
	face, ok := faces.DetectFace(gray)
	if !ok {
		return nil
	}
	mx := face.X + face.W*20/100
	mw := face.W * 60 / 100
	my := face.Y + face.H*70/100
	mh := face.H * 30 / 100
	crop := gray.SubRect(mx, my, mw, mh)
	if crop == nil {
		return nil
	}
	return imgproc.Resize(crop, cfg.MouthCropW, cfg.MouthCropH)
}

// analyzeLipSync correlates the audio energy envelope with mouth motion.
func analyzeLipSync(energy, mouth []float64, fps float64, cfg Config) LipSyncFeatures {
	f := LipSyncFeatures{MouthSamples: len(mouth)}
	if len(mouth) == 0 || len(energy) == 0 {
		f.SyncScore = 50
		return f
	}

	// Bring both series to a common length before correlating.
	n := len(energy)
	if len(mouth) < n {
		n = len(mouth)
	}
	audioSeries := dsp.ZNormalize(dsp.ResampleLinear(energy, n))
	mouthSeries := dsp.ZNormalize(dsp.ResampleLinear(mouth, n))

	corr := dsp.CrossCorrelateFull(audioSeries, mouthSeries)
	argmax := 0
	for i, v := range corr {
		if v > corr[argmax] {
			argmax = i
		}
	}
	lag := argmax - (n - 1)
	maxCorr := corr[argmax] / float64(n)

	f.Correlation = maxCorr
	f.LagFrames = lag
	f.MismatchRegions = mismatchRegions(audioSeries, mouthSeries, fps, cfg.SyncCorrThreshold)

	lagPenalty := 0.0
	if math.Abs(float64(lag)) > fps*0.5 {
		lagPenalty = math.Min(50, math.Abs(float64(lag))/fps*50)
	}
	f.SyncScore = dsp.Clamp(math.Max(0, maxCorr*100-lagPenalty), 0, 100)
	return f
}

// mismatchRegions finds windows where the local correlation of the two
// series falls below the threshold.
func mismatchRegions(audio, mouth []float64, fps float64, threshold float64) []MismatchRegion {
	n := len(audio)
	size := n / 10
	if size < 1 {
		size = 1
	}
	hop := size / 2
	if hop < 1 {
		hop = 1
	}

	var regions []MismatchRegion
	for i := 0; i+size <= n; i += hop {
		r := dsp.PearsonCorrelation(audio[i:i+size], mouth[i:i+size])
		if math.IsNaN(r) || r < threshold {
			regions = append(regions, MismatchRegion{
				StartSec: float64(i) / fps,
				EndSec:   float64(i+size) / fps,
			})
		}
	}
	return regions
}
