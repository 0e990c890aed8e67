// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package faketype infers which manipulation technique most likely produced
// a video by weighing evidence from the classifier verdict, the visual
// forensics, the audio analysis and the timeline.
//
// The rules are deliberately transparent: every point of score comes with a
// human-readable evidence string, so a reviewer can audit why a video was
// labeled a face swap rather than a reenactment.
package faketype

import (
	"fmt"
	"math"

	"github.com/verascope/verascope/internal/forensics"
	"github.com/verascope/verascope/internal/model"
	"github.com/verascope/verascope/internal/multimodal"
	"github.com/verascope/verascope/internal/timeline"
)

// Type identifies a manipulation technique. The string values are a wire
// contract shared with the dashboard; changing them breaks stored verdicts.
type Type string

const (
	TypeAuthentic   Type = "authentic"
	TypeFaceSwap    Type = "gan_face_swap"
	TypeReenactment Type = "face_reenactment"
	TypeLipSync     Type = "lip_sync_manipulation"
	TypeUnknown     Type = "unknown_manipulation"
)

// Config holds the rule thresholds. Zero fields fall back to the defaults.
type Config struct {
	// RealConfidenceMin gates the classifier's REAL verdict as authenticity
	// evidence.
	RealConfidenceMin  float64 `koanf:"real_confidence_min" json:"real_confidence_min"`
	FaceConsistencyMax  float64 `koanf:"face_consistency_max" json:"face_consistency_max"`
	StabilityMax        float64 `koanf:"stability_max" json:"stability_max"`
	BlinkScoreMax       float64 `koanf:"blink_score_max" json:"blink_score_max"`
	ArtifactScoreMin    float64 `koanf:"artifact_score_min" json:"artifact_score_min"`
	SyncScoreMax        float64 `koanf:"sync_score_max" json:"sync_score_max"`
	CorrelationMax      float64 `koanf:"correlation_max" json:"correlation_max"`
	SpoofScoreMin       float64 `koanf:"spoof_score_min" json:"spoof_score_min"`
	TemporalVarianceMin float64 `koanf:"temporal_variance_min" json:"temporal_variance_min"`
	AnomalyRatioMin     float64 `koanf:"anomaly_ratio_min" json:"anomaly_ratio_min"`
	MeanFakeProbMin     float64 `koanf:"mean_fake_prob_min" json:"mean_fake_prob_min"`
	// AuthenticScoreMin is the evidence floor for calling a video authentic.
	AuthenticScoreMin float64 `koanf:"authentic_score_min" json:"authentic_score_min"`
	// WeakEvidenceMax is the score below which the best candidate is too
	// weak to name and the type stays unknown.
	WeakEvidenceMax float64 `koanf:"weak_evidence_max" json:"weak_evidence_max"`
}

// DefaultConfig returns the production rule thresholds.
func DefaultConfig() Config {
	return Config{
		RealConfidenceMin:   70,
		FaceConsistencyMax:  60,
		StabilityMax:        55,
		BlinkScoreMax:       30,
		ArtifactScoreMin:    50,
		SyncScoreMax:        40,
		CorrelationMax:      0.3,
		SpoofScoreMin:       60,
		TemporalVarianceMin: 0.15,
		AnomalyRatioMin:     0.2,
		MeanFakeProbMin:     0.8,
		AuthenticScoreMin:   40,
		WeakEvidenceMax:     20,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RealConfidenceMin == 0 {
		c.RealConfidenceMin = def.RealConfidenceMin
	}
	if c.FaceConsistencyMax == 0 {
		c.FaceConsistencyMax = def.FaceConsistencyMax
	}
	if c.StabilityMax == 0 {
		c.StabilityMax = def.StabilityMax
	}
	if c.BlinkScoreMax == 0 {
		c.BlinkScoreMax = def.BlinkScoreMax
	}
	if c.ArtifactScoreMin == 0 {
		c.ArtifactScoreMin = def.ArtifactScoreMin
	}
	if c.SyncScoreMax == 0 {
		c.SyncScoreMax = def.SyncScoreMax
	}
	if c.CorrelationMax == 0 {
		c.CorrelationMax = def.CorrelationMax
	}
	if c.SpoofScoreMin == 0 {
		c.SpoofScoreMin = def.SpoofScoreMin
	}
	if c.TemporalVarianceMin == 0 {
		c.TemporalVarianceMin = def.TemporalVarianceMin
	}
	if c.AnomalyRatioMin == 0 {
		c.AnomalyRatioMin = def.AnomalyRatioMin
	}
	if c.MeanFakeProbMin == 0 {
		c.MeanFakeProbMin = def.MeanFakeProbMin
	}
	if c.AuthenticScoreMin == 0 {
		c.AuthenticScoreMin = def.AuthenticScoreMin
	}
	if c.WeakEvidenceMax == 0 {
		c.WeakEvidenceMax = def.WeakEvidenceMax
	}
	return c
}

// Assessment is the outcome of fake-type inference.
type Assessment struct {
	Primary    Type    `json:"primary"`
	Confidence float64 `json:"confidence"`
	// Scores holds the raw evidence totals per type.
	Scores          map[Type]float64 `json:"scores"`
	Evidence        []string         `json:"evidence"`
	Explanation     string           `json:"explanation"`
	Recommendations []string         `json:"recommendations"`
}

// Classify weighs all available signals into a fake-type assessment. Any of
// the analysis inputs may be nil; missing signals simply contribute no
// evidence.
func Classify(pred model.Prediction, fm *forensics.Metrics, mm *multimodal.Metrics, ts *timeline.Stats, cfg Config) Assessment {
	cfg = cfg.withDefaults()
	scores := map[Type]float64{
		TypeAuthentic:   0,
		TypeFaceSwap:    0,
		TypeReenactment: 0,
		TypeLipSync:     0,
		TypeUnknown:     0,
	}
	var evidence []string

	if pred.Label == "REAL" && pred.Confidence > cfg.RealConfidenceMin {
		scores[TypeAuthentic] += 50
		evidence = append(evidence, fmt.Sprintf("classifier verdict REAL at %.0f%% confidence", pred.Confidence))
	}

	if fm != nil {
		if fm.FaceConsistency < cfg.FaceConsistencyMax {
			scores[TypeFaceSwap] += 25
			evidence = append(evidence, fmt.Sprintf("face region inconsistency (%.0f/100) indicates identity replacement", fm.FaceConsistency))
		} else {
			scores[TypeAuthentic] += 15
		}
		if fm.StabilityScore < cfg.StabilityMax {
			scores[TypeFaceSwap] += 15
			scores[TypeReenactment] += 10
			evidence = append(evidence, fmt.Sprintf("temporal instability (%.0f/100) typical of frame-wise generation", fm.StabilityScore))
		}
		if fm.BlinkScore < cfg.BlinkScoreMax {
			scores[TypeFaceSwap] += 20
			scores[TypeReenactment] += 15
			evidence = append(evidence, fmt.Sprintf("abnormal blink pattern (%.1f/min)", fm.BlinkRatePerMin))
		}
		artifacts := (fm.BlockinessScore + fm.FrequencyScore) / 2
		if artifacts > cfg.ArtifactScoreMin {
			scores[TypeFaceSwap] += 10
			scores[TypeUnknown] += 5
			evidence = append(evidence, fmt.Sprintf("elevated compression and frequency artifacts (%.0f/100)", artifacts))
		}
	}

	if mm != nil {
		if mm.LipSync != nil {
			if mm.LipSync.SyncScore < cfg.SyncScoreMax {
				scores[TypeLipSync] += 35
				evidence = append(evidence, fmt.Sprintf("poor audio-visual synchronization (%.0f/100)", mm.LipSync.SyncScore))
			}
			if mm.LipSync.Correlation < cfg.CorrelationMax {
				scores[TypeLipSync] += 25
				evidence = append(evidence, fmt.Sprintf("weak mouth-to-audio correlation (%.2f)", mm.LipSync.Correlation))
			}
		}
		if mm.AudioValid && mm.SpoofScore > cfg.SpoofScoreMin {
			scores[TypeLipSync] += 20
			evidence = append(evidence, fmt.Sprintf("synthetic voice characteristics (spoof score %.0f/100)", mm.SpoofScore))
		}
	}

	if ts != nil {
		if ts.TemporalVariance > cfg.TemporalVarianceMin {
			scores[TypeReenactment] += 15
			evidence = append(evidence, fmt.Sprintf("unstable per-frame verdicts (variance %.2f)", ts.TemporalVariance))
		}
		if ts.AnomalyRatio > cfg.AnomalyRatioMin {
			scores[TypeFaceSwap] += 10
			scores[TypeReenactment] += 10
			evidence = append(evidence, fmt.Sprintf("frequent probability anomalies (%.0f%% of frames)", ts.AnomalyRatio*100))
		}
		if ts.MeanFakeProb > cfg.MeanFakeProbMin {
			scores[TypeFaceSwap] += 10
			evidence = append(evidence, fmt.Sprintf("high mean fake probability (%.2f)", ts.MeanFakeProb))
		}
	}

	a := Assessment{Scores: scores, Evidence: evidence}
	a.Primary, a.Confidence = pickPrimary(pred, scores, cfg)
	a.Explanation = explanations[a.Primary]
	a.Recommendations = recommendations[a.Primary]
	return a
}

// pickPrimary selects the dominant type and a confidence for it.
func pickPrimary(pred model.Prediction, scores map[Type]float64, cfg Config) (Type, float64) {
	if pred.Label == "REAL" && pred.Confidence > cfg.RealConfidenceMin && scores[TypeAuthentic] > cfg.AuthenticScoreMin {
		return TypeAuthentic, math.Min(95, pred.Confidence)
	}

	fakeTypes := []Type{TypeFaceSwap, TypeReenactment, TypeLipSync, TypeUnknown}
	total := 0.0
	best := TypeUnknown
	bestScore := 0.0
	for _, t := range fakeTypes {
		total += scores[t]
		if scores[t] > bestScore {
			bestScore = scores[t]
			best = t
		}
	}
	if total == 0 {
		return TypeUnknown, 40
	}

	confidence := bestScore / total * 100
	if bestScore < cfg.WeakEvidenceMax {
		return TypeUnknown, math.Min(50, confidence)
	}
	return best, math.Min(95, confidence)
}

var explanations = map[Type]string{
	TypeAuthentic:   "The video shows the consistency, blink cadence and audio-visual alignment expected of unmanipulated footage.",
	TypeFaceSwap:    "Evidence points to identity replacement: the face region drifts in appearance and geometry while the surrounding frame stays stable.",
	TypeReenactment: "Evidence points to expression or motion transfer: the identity is stable but motion and per-frame verdicts fluctuate abnormally.",
	TypeLipSync:     "Evidence points to audio-driven mouth resynthesis: mouth motion does not track the audio energy and the voice shows synthetic characteristics.",
	TypeUnknown:     "The signals conflict or are too weak to attribute a specific manipulation technique.",
}

var recommendations = map[Type][]string{
	TypeAuthentic: {
		"No action required based on this analysis.",
		"Re-run analysis if a higher-quality source becomes available.",
	},
	TypeFaceSwap: {
		"Inspect face boundary regions in the saliency overlays.",
		"Compare the subject's face against verified reference footage.",
		"Check metadata and provenance of the source file.",
	},
	TypeReenactment: {
		"Review flagged timeline segments for unnatural motion.",
		"Compare gesture and head-pose patterns against verified footage of the subject.",
	},
	TypeLipSync: {
		"Review the flagged audio-visual mismatch regions.",
		"Obtain a voice sample for speaker verification.",
		"Inspect mouth region closeups in the saliency overlays.",
	},
	TypeUnknown: {
		"Obtain a higher-quality copy of the video if possible.",
		"Treat the content with caution until corroborated by other sources.",
	},
}
