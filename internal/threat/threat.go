// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package threat fuses every analysis signal into a single risk score and a
// tiered threat level with actionable recommendations.
package threat

import (
	"fmt"
	"math"
	"sort"

	"github.com/verascope/verascope/internal/dsp"
	"github.com/verascope/verascope/internal/faketype"
	"github.com/verascope/verascope/internal/forensics"
	"github.com/verascope/verascope/internal/model"
	"github.com/verascope/verascope/internal/multimodal"
	"github.com/verascope/verascope/internal/timeline"
)

// Level is a coarse risk tier.
type Level string

const (
	LevelSafe       Level = "safe"
	LevelSuspicious Level = "suspicious"
	LevelHighRisk   Level = "high_risk"
	LevelCritical   Level = "critical"
	// LevelUnknown is assigned when neither the classifier nor any analyzer
	// produced a usable signal.
	LevelUnknown Level = "unknown"
)

// Component names in the fused score.
const (
	ComponentModel     = "model_confidence"
	ComponentForensics = "forensics_score"
	ComponentAudio     = "audio_score"
	ComponentTemporal  = "temporal_score"
	ComponentFakeType  = "fake_type_score"
)

// Weights control the contribution of each component. They are renormalized
// to sum to 1 before use, so callers can express relative importance.
type Weights struct {
	Model     float64 `koanf:"model" json:"model"`
	Forensics float64 `koanf:"forensics" json:"forensics"`
	Audio     float64 `koanf:"audio" json:"audio"`
	Temporal  float64 `koanf:"temporal" json:"temporal"`
	FakeType  float64 `koanf:"fake_type" json:"fake_type"`
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{
		Model:     0.35,
		Forensics: 0.25,
		Audio:     0.15,
		Temporal:  0.15,
		FakeType:  0.10,
	}
}

// Config holds the fusion weights and the level cut points. Zero cut points
// fall back to the defaults.
type Config struct {
	Weights Weights `koanf:"weights" json:"weights"`
	// SafeMax, SuspiciousMax and HighRiskMax are the inclusive upper score
	// bounds of the first three levels; anything above HighRiskMax is
	// critical.
	SafeMax       float64 `koanf:"safe_max" json:"safe_max"`
	SuspiciousMax float64 `koanf:"suspicious_max" json:"suspicious_max"`
	HighRiskMax   float64 `koanf:"high_risk_max" json:"high_risk_max"`
}

// DefaultConfig returns the production weights and level boundaries.
func DefaultConfig() Config {
	return Config{
		Weights:       DefaultWeights(),
		SafeMax:       25,
		SuspiciousMax: 55,
		HighRiskMax:   80,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SafeMax <= 0 {
		c.SafeMax = def.SafeMax
	}
	if c.SuspiciousMax <= c.SafeMax {
		c.SuspiciousMax = def.SuspiciousMax
	}
	if c.HighRiskMax <= c.SuspiciousMax {
		c.HighRiskMax = def.HighRiskMax
	}
	return c
}

func (w Weights) normalized() Weights {
	sum := w.Model + w.Forensics + w.Audio + w.Temporal + w.FakeType
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Model:     w.Model / sum,
		Forensics: w.Forensics / sum,
		Audio:     w.Audio / sum,
		Temporal:  w.Temporal / sum,
		FakeType:  w.FakeType / sum,
	}
}

// Assessment is the fused threat verdict.
type Assessment struct {
	Level Level `json:"level"`
	// Score is 0-100, higher meaning more dangerous.
	Score float64 `json:"score"`
	// Confidence is 0-100 and grows with the amount of available signal.
	Confidence        float64            `json:"confidence"`
	Components        map[string]float64 `json:"components"`
	RiskFactors       []string           `json:"risk_factors"`
	MitigatingFactors []string           `json:"mitigating_factors"`
	Explanation       string             `json:"explanation"`
	Recommendations   []string           `json:"recommendations"`
	// Color is the display color for the level.
	Color string `json:"color"`
}

// Assess fuses the analysis outputs into a threat assessment. Any of the
// analysis inputs may be nil; missing components contribute a neutral 50.
// When every input is missing the level is unknown rather than suspicious.
func Assess(pred model.Prediction, fm *forensics.Metrics, mm *multimodal.Metrics, ts *timeline.Stats, ft *faketype.Assessment, cfg Config) Assessment {
	cfg = cfg.withDefaults()
	w := cfg.Weights.normalized()

	components := map[string]float64{}
	var risks, mitigating []string

	// Each component is a 0-100 danger contribution.
	switch pred.Label {
	case "FAKE":
		components[ComponentModel] = pred.Confidence
		if pred.Confidence > 80 {
			risks = append(risks, fmt.Sprintf("Classifier labeled the video FAKE at %.0f%% confidence", pred.Confidence))
		}
	case "REAL":
		components[ComponentModel] = 100 - pred.Confidence
		if pred.Confidence > 80 {
			mitigating = append(mitigating, fmt.Sprintf("Classifier labeled the video REAL at %.0f%% confidence", pred.Confidence))
		}
	default:
		components[ComponentModel] = 50
	}

	if fm != nil {
		components[ComponentForensics] = 100 - fm.Overall
		if fm.Overall < 50 {
			risks = append(risks, fmt.Sprintf("Visual forensics flagged multiple inconsistencies (%.0f/100)", fm.Overall))
		} else if fm.Overall > 75 {
			mitigating = append(mitigating, "Visual forensics are consistent with authentic footage")
		}
	} else {
		components[ComponentForensics] = 50
	}

	if mm != nil {
		components[ComponentAudio] = 100 - mm.CombinedScore
		if mm.CombinedScore < 40 {
			risks = append(risks, fmt.Sprintf("Audio-visual analysis indicates manipulation (%.0f/100)", mm.CombinedScore))
		} else if mm.AudioValid && mm.CombinedScore > 70 {
			mitigating = append(mitigating, "Audio and mouth motion are well synchronized")
		}
	} else {
		components[ComponentAudio] = 50
	}

	if ts != nil {
		components[ComponentTemporal] = ts.MeanFakeProb*100*0.6 + (100-ts.Consistency)*0.4
		if ts.AnomalyCount > 0 {
			risks = append(risks, fmt.Sprintf("%d sudden verdict shifts across the timeline", ts.AnomalyCount))
		}
	} else {
		components[ComponentTemporal] = 50
	}

	if ft != nil {
		switch ft.Primary {
		case faketype.TypeAuthentic:
			components[ComponentFakeType] = math.Max(0, 100-ft.Confidence)
		case faketype.TypeUnknown:
			components[ComponentFakeType] = 50
			risks = append(risks, "Unable to determine manipulation type with confidence")
		default:
			components[ComponentFakeType] = ft.Confidence
			risks = append(risks, fmt.Sprintf("Manipulation technique identified as %s", ft.Primary))
		}
	} else {
		components[ComponentFakeType] = 50
	}

	score := dsp.Clamp(
		components[ComponentModel]*w.Model+
			components[ComponentForensics]*w.Forensics+
			components[ComponentAudio]*w.Audio+
			components[ComponentTemporal]*w.Temporal+
			components[ComponentFakeType]*w.FakeType,
		0, 100)

	level := levelOf(score, cfg)
	if pred.Label != "FAKE" && pred.Label != "REAL" && fm == nil && mm == nil && ts == nil && ft == nil {
		level = LevelUnknown
	}
	a := Assessment{
		Level:             level,
		Score:             score,
		Confidence:        confidenceOf(fm, mm, ts),
		Components:        components,
		RiskFactors:       risks,
		MitigatingFactors: mitigating,
		Explanation:       explanationOf(level, components, risks),
		Recommendations:   recommendations[level],
		Color:             colors[level],
	}
	return a
}

func levelOf(score float64, cfg Config) Level {
	switch {
	case score <= cfg.SafeMax:
		return LevelSafe
	case score <= cfg.SuspiciousMax:
		return LevelSuspicious
	case score <= cfg.HighRiskMax:
		return LevelHighRisk
	default:
		return LevelCritical
	}
}

// confidenceOf grows with the amount of signal backing the verdict.
func confidenceOf(fm *forensics.Metrics, mm *multimodal.Metrics, ts *timeline.Stats) float64 {
	confidence := 60.0
	if fm != nil {
		confidence += 15
		if fm.FrameCount > 50 {
			confidence += 5
		}
	}
	if mm != nil {
		confidence += 10
		if mm.AudioValid {
			confidence += 5
		}
	}
	if ts != nil {
		confidence += 5
	}
	return math.Min(95, confidence)
}

// explanationOf names the dominant component and up to three risk factors.
func explanationOf(level Level, components map[string]float64, risks []string) string {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if components[names[i]] != components[names[j]] {
			return components[names[i]] > components[names[j]]
		}
		return names[i] < names[j]
	})

	text := fmt.Sprintf("%s The strongest signal is %s.", levelSummaries[level], names[0])
	limit := len(risks)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		text += " " + risks[i] + "."
	}
	return text
}

var levelSummaries = map[Level]string{
	LevelSafe:       "The video shows no significant signs of manipulation.",
	LevelSuspicious: "The video shows some irregular signals that warrant a closer look.",
	LevelHighRisk:   "The video shows strong indicators of synthetic manipulation.",
	LevelCritical:   "The video is almost certainly manipulated.",
	LevelUnknown:    "There is not enough signal to judge the video either way.",
}

var recommendations = map[Level][]string{
	LevelSafe: {
		"No action required.",
		"Archive the analysis report for provenance.",
	},
	LevelSuspicious: {
		"Review the flagged timeline segments manually.",
		"Seek corroborating sources before sharing.",
	},
	LevelHighRisk: {
		"Do not share this content without verification.",
		"Escalate to a human reviewer.",
		"Request the original source file for deeper analysis.",
	},
	LevelCritical: {
		"BLOCK: Do not publish or distribute this content",
		"Escalate to the incident response team immediately.",
		"Preserve the file and analysis artifacts as evidence.",
	},
	LevelUnknown: {
		"Seek additional analysis from specialized tools.",
		"Request a manual expert review.",
		"Do not use the content until it is verified.",
	},
}

var colors = map[Level]string{
	LevelSafe:       "#28a745",
	LevelSuspicious: "#ffc107",
	LevelHighRisk:   "#fd7e14",
	LevelCritical:   "#dc3545",
	LevelUnknown:    "#6c757d",
}
