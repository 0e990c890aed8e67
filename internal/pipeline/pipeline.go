// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package pipeline orchestrates a full analysis: decoding, classifier
// consultation, the forensic analyzers, saliency rendering and the fused
// threat verdict.
//
// The pipeline degrades rather than fails: every stage that cannot run
// contributes a neutral result and a reason. The only fatal error is input
// video that cannot be decoded at all.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verascope/verascope/internal/facedet"
	"github.com/verascope/verascope/internal/faketype"
	"github.com/verascope/verascope/internal/forensics"
	"github.com/verascope/verascope/internal/gradcam"
	"github.com/verascope/verascope/internal/logging"
	"github.com/verascope/verascope/internal/media"
	"github.com/verascope/verascope/internal/metrics"
	"github.com/verascope/verascope/internal/model"
	"github.com/verascope/verascope/internal/multimodal"
	"github.com/verascope/verascope/internal/threat"
	"github.com/verascope/verascope/internal/timeline"
)

// Config aggregates all analyzer settings.
type Config struct {
	// OverlayDir is where saliency overlays are written.
	OverlayDir string                `koanf:"overlay_dir" json:"overlay_dir"`
	Extractor  media.ExtractorConfig `koanf:"extractor" json:"extractor"`
	Forensics  forensics.Config      `koanf:"forensics" json:"forensics"`
	Multimodal multimodal.Config     `koanf:"multimodal" json:"multimodal"`
	Timeline   timeline.Config       `koanf:"timeline" json:"timeline"`
	GradCAM    gradcam.Config        `koanf:"gradcam" json:"gradcam"`
	FakeType   faketype.Config       `koanf:"faketype" json:"faketype"`
	Threat     threat.Config         `koanf:"threat" json:"threat"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		OverlayDir: "overlays",
		Extractor:  media.DefaultExtractorConfig(),
		Forensics:  forensics.DefaultConfig(),
		Multimodal: multimodal.DefaultConfig(),
		Timeline:   timeline.DefaultConfig(),
		GradCAM:    gradcam.DefaultConfig(),
		FakeType:   faketype.DefaultConfig(),
		Threat:     threat.DefaultConfig(),
	}
}

// Result is the complete output of one analysis.
type Result struct {
	ID         string               `json:"id"`
	VideoPath  string               `json:"video_path"`
	Prediction model.Prediction     `json:"prediction"`
	Forensics  *forensics.Metrics   `json:"forensics,omitempty"`
	Multimodal *multimodal.Metrics  `json:"multimodal,omitempty"`
	Timeline   *timeline.Timeline   `json:"timeline,omitempty"`
	// TimelineChart is the chart-ready projection of Timeline for the
	// dashboard.
	TimelineChart *timeline.Chart      `json:"timeline_chart,omitempty"`
	FakeType      *faketype.Assessment `json:"fake_type,omitempty"`
	Threat        *threat.Assessment   `json:"threat,omitempty"`
	// OverlayPaths are the saliency overlay images written for this
	// analysis, in frame order.
	OverlayPaths []string `json:"overlay_paths,omitempty"`
	// Degraded lists stages that fell back to neutral results, with the
	// reason.
	Degraded    []string  `json:"degraded,omitempty"`
	FrameCount  int       `json:"frame_count"`
	FPS         float64   `json:"fps"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMS  float64   `json:"duration_ms"`
}

// FrameExtractor decodes frames and audio from a video file.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath string) ([]media.Frame, float64, error)
	ExtractAudio(ctx context.Context, videoPath string) (*media.Audio, error)
}

// Pipeline wires the stages together. Safe for concurrent use; analyzer
// state is created per call.
type Pipeline struct {
	cfg       Config
	extractor FrameExtractor
	predictor model.Predictor
	backbone  model.Backbone
	faces     facedet.FaceDetector
	eyes      facedet.EyeDetector
}

// New builds a pipeline. predictor and backbone may both be nil; the
// classifier-backed and saliency stages then degrade instead of running.
func New(cfg Config, extractor FrameExtractor, predictor model.Predictor, backbone model.Backbone) *Pipeline {
	detector := facedet.NewHeuristicDetector()
	return &Pipeline{
		cfg:       cfg,
		extractor: extractor,
		predictor: predictor,
		backbone:  backbone,
		faces:     detector,
		eyes:      detector,
	}
}

// Analyze runs the full pipeline on one video. Only an undecodable input
// yields an error; every other failure degrades the affected stage.
func (p *Pipeline) Analyze(ctx context.Context, videoPath string) (*Result, error) {
	start := time.Now()
	result := &Result{
		ID:        uuid.New().String(),
		VideoPath: videoPath,
		StartedAt: start,
	}
	log := logging.With().Str("analysis_id", result.ID).Str("video", videoPath).Logger()
	log.Info().Msg("starting analysis")

	frames, fps, err := p.extractor.ExtractFrames(ctx, videoPath)
	if err != nil {
		metrics.RecordAnalysis(time.Since(start), err)
		return nil, fmt.Errorf("extracting frames: %w", err)
	}
	result.FrameCount = len(frames)
	result.FPS = fps

	audio, err := p.extractor.ExtractAudio(ctx, videoPath)
	if err != nil {
		result.degrade("audio", err.Error())
		audio = nil
	}

	result.Prediction = p.predictStage(ctx, videoPath, result)
	logits, timestamps := p.logitsStage(ctx, videoPath, result)

	p.runStage("forensics", result, func() {
		analyzer := forensics.New(p.cfg.Forensics, p.faces, p.eyes)
		m := analyzer.AnalyzeFrames(frames, fps)
		result.Forensics = &m
	})

	p.runStage("multimodal", result, func() {
		analyzer := multimodal.New(p.cfg.Multimodal, p.faces)
		m := analyzer.Analyze(audio, frames, fps)
		result.Multimodal = &m
	})

	p.runStage("timeline", result, func() {
		if logits == nil {
			result.degrade("timeline", "no per-frame logits available")
			return
		}
		tl := timeline.Build(logits, timestamps, fps, p.cfg.Timeline)
		result.Timeline = &tl
		chart := tl.Chart()
		result.TimelineChart = &chart
	})

	p.runStage("gradcam", result, func() {
		if p.backbone == nil {
			result.degrade("gradcam", "no backbone configured for saliency")
			return
		}
		explainer := gradcam.New(p.backbone, p.cfg.GradCAM)
		paths, err := explainer.WriteOverlays(ctx, frames, p.cfg.OverlayDir, result.ID)
		if err != nil {
			result.degrade("gradcam", err.Error())
			return
		}
		result.OverlayPaths = paths
	})

	p.runStage("faketype", result, func() {
		var tlStats *timeline.Stats
		if result.Timeline != nil {
			tlStats = &result.Timeline.Stats
		}
		a := faketype.Classify(result.Prediction, result.Forensics, result.Multimodal, tlStats, p.cfg.FakeType)
		result.FakeType = &a
	})

	p.runStage("threat", result, func() {
		var tlStats *timeline.Stats
		if result.Timeline != nil {
			tlStats = &result.Timeline.Stats
		}
		a := threat.Assess(result.Prediction, result.Forensics, result.Multimodal, tlStats, result.FakeType, p.cfg.Threat)
		result.Threat = &a
	})

	result.CompletedAt = time.Now()
	result.DurationMS = float64(result.CompletedAt.Sub(start).Microseconds()) / 1000
	metrics.RecordAnalysis(result.CompletedAt.Sub(start), nil)

	log.Info().
		Int("frames", result.FrameCount).
		Float64("duration_ms", result.DurationMS).
		Int("degraded_stages", len(result.Degraded)).
		Msg("analysis complete")
	return result, nil
}

// predictStage consults the classifier for the whole-video verdict,
// degrading to UNKNOWN on failure.
func (p *Pipeline) predictStage(ctx context.Context, videoPath string, result *Result) model.Prediction {
	if p.predictor == nil {
		result.degrade("prediction", "no classifier configured")
		return model.Prediction{Label: "UNKNOWN", Confidence: 0}
	}
	pred, err := p.predictor.Predict(ctx, videoPath)
	if err != nil {
		result.degrade("prediction", err.Error())
		return model.Prediction{Label: "UNKNOWN", Confidence: 0}
	}
	return pred
}

// logitsStage fetches per-frame logits, degrading to nil on failure.
func (p *Pipeline) logitsStage(ctx context.Context, videoPath string, result *Result) ([]model.Logits, []float64) {
	if p.predictor == nil {
		return nil, nil
	}
	logits, timestamps, err := p.predictor.FrameLogits(ctx, videoPath)
	if err != nil {
		result.degrade("frame_logits", err.Error())
		return nil, nil
	}
	return logits, timestamps
}

// runStage times a stage and records its metrics.
func (p *Pipeline) runStage(name string, result *Result, fn func()) {
	before := len(result.Degraded)
	start := time.Now()
	fn()
	metrics.RecordStage(name, time.Since(start), len(result.Degraded) > before)
}

func (r *Result) degrade(stage, reason string) {
	r.Degraded = append(r.Degraded, fmt.Sprintf("%s: %s", stage, reason))
	logging.Warn().Str("stage", stage).Str("reason", reason).Str("analysis_id", r.ID).Msg("stage degraded")
}
