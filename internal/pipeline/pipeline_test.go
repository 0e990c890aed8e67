// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/verascope/verascope/internal/imgproc"
	"github.com/verascope/verascope/internal/media"
	"github.com/verascope/verascope/internal/model"
)

type fakeExtractor struct {
	frames   []media.Frame
	fps      float64
	audio    *media.Audio
	frameErr error
	audioErr error
}

func (f *fakeExtractor) ExtractFrames(context.Context, string) ([]media.Frame, float64, error) {
	if f.frameErr != nil {
		return nil, 0, f.frameErr
	}
	return f.frames, f.fps, nil
}

func (f *fakeExtractor) ExtractAudio(context.Context, string) (*media.Audio, error) {
	if f.audioErr != nil {
		return nil, f.audioErr
	}
	return f.audio, nil
}

type fakePredictor struct {
	pred       model.Prediction
	logits     []model.Logits
	predictErr error
	logitsErr  error
}

func (f *fakePredictor) Predict(context.Context, string) (model.Prediction, error) {
	if f.predictErr != nil {
		return model.Prediction{}, f.predictErr
	}
	return f.pred, nil
}

func (f *fakePredictor) FrameLogits(context.Context, string) ([]model.Logits, []float64, error) {
	if f.logitsErr != nil {
		return nil, nil, f.logitsErr
	}
	return f.logits, nil, nil
}

type fakeBackbone struct{}

func (fakeBackbone) Forward(_ context.Context, _ []float64, _, _ int) (model.Logits, *model.Capture, error) {
	const c, h, w = 1, 4, 4
	act := &model.Activation{Channels: c, H: h, W: w, Data: make([]float64, c*h*w)}
	grad := &model.Activation{Channels: c, H: h, W: w, Data: make([]float64, c*h*w)}
	act.Data[5] = 3
	for i := range grad.Data {
		grad.Data[i] = 0.5
	}
	return model.Logits{1, -1}, &model.Capture{Activations: act, Gradients: grad}, nil
}

func (fakeBackbone) Backward(context.Context, *model.Capture, int) error { return nil }

func syntheticFrames(n, w, h int) []media.Frame {
	frames := make([]media.Frame, n)
	for i := range frames {
		p := imgproc.NewPlane(w, h)
		for j := range p.Pix {
			p.Pix[j] = float64((j*31 + i) % 256)
		}
		frames[i] = media.Frame{Index: i, Gray: p, Width: w, Height: h, TimestampMS: float64(i) * 200}
	}
	return frames
}

func syntheticAudio() *media.Audio {
	samples := make([]float64, 32000)
	for i := range samples {
		samples[i] = 0.7 * math.Sin(2*math.Pi*125*float64(i)/16000)
	}
	return &media.Audio{SampleRate: 16000, Samples: samples}
}

func testPipeline(t *testing.T, ext *fakeExtractor, pred *fakePredictor, backbone model.Backbone) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OverlayDir = t.TempDir()
	cfg.GradCAM.MaxFrames = 2
	return New(cfg, ext, pred, backbone)
}

func TestAnalyzeFullRun(t *testing.T) {
	logits := make([]model.Logits, 10)
	for i := range logits {
		logits[i] = model.Logits{2, -2}
	}
	ext := &fakeExtractor{frames: syntheticFrames(10, 64, 64), fps: 5, audio: syntheticAudio()}
	pred := &fakePredictor{pred: model.Prediction{Label: "FAKE", Confidence: 88}, logits: logits}

	p := testPipeline(t, ext, pred, fakeBackbone{})
	result, err := p.Analyze(context.Background(), "video.mp4")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.ID == "" {
		t.Error("missing analysis ID")
	}
	if result.FrameCount != 10 || result.FPS != 5 {
		t.Errorf("frames/fps = %d/%g, want 10/5", result.FrameCount, result.FPS)
	}
	if result.Forensics == nil || result.Multimodal == nil || result.Timeline == nil ||
		result.FakeType == nil || result.Threat == nil {
		t.Fatalf("missing sections: %+v", result)
	}
	if len(result.Timeline.Frames) != 10 {
		t.Errorf("timeline frames = %d, want 10", len(result.Timeline.Frames))
	}
	if result.TimelineChart == nil || len(result.TimelineChart.Labels) != 10 {
		t.Errorf("timeline chart missing or wrong length: %+v", result.TimelineChart)
	}
	if len(result.OverlayPaths) != 2 {
		t.Errorf("overlays = %d, want 2 (frame cap)", len(result.OverlayPaths))
	}
	if len(result.Degraded) != 0 {
		t.Errorf("unexpected degradations: %v", result.Degraded)
	}
	if result.Prediction.Label != "FAKE" {
		t.Errorf("prediction label = %s, want FAKE", result.Prediction.Label)
	}
	if result.DurationMS <= 0 {
		t.Error("duration not recorded")
	}
}

func TestAnalyzeUnreadableInputFails(t *testing.T) {
	ext := &fakeExtractor{frameErr: media.ErrUnreadableInput}
	p := testPipeline(t, ext, &fakePredictor{}, nil)

	_, err := p.Analyze(context.Background(), "missing.mp4")
	if !errors.Is(err, media.ErrUnreadableInput) {
		t.Fatalf("error = %v, want ErrUnreadableInput", err)
	}
}

func TestAnalyzeDegradesGracefully(t *testing.T) {
	ext := &fakeExtractor{
		frames:   syntheticFrames(5, 64, 64),
		fps:      5,
		audioErr: errors.New("audio decoder crashed"),
	}
	pred := &fakePredictor{
		predictErr: errors.New("classifier offline"),
		logitsErr:  errors.New("classifier offline"),
	}

	p := testPipeline(t, ext, pred, nil)
	result, err := p.Analyze(context.Background(), "video.mp4")
	if err != nil {
		t.Fatalf("Analyze should degrade, not fail: %v", err)
	}

	if result.Prediction.Label != "UNKNOWN" {
		t.Errorf("prediction = %s, want UNKNOWN fallback", result.Prediction.Label)
	}
	if result.Timeline != nil || result.TimelineChart != nil {
		t.Error("timeline and chart should be absent without logits")
	}
	// Forensics still runs on the frames
	if result.Forensics == nil {
		t.Error("forensics should still run")
	}
	// Multimodal degrades to neutral without audio
	if result.Multimodal == nil || result.Multimodal.AudioValid {
		t.Error("multimodal should run with invalid audio")
	}
	if result.Threat == nil || result.FakeType == nil {
		t.Error("verdict stages should still run")
	}

	wantStages := []string{"audio", "prediction", "frame_logits", "timeline", "gradcam"}
	for _, stage := range wantStages {
		found := false
		for _, d := range result.Degraded {
			if strings.HasPrefix(d, stage+":") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected degradation for stage %q, got %v", stage, result.Degraded)
		}
	}
}

func TestAnalyzeIsRepeatable(t *testing.T) {
	logits := []model.Logits{{1, -1}, {1, -1}, {1, -1}, {1, -1}, {1, -1}}
	mk := func() *Pipeline {
		ext := &fakeExtractor{frames: syntheticFrames(5, 64, 64), fps: 5, audio: syntheticAudio()}
		pred := &fakePredictor{pred: model.Prediction{Label: "FAKE", Confidence: 70}, logits: logits}
		return testPipeline(t, ext, pred, nil)
	}

	a, err := mk().Analyze(context.Background(), "v.mp4")
	if err != nil {
		t.Fatal(err)
	}
	b, err := mk().Analyze(context.Background(), "v.mp4")
	if err != nil {
		t.Fatal(err)
	}

	if a.Forensics.Overall != b.Forensics.Overall {
		t.Errorf("forensics differ: %g vs %g", a.Forensics.Overall, b.Forensics.Overall)
	}
	if a.Threat.Score != b.Threat.Score {
		t.Errorf("threat scores differ: %g vs %g", a.Threat.Score, b.Threat.Score)
	}
	if a.Multimodal.CombinedScore != b.Multimodal.CombinedScore {
		t.Errorf("multimodal scores differ: %g vs %g", a.Multimodal.CombinedScore, b.Multimodal.CombinedScore)
	}
}
