// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package forensics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/verascope/verascope/internal/facedet"
	"github.com/verascope/verascope/internal/imgproc"
	"github.com/verascope/verascope/internal/media"
)

// mockFaceDetector returns a fixed face box.
type mockFaceDetector struct {
	rect  facedet.Rect
	found bool
}

func (m *mockFaceDetector) DetectFace(*imgproc.Plane) (facedet.Rect, bool) {
	return m.rect, m.found
}

// mockEyeDetector returns fixed eye boxes.
type mockEyeDetector struct {
	eyes []facedet.Rect
}

func (m *mockEyeDetector) DetectEyes(*imgproc.Plane) []facedet.Rect {
	return m.eyes
}

func noisyFrame(seed int64, w, h int) *imgproc.Plane {
	rng := rand.New(rand.NewSource(seed))
	p := imgproc.NewPlane(w, h)
	for i := range p.Pix {
		p.Pix[i] = rng.Float64() * 255
	}
	return p
}

func texturedFrame(w, h int) *imgproc.Plane {
	p := imgproc.NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(x, y, float64((x*7+y*13)%256))
		}
	}
	return p
}

func framesOf(planes ...*imgproc.Plane) []media.Frame {
	frames := make([]media.Frame, len(planes))
	for i, p := range planes {
		frames[i] = media.Frame{Index: i, Gray: p, Width: p.W, Height: p.H}
	}
	return frames
}

func TestStaticVideoIsStable(t *testing.T) {
	a := New(DefaultConfig(), &mockFaceDetector{}, &mockEyeDetector{})

	base := texturedFrame(128, 128)
	frames := framesOf(base, base.Clone(), base.Clone(), base.Clone(), base.Clone())
	m := a.AnalyzeFrames(frames, 5)

	if m.StabilityScore < 95 {
		t.Errorf("identical frames should score near-perfect stability, got %g", m.StabilityScore)
	}
	if m.FrameCount != 5 {
		t.Errorf("frame count = %d, want 5", m.FrameCount)
	}
}

func TestNoisyVideoIsLessStable(t *testing.T) {
	a := New(DefaultConfig(), &mockFaceDetector{}, &mockEyeDetector{})

	base := texturedFrame(128, 128)
	static := a.AnalyzeFrames(framesOf(base, base.Clone(), base.Clone(), base.Clone()), 5)

	a2 := New(DefaultConfig(), &mockFaceDetector{}, &mockEyeDetector{})
	noisy := a2.AnalyzeFrames(framesOf(
		noisyFrame(1, 128, 128),
		noisyFrame(2, 128, 128),
		noisyFrame(3, 128, 128),
		noisyFrame(4, 128, 128),
	), 5)

	if noisy.StabilityScore >= static.StabilityScore {
		t.Errorf("noise should reduce stability: noisy %g >= static %g",
			noisy.StabilityScore, static.StabilityScore)
	}
}

func TestScoreBounds(t *testing.T) {
	a := New(DefaultConfig(), facedet.NewHeuristicDetector(), facedet.NewHeuristicDetector())
	frames := framesOf(
		noisyFrame(10, 96, 96),
		noisyFrame(11, 96, 96),
		texturedFrame(96, 96),
		noisyFrame(12, 96, 96),
	)
	m := a.AnalyzeFrames(frames, 5)

	checks := map[string]float64{
		"face":      m.FaceConsistency,
		"blink":     m.BlinkScore,
		"stability": m.StabilityScore,
		"blockiness": m.BlockinessScore,
		"frequency": m.FrequencyScore,
		"overall":   m.Overall,
	}
	for name, v := range checks {
		if v < 0 || v > 100 {
			t.Errorf("%s score %g outside [0, 100]", name, v)
		}
		if math.IsNaN(v) {
			t.Errorf("%s score is NaN", name)
		}
	}
}

func TestAnalyzeFramesIsRepeatable(t *testing.T) {
	a := New(DefaultConfig(), facedet.NewHeuristicDetector(), facedet.NewHeuristicDetector())
	frames := framesOf(
		texturedFrame(128, 128),
		noisyFrame(7, 128, 128),
		texturedFrame(128, 128),
	)

	first := a.AnalyzeFrames(frames, 5)
	second := a.AnalyzeFrames(frames, 5)

	if first.Overall != second.Overall ||
		first.FaceConsistency != second.FaceConsistency ||
		first.StabilityScore != second.StabilityScore ||
		first.BlinkScore != second.BlinkScore {
		t.Errorf("repeated analysis differs: %+v vs %+v", first, second)
	}
}

func TestEmptyInputIsNeutral(t *testing.T) {
	a := New(DefaultConfig(), &mockFaceDetector{}, &mockEyeDetector{})
	m := a.AnalyzeFrames(nil, 5)

	if m.FrameCount != 0 {
		t.Errorf("frame count = %d, want 0", m.FrameCount)
	}
	if m.FaceConsistency != 100 {
		t.Errorf("face consistency = %g, want neutral 100", m.FaceConsistency)
	}
	if len(m.Reasons) == 0 {
		t.Error("expected a degradation reason for missing face detections")
	}
	if m.BlinkScore != 50 {
		t.Errorf("blink score = %g, want neutral 50", m.BlinkScore)
	}
	if m.StabilityScore != 100 {
		t.Errorf("stability = %g, want neutral 100", m.StabilityScore)
	}
}

func TestBlinkScore(t *testing.T) {
	open := 0.35
	closed := 0.1

	t.Run("counts separated blinks", func(t *testing.T) {
		var ears []float64
		// Three blinks of three closed frames each, spaced by open runs
		for b := 0; b < 3; b++ {
			for i := 0; i < 10; i++ {
				ears = append(ears, open)
			}
			for i := 0; i < 3; i++ {
				ears = append(ears, closed)
			}
		}
		ears = append(ears, open)
		count, _, _ := blinkScore(ears, 0.2, 2, 30)
		if count != 3 {
			t.Errorf("blink count = %d, want 3", count)
		}
	})

	t.Run("single closed frame is not a blink", func(t *testing.T) {
		ears := []float64{open, open, closed, open, open}
		count, _, _ := blinkScore(ears, 0.2, 2, 30)
		if count != 0 {
			t.Errorf("blink count = %d, want 0", count)
		}
	})

	t.Run("no blinks scores low", func(t *testing.T) {
		ears := make([]float64, 300)
		for i := range ears {
			ears[i] = open
		}
		_, rate, score := blinkScore(ears, 0.2, 2, 5)
		if rate != 0 {
			t.Errorf("rate = %g, want 0", rate)
		}
		if score > 0 {
			t.Errorf("zero blinks over a minute should score 0, got %g", score)
		}
	})

	t.Run("natural rate scores high", func(t *testing.T) {
		// 17 blinks over one minute at 5 fps = 300 frames
		var ears []float64
		for b := 0; b < 17; b++ {
			for i := 0; i < 14; i++ {
				ears = append(ears, open)
			}
			ears = append(ears, closed, closed)
		}
		for len(ears) < 300 {
			ears = append(ears, open)
		}
		_, rate, score := blinkScore(ears[:300], 0.2, 2, 5)
		if math.Abs(rate-17) > 1.5 {
			t.Errorf("rate = %g, want ~17", rate)
		}
		if score < 90 {
			t.Errorf("natural blink rate should score high, got %g", score)
		}
	})

	t.Run("empty series is neutral", func(t *testing.T) {
		count, rate, score := blinkScore(nil, 0.2, 2, 30)
		if count != 0 || rate != 0 || score != 50 {
			t.Errorf("got (%d, %g, %g), want (0, 0, 50)", count, rate, score)
		}
	})
}

func TestFaceConsistencyScore(t *testing.T) {
	t.Run("identical faces score high", func(t *testing.T) {
		hist := []float64{0.5, 0.5, 0.5, 0.5}
		hists := [][]float64{hist, hist, hist}
		widths := []float64{50, 50, 50}
		centers := [][2]float64{{64, 64}, {64, 64}, {64, 64}}
		score, reason := faceConsistencyScore(hists, widths, centers)
		if reason != "" {
			t.Errorf("unexpected reason %q", reason)
		}
		if score < 95 {
			t.Errorf("identical faces scored %g, want >= 95", score)
		}
	})

	t.Run("alternating dissimilar faces score low", func(t *testing.T) {
		a := []float64{0.9, 0.1, 0.0, 0.0}
		b := []float64{0.0, 0.0, 0.1, 0.9}
		hists := [][]float64{a, b, a, b}
		widths := []float64{50, 50, 50, 50}
		centers := [][2]float64{{64, 64}, {64, 64}, {64, 64}, {64, 64}}
		score, _ := faceConsistencyScore(hists, widths, centers)
		if score >= 50 {
			t.Errorf("alternating faces scored %g, want < 50", score)
		}
	})

	t.Run("erratic geometry scores lower", func(t *testing.T) {
		hist := []float64{0.5, 0.5, 0.5, 0.5}
		hists := [][]float64{hist, hist, hist, hist}
		stable, _ := faceConsistencyScore(hists,
			[]float64{50, 50, 50, 50},
			[][2]float64{{64, 64}, {64, 64}, {64, 64}, {64, 64}})
		erratic, _ := faceConsistencyScore(hists,
			[]float64{50, 90, 30, 75},
			[][2]float64{{64, 64}, {20, 100}, {110, 15}, {60, 60}})
		if erratic >= stable {
			t.Errorf("erratic geometry %g should score below stable %g", erratic, stable)
		}
	})

	t.Run("insufficient detections", func(t *testing.T) {
		score, reason := faceConsistencyScore(nil, nil, nil)
		if score != 100 || reason == "" {
			t.Errorf("got (%g, %q), want neutral score with reason", score, reason)
		}
	})
}

func TestBlockinessDetectsGrid(t *testing.T) {
	smooth := imgproc.NewPlane(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			smooth.Set(x, y, float64(x+y))
		}
	}

	blocky := imgproc.NewPlane(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			blocky.Set(x, y, float64(((x/8)*8+(y/8)*8)%256))
		}
	}

	if blockinessOf(blocky) <= blockinessOf(smooth) {
		t.Errorf("8x8 quantized image should be blockier: %g <= %g",
			blockinessOf(blocky), blockinessOf(smooth))
	}
}
