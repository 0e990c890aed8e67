// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package multimodal

import (
	"math"
	"testing"

	"github.com/verascope/verascope/internal/facedet"
	"github.com/verascope/verascope/internal/imgproc"
	"github.com/verascope/verascope/internal/media"
)

type mockFaceDetector struct {
	rect  facedet.Rect
	found bool
}

func (m *mockFaceDetector) DetectFace(*imgproc.Plane) (facedet.Rect, bool) {
	return m.rect, m.found
}

// tone generates a pure sinusoid. 125 Hz divides the 16 kHz rate evenly so
// the zero-crossing period is exact.
func tone(freq float64, rate, n int) *media.Audio {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return &media.Audio{SampleRate: rate, Samples: samples}
}

func TestPitchTrackPureTone(t *testing.T) {
	audio := tone(125, 16000, 32000)
	mean, std, score := pitchTrack(audio.Samples, audio.SampleRate, DefaultConfig())

	if math.Abs(mean-125) > 125*0.05 {
		t.Errorf("pitch mean = %g Hz, want within 5%% of 125", mean)
	}
	if std > 5 {
		t.Errorf("pitch std = %g, want near zero for a pure tone", std)
	}
	// A perfectly flat contour is suspicious
	if score < 70 {
		t.Errorf("flat pitch contour should score >= 70, got %g", score)
	}
}

func TestPitchTrackSilence(t *testing.T) {
	silence := make([]float64, 16000)
	mean, std, score := pitchTrack(silence, 16000, DefaultConfig())
	if mean != 0 || std != 0 || score != 50 {
		t.Errorf("got (%g, %g, %g), want neutral (0, 0, 50)", mean, std, score)
	}
}

func TestJitterPureTone(t *testing.T) {
	audio := tone(125, 16000, 32000)
	jitter, score := jitterOf(audio.Samples)

	if jitter > 0.001 {
		t.Errorf("pure tone jitter = %g, want < 0.001", jitter)
	}
	// Machine-perfect periodicity is itself a spoof signal
	if score < 75 {
		t.Errorf("near-zero jitter should score >= 75, got %g", score)
	}
}

func TestJitterTooFewCrossings(t *testing.T) {
	flat := []float64{0.1, 0.2, 0.3, 0.2, 0.1}
	jitter, score := jitterOf(flat)
	if jitter != 0 || score != 50 {
		t.Errorf("got (%g, %g), want neutral (0, 50)", jitter, score)
	}
}

func TestEnergyProfile(t *testing.T) {
	// First half silent, second half loud
	samples := make([]float64, 1000)
	for i := 500; i < 1000; i++ {
		samples[i] = 0.9
	}
	profile := energyProfile(samples, 50)
	if len(profile) != 50 {
		t.Fatalf("profile length = %d, want 50", len(profile))
	}
	if profile[0] != 0 {
		t.Errorf("silent segment energy = %g, want 0", profile[0])
	}
	if profile[49] < 0.8 {
		t.Errorf("loud segment energy = %g, want ~0.9", profile[49])
	}
}

func TestAnalyzeWithoutAudio(t *testing.T) {
	a := New(DefaultConfig(), &mockFaceDetector{})
	m := a.Analyze(nil, nil, 5)

	if m.AudioValid {
		t.Error("nil audio should not be valid")
	}
	if m.SpoofScore != 50 {
		t.Errorf("spoof score = %g, want neutral 50", m.SpoofScore)
	}
	if m.CombinedScore != 50 {
		t.Errorf("combined score = %g, want neutral 50", m.CombinedScore)
	}
	if m.Confidence != 30 {
		t.Errorf("confidence = %g, want 30 without audio", m.Confidence)
	}
	if len(m.Reasons) == 0 {
		t.Error("expected degradation reasons")
	}
	if m.Audio != nil || m.LipSync != nil {
		t.Error("features should be nil without audio")
	}
}

func TestAnalyzeWithAudio(t *testing.T) {
	a := New(DefaultConfig(), &mockFaceDetector{rect: facedet.Rect{X: 10, Y: 10, W: 60, H: 60}, found: true})

	frames := make([]media.Frame, 20)
	for i := range frames {
		p := imgproc.NewPlane(96, 96)
		// Alternate mouth-region brightness to simulate motion
		if i%2 == 0 {
			for j := range p.Pix {
				p.Pix[j] = 200
			}
		}
		frames[i] = media.Frame{Index: i, Gray: p, Width: 96, Height: 96}
	}

	m := a.Analyze(tone(125, 16000, 64000), frames, 5)
	if !m.AudioValid {
		t.Fatal("tone should be valid audio")
	}
	if m.Audio == nil || m.LipSync == nil {
		t.Fatal("expected both feature sets")
	}
	if m.Confidence != 80 {
		t.Errorf("confidence = %g, want 80 for valid audio with few mouth samples", m.Confidence)
	}
	if m.CombinedScore < 0 || m.CombinedScore > 100 {
		t.Errorf("combined score %g outside [0, 100]", m.CombinedScore)
	}
}

func TestAnalyzeLipSyncPerfectCorrelation(t *testing.T) {
	// Mouth activity exactly tracks audio energy
	series := []float64{1, 3, 2, 5, 4, 6, 2, 1, 3, 5, 4, 2, 1, 6, 5, 3, 2, 4, 1, 5}
	f := analyzeLipSync(series, series, 5, DefaultConfig())

	if f.LagFrames != 0 {
		t.Errorf("lag = %d, want 0 for identical series", f.LagFrames)
	}
	if f.Correlation < 0.95 {
		t.Errorf("correlation = %g, want ~1", f.Correlation)
	}
	if f.SyncScore < 90 {
		t.Errorf("sync score = %g, want >= 90", f.SyncScore)
	}
}

func TestAnalyzeLipSyncEmptyMouth(t *testing.T) {
	f := analyzeLipSync([]float64{1, 2, 3}, nil, 5, DefaultConfig())
	if f.SyncScore != 50 || f.Correlation != 0 || f.LagFrames != 0 {
		t.Errorf("got %+v, want neutral features", f)
	}
}

func TestMouthCropNoFace(t *testing.T) {
	cfg := DefaultConfig()
	if got := mouthCrop(imgproc.NewPlane(64, 64), &mockFaceDetector{}, cfg); got != nil {
		t.Error("expected nil crop without a face")
	}
}
