// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package faketype

import (
	"testing"

	"github.com/verascope/verascope/internal/forensics"
	"github.com/verascope/verascope/internal/model"
	"github.com/verascope/verascope/internal/multimodal"
	"github.com/verascope/verascope/internal/timeline"
)

func TestClassifyAuthentic(t *testing.T) {
	pred := model.Prediction{Label: "REAL", Confidence: 92}
	fm := &forensics.Metrics{
		FaceConsistency: 88,
		BlinkScore:      85,
		StabilityScore:  90,
		BlockinessScore: 10,
		FrequencyScore:  15,
	}
	a := Classify(pred, fm, nil, nil, DefaultConfig())

	if a.Primary != TypeAuthentic {
		t.Fatalf("primary = %s, want authentic", a.Primary)
	}
	if a.Confidence != 92 {
		t.Errorf("confidence = %g, want model confidence 92", a.Confidence)
	}
	if a.Explanation == "" || len(a.Recommendations) == 0 {
		t.Error("expected explanation and recommendations")
	}
}

func TestClassifyFaceSwap(t *testing.T) {
	pred := model.Prediction{Label: "FAKE", Confidence: 90}
	fm := &forensics.Metrics{
		FaceConsistency: 40, // +25 swap
		BlinkScore:      20, // +20 swap +15 reenact
		StabilityScore:  50, // +15 swap +10 reenact
		BlinkRatePerMin: 1,
	}
	ts := &timeline.Stats{MeanFakeProb: 0.9} // +10 swap
	a := Classify(pred, fm, nil, ts, DefaultConfig())

	if a.Primary != TypeFaceSwap {
		t.Fatalf("primary = %s, want gan_face_swap", a.Primary)
	}
	if a.Confidence <= 0 || a.Confidence > 95 {
		t.Errorf("confidence %g outside (0, 95]", a.Confidence)
	}
	if len(a.Evidence) == 0 {
		t.Error("expected evidence strings")
	}
	if a.Scores[TypeFaceSwap] <= a.Scores[TypeReenactment] {
		t.Error("face swap evidence should dominate")
	}
}

func TestClassifyLipSync(t *testing.T) {
	pred := model.Prediction{Label: "FAKE", Confidence: 80}
	mm := &multimodal.Metrics{
		AudioValid: true,
		SpoofScore: 75, // +20
		LipSync: &multimodal.LipSyncFeatures{
			SyncScore:   25,  // +35
			Correlation: 0.1, // +25
		},
	}
	a := Classify(pred, nil, mm, nil, DefaultConfig())

	if a.Primary != TypeLipSync {
		t.Fatalf("primary = %s, want lip_sync_manipulation", a.Primary)
	}
	if a.Scores[TypeLipSync] != 80 {
		t.Errorf("lip_sync score = %g, want 80", a.Scores[TypeLipSync])
	}
}

func TestClassifyNoEvidence(t *testing.T) {
	pred := model.Prediction{Label: "FAKE", Confidence: 60}
	a := Classify(pred, nil, nil, nil, DefaultConfig())

	if a.Primary != TypeUnknown {
		t.Fatalf("primary = %s, want unknown", a.Primary)
	}
	if a.Confidence != 40 {
		t.Errorf("confidence = %g, want 40 with zero evidence", a.Confidence)
	}
}

func TestClassifyWeakEvidenceIsUnknown(t *testing.T) {
	// Only artifact evidence: +10 swap, +5 unknown; max score below 20
	pred := model.Prediction{Label: "FAKE", Confidence: 60}
	fm := &forensics.Metrics{
		FaceConsistency: 80,
		BlinkScore:      80,
		StabilityScore:  80,
		BlockinessScore: 60,
		FrequencyScore:  60,
	}
	a := Classify(pred, fm, nil, nil, DefaultConfig())

	if a.Primary != TypeUnknown {
		t.Fatalf("primary = %s, want unknown for weak evidence", a.Primary)
	}
	if a.Confidence > 50 {
		t.Errorf("confidence = %g, want <= 50", a.Confidence)
	}
}

func TestClassifyRealLabelWins(t *testing.T) {
	// A confident REAL verdict outranks moderate forensic evidence.
	pred := model.Prediction{Label: "REAL", Confidence: 75}
	fm := &forensics.Metrics{
		FaceConsistency: 30,
		BlinkScore:      10,
		StabilityScore:  40,
	}
	a := Classify(pred, fm, nil, nil, DefaultConfig())

	if a.Primary != TypeAuthentic {
		t.Fatalf("primary = %s, want authentic", a.Primary)
	}
	if a.Confidence != 75 {
		t.Errorf("confidence = %g, want 75", a.Confidence)
	}
}

func TestTypeWireValues(t *testing.T) {
	// Stored verdicts and the dashboard depend on these exact strings.
	want := map[Type]string{
		TypeAuthentic:   "authentic",
		TypeFaceSwap:    "gan_face_swap",
		TypeReenactment: "face_reenactment",
		TypeLipSync:     "lip_sync_manipulation",
		TypeUnknown:     "unknown_manipulation",
	}
	for typ, s := range want {
		if string(typ) != s {
			t.Errorf("type %s serializes as %q, want %q", s, string(typ), s)
		}
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	// With the default 60 cutoff a consistency of 70 is unremarkable; a
	// stricter config turns it into face-swap evidence.
	pred := model.Prediction{Label: "FAKE", Confidence: 80}
	fm := &forensics.Metrics{
		FaceConsistency: 70,
		BlinkScore:      80,
		StabilityScore:  80,
	}

	def := Classify(pred, fm, nil, nil, DefaultConfig())
	if def.Scores[TypeFaceSwap] != 0 {
		t.Fatalf("default swap score = %g, want 0", def.Scores[TypeFaceSwap])
	}

	cfg := DefaultConfig()
	cfg.FaceConsistencyMax = 75
	strict := Classify(pred, fm, nil, nil, cfg)
	if strict.Scores[TypeFaceSwap] != 25 {
		t.Errorf("strict swap score = %g, want 25", strict.Scores[TypeFaceSwap])
	}
}

func TestClassifyConfidenceBounds(t *testing.T) {
	pred := model.Prediction{Label: "FAKE", Confidence: 99}
	fm := &forensics.Metrics{FaceConsistency: 10, BlinkScore: 5, StabilityScore: 20}
	mm := &multimodal.Metrics{
		AudioValid: true,
		SpoofScore: 90,
		LipSync:    &multimodal.LipSyncFeatures{SyncScore: 10, Correlation: 0.05},
	}
	ts := &timeline.Stats{TemporalVariance: 0.4, AnomalyRatio: 0.5, MeanFakeProb: 0.95}

	a := Classify(pred, fm, mm, ts, DefaultConfig())
	if a.Confidence < 0 || a.Confidence > 95 {
		t.Errorf("confidence %g outside [0, 95]", a.Confidence)
	}
	if len(a.Evidence) < 5 {
		t.Errorf("expected rich evidence, got %d entries", len(a.Evidence))
	}
}
