// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package facedet

import (
	"testing"

	"github.com/verascope/verascope/internal/imgproc"
)

// texturedFrame builds a flat frame with a high-contrast checkerboard patch,
// the kind of structure the heuristic detector keys on.
func texturedFrame(w, h, px, py, pw, ph int) *imgproc.Plane {
	p := imgproc.NewPlane(w, h)
	for i := range p.Pix {
		p.Pix[i] = 128
	}
	for y := py; y < py+ph && y < h; y++ {
		for x := px; x < px+pw && x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				p.Set(x, y, 250)
			} else {
				p.Set(x, y, 10)
			}
		}
	}
	return p
}

func TestDetectFace(t *testing.T) {
	d := NewHeuristicDetector()

	t.Run("finds textured region", func(t *testing.T) {
		frame := texturedFrame(128, 128, 30, 30, 60, 60)
		face, ok := d.DetectFace(frame)
		if !ok {
			t.Fatal("expected a detection")
		}
		// The best window must overlap the textured patch.
		if face.X+face.W < 30 || face.X > 90 || face.Y+face.H < 30 || face.Y > 90 {
			t.Errorf("detection %+v does not overlap the patch", face)
		}
	})

	t.Run("rejects flat frame", func(t *testing.T) {
		frame := imgproc.NewPlane(128, 128)
		for i := range frame.Pix {
			frame.Pix[i] = 128
		}
		if _, ok := d.DetectFace(frame); ok {
			t.Error("flat frame should not produce a detection")
		}
	})

	t.Run("rejects tiny frame", func(t *testing.T) {
		if _, ok := d.DetectFace(imgproc.NewPlane(8, 8)); ok {
			t.Error("tiny frame should not produce a detection")
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		frame := texturedFrame(128, 128, 40, 20, 50, 50)
		a, okA := d.DetectFace(frame)
		b, okB := d.DetectFace(frame)
		if okA != okB || a != b {
			t.Errorf("detections differ: %+v vs %+v", a, b)
		}
	})
}

func TestDetectEyes(t *testing.T) {
	d := NewHeuristicDetector()

	// Face crop with two dark blobs in the eye band
	face := imgproc.NewPlane(100, 100)
	for i := range face.Pix {
		face.Pix[i] = 180
	}
	for _, cx := range []int{28, 72} {
		for y := 25; y < 40; y++ {
			for x := cx - 8; x < cx+8; x++ {
				face.Set(x, y, 20)
			}
		}
	}

	eyes := d.DetectEyes(face)
	if len(eyes) != 2 {
		t.Fatalf("expected 2 eyes, got %d", len(eyes))
	}
	if eyes[0].CenterX() >= eyes[1].CenterX() {
		t.Error("left eye should come first")
	}

	t.Run("nil crop", func(t *testing.T) {
		if got := d.DetectEyes(nil); got != nil {
			t.Error("expected nil for nil crop")
		}
	})
}

func TestEyeAspectRatio(t *testing.T) {
	t.Run("open eye has higher ratio than closed", func(t *testing.T) {
		// Open: tall dark blob. Closed: thin dark sliver.
		open := imgproc.NewPlane(40, 30)
		for i := range open.Pix {
			open.Pix[i] = 200
		}
		for y := 5; y < 25; y++ {
			for x := 10; x < 30; x++ {
				open.Set(x, y, 30)
			}
		}

		closed := imgproc.NewPlane(40, 30)
		for i := range closed.Pix {
			closed.Pix[i] = 200
		}
		for y := 14; y < 17; y++ {
			for x := 5; x < 35; x++ {
				closed.Set(x, y, 30)
			}
		}

		openEAR := EyeAspectRatio(open)
		closedEAR := EyeAspectRatio(closed)
		if openEAR <= closedEAR {
			t.Errorf("open EAR %g should exceed closed EAR %g", openEAR, closedEAR)
		}
	})

	t.Run("empty crop", func(t *testing.T) {
		if got := EyeAspectRatio(nil); got != 0 {
			t.Errorf("got %g, want 0", got)
		}
	})
}
