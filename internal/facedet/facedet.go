// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package facedet locates face and eye regions in grayscale frames.
//
// The package exposes small interfaces so an ML-backed detector can be
// plugged in; the default implementation is a deterministic heuristic built
// on integral-image variance search. It is intentionally coarse: the
// forensic analyzers only need stable, repeatable regions, not precise
// landmarks.
package facedet

import (
	"math"

	"github.com/verascope/verascope/internal/imgproc"
)

// Rect is an axis-aligned region within a frame, in pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// CenterX returns the horizontal center of the rectangle.
func (r Rect) CenterX() float64 { return float64(r.X) + float64(r.W)/2 }

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() float64 { return float64(r.Y) + float64(r.H)/2 }

// Area returns the rectangle area in pixels.
func (r Rect) Area() int { return r.W * r.H }

// FaceDetector locates the most prominent face in a grayscale frame.
type FaceDetector interface {
	// DetectFace returns the face bounding box and true, or false when no
	// face-like region is found.
	DetectFace(gray *imgproc.Plane) (Rect, bool)
}

// EyeDetector locates eye regions within a face crop. Coordinates are
// relative to the crop.
type EyeDetector interface {
	// DetectEyes returns up to two eye regions, left first.
	DetectEyes(face *imgproc.Plane) []Rect
}

// HeuristicDetector is the default detector. It searches square windows at a
// few scales for the region with the highest local contrast, on the premise
// that a face is the most textured large structure in a typical talking-head
// frame. Results are deterministic for identical input.
type HeuristicDetector struct {
	// MinStd is the absolute contrast floor a window must exceed.
	MinStd float64
	// RelStd is the multiple of global frame contrast a window must exceed.
	RelStd float64
}

// NewHeuristicDetector returns a detector with default thresholds.
func NewHeuristicDetector() *HeuristicDetector {
	return &HeuristicDetector{MinStd: 8.0, RelStd: 1.2}
}

var faceScales = []float64{0.9, 0.7, 0.5, 0.35}

// DetectFace implements FaceDetector.
func (d *HeuristicDetector) DetectFace(gray *imgproc.Plane) (Rect, bool) {
	if gray == nil || gray.W < 16 || gray.H < 16 {
		return Rect{}, false
	}

	sum, sumSq := integralImages(gray)
	globalStd := gray.Std()

	minDim := gray.W
	if gray.H < minDim {
		minDim = gray.H
	}

	best := Rect{}
	bestStd := -1.0
	for _, scale := range faceScales {
		win := int(float64(minDim) * scale)
		if win < 16 {
			continue
		}
		stride := win / 4
		if stride < 1 {
			stride = 1
		}
		for y := 0; y+win <= gray.H; y += stride {
			for x := 0; x+win <= gray.W; x += stride {
				std := windowStd(sum, sumSq, gray.W, x, y, win, win)
				if std > bestStd {
					bestStd = std
					best = Rect{X: x, Y: y, W: win, H: win}
				}
			}
		}
	}

	if bestStd < d.MinStd || bestStd < globalStd*d.RelStd {
		return Rect{}, false
	}
	return best, true
}

// DetectEyes implements EyeDetector. Eyes are searched in the upper half of
// the face crop, one window per side, and a side is reported only when its
// contrast clears the crop-wide mean.
func (d *HeuristicDetector) DetectEyes(face *imgproc.Plane) []Rect {
	if face == nil || face.W < 16 || face.H < 16 {
		return nil
	}

	sum, sumSq := integralImages(face)
	faceStd := face.Std()

	// Eye band: rows 20%..45% of the crop
	bandY := face.H / 5
	bandH := face.H*45/100 - bandY
	if bandH < 4 {
		return nil
	}
	eyeW := face.W / 4
	eyeH := bandH
	if eyeW < 4 {
		return nil
	}

	// Candidate columns per side: left eye around 15%..40%, right around 60%..85%
	sides := []struct{ x0, x1 int }{
		{face.W * 15 / 100, face.W * 40 / 100},
		{face.W * 60 / 100, face.W * 85 / 100},
	}

	var eyes []Rect
	for _, side := range sides {
		bestStd := -1.0
		var best Rect
		for x := side.x0; x+eyeW <= side.x1+eyeW && x+eyeW <= face.W; x += 2 {
			std := windowStd(sum, sumSq, face.W, x, bandY, eyeW, eyeH)
			if std > bestStd {
				bestStd = std
				best = Rect{X: x, Y: bandY, W: eyeW, H: eyeH}
			}
		}
		if bestStd > faceStd*0.8 && bestStd > 4.0 {
			eyes = append(eyes, best)
		}
	}
	return eyes
}

// EyeAspectRatio estimates openness of an eye crop as the height/width ratio
// of the largest dark connected component. A closed eye collapses to a thin
// horizontal sliver with a low ratio.
func EyeAspectRatio(eye *imgproc.Plane) float64 {
	if eye == nil || len(eye.Pix) == 0 {
		return 0
	}
	th := imgproc.OtsuThreshold(eye)
	// Foreground = dark pixels (pupil and lashes), so invert the comparison.
	inverted := imgproc.NewPlane(eye.W, eye.H)
	for i, v := range eye.Pix {
		if v < th {
			inverted.Pix[i] = 255
		}
	}
	_, _, w, h, ok := imgproc.LargestComponentBounds(inverted)
	if !ok || w == 0 {
		return 0
	}
	return float64(h) / float64(w)
}

// integralImages builds summed-area tables of values and squared values with
// a one-cell border, so window sums are four lookups.
func integralImages(p *imgproc.Plane) (sum, sumSq []float64) {
	w, h := p.W, p.H
	sw := w + 1
	sum = make([]float64, sw*(h+1))
	sumSq = make([]float64, sw*(h+1))
	for y := 0; y < h; y++ {
		rowSum, rowSq := 0.0, 0.0
		for x := 0; x < w; x++ {
			v := p.At(x, y)
			rowSum += v
			rowSq += v * v
			sum[(y+1)*sw+x+1] = sum[y*sw+x+1] + rowSum
			sumSq[(y+1)*sw+x+1] = sumSq[y*sw+x+1] + rowSq
		}
	}
	return sum, sumSq
}

// windowStd returns the standard deviation of the window at (x, y) with the
// given dimensions, using the integral images.
func windowStd(sum, sumSq []float64, imgW, x, y, w, h int) float64 {
	sw := imgW + 1
	area := float64(w * h)
	s := sum[(y+h)*sw+x+w] - sum[y*sw+x+w] - sum[(y+h)*sw+x] + sum[y*sw+x]
	sq := sumSq[(y+h)*sw+x+w] - sumSq[y*sw+x+w] - sumSq[(y+h)*sw+x] + sumSq[y*sw+x]
	mean := s / area
	variance := sq/area - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
