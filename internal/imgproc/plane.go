// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package imgproc implements the grayscale image primitives the forensic
// analyzers are built on: bilinear resizing, Gaussian filtering, intensity
// histograms, Otsu thresholding and connected-component bounds.
//
// All operations work on float64 luma planes with values in [0, 255] and are
// fully deterministic: identical input always yields bit-identical output.
package imgproc

import (
	"image"
	"math"
)

// Plane is a single-channel float64 image in row-major order.
// Pixel values are in [0, 255].
type Plane struct {
	W, H int
	Pix  []float64
}

// NewPlane allocates a zeroed plane of the given dimensions.
func NewPlane(w, h int) *Plane {
	return &Plane{W: w, H: h, Pix: make([]float64, w*h)}
}

// At returns the pixel at (x, y). No bounds check; callers stay in range.
func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.W+x]
}

// Set writes the pixel at (x, y).
func (p *Plane) Set(x, y int, v float64) {
	p.Pix[y*p.W+x] = v
}

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	out := NewPlane(p.W, p.H)
	copy(out.Pix, p.Pix)
	return out
}

// SubRect returns a copy of the rectangle [x, x+w) × [y, y+h), clipped to the
// plane bounds. Returns nil if the clipped rectangle is empty.
func (p *Plane) SubRect(x, y, w, h int) *Plane {
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	if x+w > p.W {
		w = p.W - x
	}
	if y+h > p.H {
		h = p.H - y
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	out := NewPlane(w, h)
	for row := 0; row < h; row++ {
		copy(out.Pix[row*w:(row+1)*w], p.Pix[(y+row)*p.W+x:(y+row)*p.W+x+w])
	}
	return out
}

// FromImage converts an image to a luma plane using the BT.601 weights.
func FromImage(img image.Image) *Plane {
	b := img.Bounds()
	out := NewPlane(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// 16-bit channels scaled down to 0..255
			out.Pix[i] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257.0
			i++
		}
	}
	return out
}

// Resize scales the plane to (w, h) using bilinear interpolation.
func Resize(p *Plane, w, h int) *Plane {
	if p.W == w && p.H == h {
		return p.Clone()
	}
	out := NewPlane(w, h)
	xRatio := float64(p.W-1) / math.Max(float64(w-1), 1)
	yRatio := float64(p.H-1) / math.Max(float64(h-1), 1)
	for y := 0; y < h; y++ {
		sy := float64(y) * yRatio
		y0 := int(sy)
		y1 := y0 + 1
		if y1 >= p.H {
			y1 = p.H - 1
		}
		fy := sy - float64(y0)
		for x := 0; x < w; x++ {
			sx := float64(x) * xRatio
			x0 := int(sx)
			x1 := x0 + 1
			if x1 >= p.W {
				x1 = p.W - 1
			}
			fx := sx - float64(x0)
			top := p.At(x0, y0)*(1-fx) + p.At(x1, y0)*fx
			bot := p.At(x0, y1)*(1-fx) + p.At(x1, y1)*fx
			out.Set(x, y, top*(1-fy)+bot*fy)
		}
	}
	return out
}

// Mean returns the mean pixel value.
func (p *Plane) Mean() float64 {
	if len(p.Pix) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range p.Pix {
		sum += v
	}
	return sum / float64(len(p.Pix))
}

// Std returns the population standard deviation of pixel values.
func (p *Plane) Std() float64 {
	if len(p.Pix) == 0 {
		return 0
	}
	mean := p.Mean()
	sum := 0.0
	for _, v := range p.Pix {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(p.Pix)))
}

// MeanAbsDiff returns the mean absolute per-pixel difference between two
// planes of identical dimensions.
func MeanAbsDiff(a, b *Plane) float64 {
	n := len(a.Pix)
	if n == 0 || n != len(b.Pix) {
		return 0
	}
	sum := 0.0
	for i := range a.Pix {
		sum += math.Abs(a.Pix[i] - b.Pix[i])
	}
	return sum / float64(n)
}
