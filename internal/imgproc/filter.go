// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package imgproc

import "math"

// GaussianBlur convolves the plane with a separable Gaussian kernel of the
// given (odd) size and sigma. Edges are clamped.
func GaussianBlur(p *Plane, size int, sigma float64) *Plane {
	if size%2 == 0 {
		size++
	}
	kernel := gaussianKernel(size, sigma)
	half := size / 2

	// Horizontal pass
	tmp := NewPlane(p.W, p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			sum := 0.0
			for k := -half; k <= half; k++ {
				xx := clampInt(x+k, 0, p.W-1)
				sum += p.At(xx, y) * kernel[k+half]
			}
			tmp.Set(x, y, sum)
		}
	}

	// Vertical pass
	out := NewPlane(p.W, p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			sum := 0.0
			for k := -half; k <= half; k++ {
				yy := clampInt(y+k, 0, p.H-1)
				sum += tmp.At(x, yy) * kernel[k+half]
			}
			out.Set(x, y, sum)
		}
	}
	return out
}

func gaussianKernel(size int, sigma float64) []float64 {
	kernel := make([]float64, size)
	half := size / 2
	sum := 0.0
	for i := 0; i < size; i++ {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// OtsuThreshold returns the threshold maximizing between-class variance of
// the plane's intensity histogram.
func OtsuThreshold(p *Plane) float64 {
	var hist [256]float64
	for _, v := range p.Pix {
		bin := clampInt(int(v), 0, 255)
		hist[bin]++
	}
	total := float64(len(p.Pix))
	if total == 0 {
		return 127
	}

	sumAll := 0.0
	for i, c := range hist {
		sumAll += float64(i) * c
	}

	var sumB, wB float64
	bestVar := -1.0
	best := 0
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * hist[t]
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return float64(best)
}

// Binarize returns a plane with pixels above the threshold set to 255 and the
// rest to 0.
func Binarize(p *Plane, threshold float64) *Plane {
	out := NewPlane(p.W, p.H)
	for i, v := range p.Pix {
		if v > threshold {
			out.Pix[i] = 255
		}
	}
	return out
}

// LargestComponentBounds returns the bounding box of the largest 4-connected
// foreground (non-zero) component in a binary plane. The second return value
// is false when the plane has no foreground pixels.
func LargestComponentBounds(p *Plane) (x, y, w, h int, ok bool) {
	visited := make([]bool, len(p.Pix))
	bestArea := 0
	var bx0, by0, bx1, by1 int

	// Iterative flood fill; the stack bound is the pixel count.
	stack := make([]int, 0, 64)
	for start := range p.Pix {
		if visited[start] || p.Pix[start] == 0 {
			continue
		}
		area := 0
		x0, y0 := p.W, p.H
		x1, y1 := -1, -1
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := idx%p.W, idx/p.W
			area++
			if cx < x0 {
				x0 = cx
			}
			if cy < y0 {
				y0 = cy
			}
			if cx > x1 {
				x1 = cx
			}
			if cy > y1 {
				y1 = cy
			}
			neighbors := [4][2]int{{cx - 1, cy}, {cx + 1, cy}, {cx, cy - 1}, {cx, cy + 1}}
			for _, n := range neighbors {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= p.W || ny >= p.H {
					continue
				}
				nidx := ny*p.W + nx
				if !visited[nidx] && p.Pix[nidx] != 0 {
					visited[nidx] = true
					stack = append(stack, nidx)
				}
			}
		}
		if area > bestArea {
			bestArea = area
			bx0, by0, bx1, by1 = x0, y0, x1, y1
		}
	}
	if bestArea == 0 {
		return 0, 0, 0, 0, false
	}
	return bx0, by0, bx1 - bx0 + 1, by1 - by0 + 1, true
}
