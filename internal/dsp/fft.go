// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

// Package dsp implements the signal-processing primitives behind the audio
// and frequency-domain analyzers: an iterative radix-2 FFT, windowing,
// autocorrelation and cross-correlation, resampling and basic statistics.
//
// Everything here is deterministic; no randomness, no goroutines.
package dsp

import (
	"math"
	"math/cmplx"
)

// NextPow2 returns the smallest power of two >= n (and >= 1).
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// FFT computes the in-place radix-2 Cooley-Tukey FFT of x.
// len(x) must be a power of two.
func FFT(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := -2 * math.Pi / float64(length)
		wl := cmplx.Exp(complex(0, ang))
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			for j := 0; j < length/2; j++ {
				u := x[i+j]
				v := x[i+j+length/2] * w
				x[i+j] = u + v
				x[i+j+length/2] = u - v
				w *= wl
			}
		}
	}
}

// RealSpectrum returns the magnitude spectrum of a real signal, zero-padded
// to the next power of two. Only the len/2+1 non-redundant bins are returned.
func RealSpectrum(signal []float64) []float64 {
	n := NextPow2(len(signal))
	buf := make([]complex128, n)
	for i, v := range signal {
		buf[i] = complex(v, 0)
	}
	FFT(buf)
	out := make([]float64, n/2+1)
	for i := range out {
		out[i] = cmplx.Abs(buf[i])
	}
	return out
}

// HannWindow returns an n-point Hann window.
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// FFT2 computes the 2-D FFT of a row-major real plane of size w×h.
// Both w and h must be powers of two. The result is row-major complex.
func FFT2(pix []float64, w, h int) []complex128 {
	buf := make([]complex128, w*h)
	for i, v := range pix {
		buf[i] = complex(v, 0)
	}

	// Rows
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(row, buf[y*w:(y+1)*w])
		FFT(row)
		copy(buf[y*w:(y+1)*w], row)
	}

	// Columns
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = buf[y*w+x]
		}
		FFT(col)
		for y := 0; y < h; y++ {
			buf[y*w+x] = col[y]
		}
	}
	return buf
}

// LogMagnitudeShifted returns the log(1+|F|) magnitude of a 2-D spectrum with
// the DC component shifted to the center, min-max normalized to [0, 1].
func LogMagnitudeShifted(spectrum []complex128, w, h int) []float64 {
	out := make([]float64, w*h)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// fftshift: swap quadrants
			sx := (x + w/2) % w
			sy := (y + h/2) % h
			v := math.Log1p(cmplx.Abs(spectrum[y*w+x]))
			out[sy*w+sx] = v
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	span := maxV - minV
	if span < 1e-6 {
		span = 1e-6
	}
	for i := range out {
		out[i] = (out[i] - minV) / span
	}
	return out
}

// RadialProfile averages a centered w×h plane over concentric rings of the
// given step, starting at radius step and ending at min(w,h)/2. Each ring
// spans radius ± step/2.
func RadialProfile(pix []float64, w, h, step int) []float64 {
	cx, cy := float64(w)/2, float64(h)/2
	rMax := w
	if h < w {
		rMax = h
	}
	rMax /= 2

	var profile []float64
	for radius := step; radius < rMax; radius += step {
		lo := float64(radius) - float64(step)/2
		hi := float64(radius) + float64(step)/2
		sum, count := 0.0, 0
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dx := float64(x) - cx
				dy := float64(y) - cy
				r := math.Sqrt(dx*dx + dy*dy)
				if r >= lo && r < hi {
					sum += pix[y*w+x]
					count++
				}
			}
		}
		if count > 0 {
			profile = append(profile, sum/float64(count))
		}
	}
	return profile
}
