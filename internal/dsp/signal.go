// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package dsp

import "math"

// Autocorrelation computes the raw (unnormalized) autocorrelation of x for
// lags 0..maxLag inclusive. maxLag is clipped to len(x)-1.
func Autocorrelation(x []float64, maxLag int) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}
	out := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i < n-lag; i++ {
			sum += x[i] * x[i+lag]
		}
		out[lag] = sum
	}
	return out
}

// CrossCorrelateFull computes the full cross-correlation of a and b, matching
// the "full" convolution mode: the result has len(a)+len(b)-1 entries and
// entry k corresponds to lag k-(len(b)-1).
func CrossCorrelateFull(a, b []float64) []float64 {
	na, nb := len(a), len(b)
	if na == 0 || nb == 0 {
		return nil
	}
	out := make([]float64, na+nb-1)
	for k := range out {
		lag := k - (nb - 1)
		sum := 0.0
		for j := 0; j < nb; j++ {
			i := j + lag
			if i < 0 || i >= na {
				continue
			}
			sum += a[i] * b[j]
		}
		out[k] = sum
	}
	return out
}

// ResampleLinear resamples x to n points by linear interpolation over the
// unit interval. Endpoints are preserved.
func ResampleLinear(x []float64, n int) []float64 {
	if n <= 0 || len(x) == 0 {
		return nil
	}
	out := make([]float64, n)
	if len(x) == 1 {
		for i := range out {
			out[i] = x[0]
		}
		return out
	}
	if n == 1 {
		out[0] = x[0]
		return out
	}
	scale := float64(len(x)-1) / float64(n-1)
	for i := range out {
		pos := float64(i) * scale
		lo := int(pos)
		hi := lo + 1
		if hi >= len(x) {
			hi = len(x) - 1
		}
		frac := pos - float64(lo)
		out[i] = x[lo]*(1-frac) + x[hi]*frac
	}
	return out
}

// Mean returns the arithmetic mean of x, or 0 for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// Std returns the population standard deviation of x, or 0 for an empty slice.
func Std(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	mean := Mean(x)
	sum := 0.0
	for _, v := range x {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ZNormalize returns (x - mean) / (std + 1e-6) without mutating x.
func ZNormalize(x []float64) []float64 {
	mean := Mean(x)
	std := Std(x) + 1e-6
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out
}

// PearsonCorrelation returns the Pearson correlation coefficient of two
// equal-length slices, or NaN when either side has zero variance.
func PearsonCorrelation(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return math.NaN()
	}
	meanA, meanB := Mean(a), Mean(b)
	var num, denA, denB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		denA += da * da
		denB += db * db
	}
	den := math.Sqrt(denA * denB)
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// ZeroCrossings returns the indices where the signal changes sign. Samples
// within zeroEps of zero carry no sign: a crossing is counted once, at the
// first significant sample on the far side, so rounding wobble around an
// exact zero does not double-count.
func ZeroCrossings(x []float64) []int {
	const zeroEps = 1e-9
	var crossings []int
	prev := 0 // sign of the last significant sample, 0 until seen
	for i, v := range x {
		if math.Abs(v) < zeroEps {
			continue
		}
		sign := 1
		if v < 0 {
			sign = -1
		}
		if prev != 0 && sign != prev {
			crossings = append(crossings, i)
		}
		prev = sign
	}
	return crossings
}
