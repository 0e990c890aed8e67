// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package imgproc

import "math"

// Histogram computes an intensity histogram over [0, 256) with the given
// number of bins, L2-normalized so histograms of differently sized crops are
// comparable.
func Histogram(p *Plane, bins int) []float64 {
	hist := make([]float64, bins)
	if len(p.Pix) == 0 || bins <= 0 {
		return hist
	}
	scale := float64(bins) / 256.0
	for _, v := range p.Pix {
		bin := clampInt(int(v*scale), 0, bins-1)
		hist[bin]++
	}
	norm := 0.0
	for _, c := range hist {
		norm += c * c
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range hist {
			hist[i] /= norm
		}
	}
	return hist
}

// HistogramCorrelation returns the Pearson correlation between two histograms
// of equal length, in [-1, 1]. Flat histograms have zero variance; two equal
// flat histograms still correlate to 1, any other degenerate pair to 0.
func HistogramCorrelation(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}
	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

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
		for i := 0; i < n; i++ {
			if a[i] != b[i] {
				return 0
			}
		}
		return 1
	}
	return num / den
}
