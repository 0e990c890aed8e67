// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package forensics

import (
	"math"

	"github.com/verascope/verascope/internal/dsp"
	"github.com/verascope/verascope/internal/imgproc"
)

// blockinessOf measures 8x8 grid energy: the ratio of pixel differences at
// DCT block boundaries to differences in block interiors. Re-encoded or
// spliced regions leave elevated boundary energy.
func blockinessOf(gray *imgproc.Plane) float64 {
	rowRatio := blockBoundaryRatio(gray, true)
	colRatio := blockBoundaryRatio(gray, false)
	return (rowRatio + colRatio) / 2
}

func blockBoundaryRatio(p *imgproc.Plane, rows bool) float64 {
	extent := p.H
	span := p.W
	if !rows {
		extent = p.W
		span = p.H
	}
	blocks := extent / 8
	if blocks < 2 {
		return 0
	}

	lineDiff := func(i, j int) float64 {
		sum := 0.0
		for k := 0; k < span; k++ {
			var a, b float64
			if rows {
				a, b = p.At(k, i), p.At(k, j)
			} else {
				a, b = p.At(i, k), p.At(j, k)
			}
			sum += math.Abs(a - b)
		}
		return sum / float64(span)
	}

	total := 0.0
	for i := 1; i < blocks; i++ {
		edge := i * 8
		boundary := lineDiff(edge, edge-1)
		interior := lineDiff(edge-4, edge-5)
		total += boundary / (interior + 1e-6)
	}
	return total / float64(blocks)
}

// frequencyAnomalyOf measures irregularity in the radial frequency spectrum.
// GAN upsampling introduces periodic spectral artifacts that show up as
// jagged radial energy profiles; natural images decay smoothly.
func frequencyAnomalyOf(gray *imgproc.Plane, size int) float64 {
	normalized := imgproc.Resize(gray, size, size)
	spectrum := dsp.FFT2(normalized.Pix, size, size)
	magnitude := dsp.LogMagnitudeShifted(spectrum, size, size)
	profile := dsp.RadialProfile(magnitude, size, size, 5)
	if len(profile) < 3 {
		return 0
	}

	diffs := make([]float64, len(profile)-1)
	absSum := 0.0
	for i := 1; i < len(profile); i++ {
		diffs[i-1] = math.Abs(profile[i] - profile[i-1])
	}
	for _, v := range profile {
		absSum += math.Abs(v)
	}
	meanAbs := absSum / float64(len(profile))
	return dsp.Std(diffs) / (meanAbs + 1e-6)
}
