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

// stabilityScore combines motion coherence and structural similarity across
// consecutive frames. Frame-by-frame generated video shows erratic motion
// fields and flickering structure that authentic footage does not.
// Fewer than two frame pairs yields a neutral 100.
func stabilityScore(flowMags, ssimVals []float64) float64 {
	if len(flowMags) < 2 {
		return 100
	}
	flowCV := dsp.Std(flowMags) / (dsp.Mean(flowMags) + 1e-6)
	ssimMean := dsp.Mean(ssimVals)
	ssimStd := dsp.Std(ssimVals)

	score := 0.3*math.Max(0, 100-flowCV*100) +
		0.4*(ssimMean*100) +
		0.3*math.Max(0, 100-ssimStd*500)
	return dsp.Clamp(score, 0, 100)
}

// meanFlowMagnitude estimates inter-frame motion with exhaustive block
// matching: each block in prev is matched against next within the search
// radius by minimum sum of absolute differences.
func meanFlowMagnitude(prev, next *imgproc.Plane, blockSize, radius int) float64 {
	var sum float64
	var blocks int
	for by := 0; by+blockSize <= prev.H; by += blockSize {
		for bx := 0; bx+blockSize <= prev.W; bx += blockSize {
			dx, dy := matchBlock(prev, next, bx, by, blockSize, radius)
			sum += math.Sqrt(float64(dx*dx + dy*dy))
			blocks++
		}
	}
	if blocks == 0 {
		return 0
	}
	return sum / float64(blocks)
}

func matchBlock(prev, next *imgproc.Plane, bx, by, size, radius int) (int, int) {
	bestSAD := math.Inf(1)
	bestDx, bestDy := 0, 0
	for dy := -radius; dy <= radius; dy++ {
		ny := by + dy
		if ny < 0 || ny+size > next.H {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			nx := bx + dx
			if nx < 0 || nx+size > next.W {
				continue
			}
			sad := 0.0
			for y := 0; y < size; y++ {
				prow := prev.Pix[(by+y)*prev.W+bx:]
				nrow := next.Pix[(ny+y)*next.W+nx:]
				for x := 0; x < size; x++ {
					sad += math.Abs(prow[x] - nrow[x])
				}
				if sad >= bestSAD {
					break
				}
			}
			if sad < bestSAD {
				bestSAD = sad
				bestDx, bestDy = dx, dy
			}
		}
	}
	return bestDx, bestDy
}

// SSIM constants for 8-bit dynamic range
var (
	ssimC1 = math.Pow(0.01*255, 2)
	ssimC2 = math.Pow(0.03*255, 2)
)

// ssim computes the mean structural similarity between two equally sized
// planes using 11x11 Gaussian weighting with sigma 1.5.
func ssim(a, b *imgproc.Plane) float64 {
	if len(a.Pix) == 0 || len(a.Pix) != len(b.Pix) {
		return 0
	}

	muA := imgproc.GaussianBlur(a, 11, 1.5)
	muB := imgproc.GaussianBlur(b, 11, 1.5)

	aSq := imgproc.NewPlane(a.W, a.H)
	bSq := imgproc.NewPlane(a.W, a.H)
	ab := imgproc.NewPlane(a.W, a.H)
	for i := range a.Pix {
		aSq.Pix[i] = a.Pix[i] * a.Pix[i]
		bSq.Pix[i] = b.Pix[i] * b.Pix[i]
		ab.Pix[i] = a.Pix[i] * b.Pix[i]
	}
	muASq := imgproc.GaussianBlur(aSq, 11, 1.5)
	muBSq := imgproc.GaussianBlur(bSq, 11, 1.5)
	muAB := imgproc.GaussianBlur(ab, 11, 1.5)

	sum := 0.0
	for i := range a.Pix {
		mA, mB := muA.Pix[i], muB.Pix[i]
		varA := muASq.Pix[i] - mA*mA
		varB := muBSq.Pix[i] - mB*mB
		covAB := muAB.Pix[i] - mA*mB
		num := (2*mA*mB + ssimC1) * (2*covAB + ssimC2)
		den := (mA*mA + mB*mB + ssimC1) * (varA + varB + ssimC2)
		sum += num / den
	}
	return sum / float64(len(a.Pix))
}
