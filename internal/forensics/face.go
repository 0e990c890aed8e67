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

// faceConsistencyScore scores how stable the face region looks across the
// video. Face swaps tend to show appearance drift (histogram decorrelation)
// and unstable box geometry. Fewer than two detections yields a neutral 100
// with an explanatory reason.
func faceConsistencyScore(hists [][]float64, widths []float64, centers [][2]float64) (float64, string) {
	if len(hists) < 2 {
		return 100, "insufficient face detections for consistency analysis"
	}

	corrs := make([]float64, 0, len(hists)-1)
	for i := 1; i < len(hists); i++ {
		corrs = append(corrs, imgproc.HistogramCorrelation(hists[i-1], hists[i]))
	}
	meanCorr := dsp.Mean(corrs)

	sizeVar := dsp.Std(widths) / (dsp.Mean(widths) + 1e-6)

	deltas := make([]float64, 0, len(centers)-1)
	for i := 1; i < len(centers); i++ {
		dx := centers[i][0] - centers[i-1][0]
		dy := centers[i][1] - centers[i-1][1]
		deltas = append(deltas, math.Sqrt(dx*dx+dy*dy))
	}
	moveVar := 0.0
	if len(deltas) > 0 {
		moveVar = dsp.Std(deltas) / (dsp.Mean(deltas) + 1e-6)
	}

	score := 0.5*(meanCorr*100) +
		0.25*math.Max(0, 100-sizeVar*200) +
		0.25*math.Max(0, 100-moveVar*50)
	return dsp.Clamp(score, 0, 100), ""
}
