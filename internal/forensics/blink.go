// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package forensics

import "math"

// blinkScore counts blinks in the eye aspect ratio series and maps the blink
// rate to a plausibility score. Humans blink roughly 15-20 times per minute;
// early face-swap generators famously almost never blink.
func blinkScore(ears []float64, threshold float64, minFrames int, fps float64) (count int, ratePerMin, score float64) {
	if len(ears) == 0 || fps <= 0 {
		return 0, 0, 50
	}

	// A blink is a run of closed frames bracketed by genuinely open eyes.
	openLevel := threshold * 1.5
	consecutiveClosed := 0
	prevOpen := openLevel
	for _, ear := range ears {
		if ear < threshold {
			consecutiveClosed++
			continue
		}
		if consecutiveClosed >= minFrames && prevOpen > openLevel-1e-9 {
			count++
		}
		consecutiveClosed = 0
		prevOpen = ear
	}
	if consecutiveClosed >= minFrames && prevOpen > openLevel-1e-9 {
		count++
	}

	durationMin := float64(len(ears)) / fps / 60
	if durationMin > 0 {
		ratePerMin = float64(count) / durationMin
	}

	switch {
	case ratePerMin < 5:
		score = math.Max(0, 30-(5-ratePerMin)*6)
	case ratePerMin > 40:
		score = math.Max(0, 50-(ratePerMin-40)*2)
	default:
		score = math.Max(0, 100-math.Abs(ratePerMin-17)*3)
	}
	return count, ratePerMin, score
}
