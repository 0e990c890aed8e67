// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package gradcam

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"github.com/verascope/verascope/internal/imgproc"
	"github.com/verascope/verascope/internal/media"
	"github.com/verascope/verascope/internal/metrics"
)

// RenderOverlay blends a jet-colormapped heatmap over the frame at the given
// alpha. The heatmap is bilinearly upscaled to the frame resolution.
func RenderOverlay(frame *media.Frame, heatmap *imgproc.Plane, alpha float64) *image.RGBA {
	colored := colorize(heatmap)

	scaled := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), colored, colored.Bounds(), xdraw.Src, nil)

	out := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			var br, bg, bb uint8
			if frame.RGBA != nil {
				c := frame.RGBA.RGBAAt(x, y)
				br, bg, bb = c.R, c.G, c.B
			} else if frame.Gray != nil {
				v := uint8(frame.Gray.At(x, y))
				br, bg, bb = v, v, v
			}
			h := scaled.RGBAAt(x, y)
			out.SetRGBA(x, y, color.RGBA{
				R: blend(br, h.R, alpha),
				G: blend(bg, h.G, alpha),
				B: blend(bb, h.B, alpha),
				A: 255,
			})
		}
	}
	return out
}

func blend(base, heat uint8, alpha float64) uint8 {
	return uint8(float64(base)*(1-alpha) + float64(heat)*alpha)
}

// colorize maps heatmap values in [0, 1] through the jet colormap.
func colorize(heatmap *imgproc.Plane) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, heatmap.W, heatmap.H))
	for y := 0; y < heatmap.H; y++ {
		for x := 0; x < heatmap.W; x++ {
			img.SetRGBA(x, y, jet(heatmap.At(x, y)))
		}
	}
	return img
}

func jet(v float64) color.RGBA {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	clamp := func(x float64) uint8 {
		if x < 0 {
			return 0
		}
		if x > 1 {
			return 255
		}
		return uint8(x * 255)
	}
	r := clamp(1.5 - abs(4*v-3))
	g := clamp(1.5 - abs(4*v-2))
	b := clamp(1.5 - abs(4*v-1))
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// WriteOverlays renders and saves saliency overlays for the given frames.
// Files land in outputDir as <baseName>_gradcam_frame_NNNN.png; the returned
// paths are in frame order. The per-analysis frame cap applies.
func (e *Explainer) WriteOverlays(ctx context.Context, frames []media.Frame, outputDir, baseName string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating overlay directory: %w", err)
	}

	limit := len(frames)
	if limit > e.cfg.MaxFrames {
		limit = e.cfg.MaxFrames
	}

	paths := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		heatmap, err := e.HeatmapForFrame(ctx, &frames[i], ClassPredicted)
		if err != nil {
			return paths, err
		}
		overlay := RenderOverlay(&frames[i], heatmap, e.cfg.Alpha)

		path := filepath.Join(outputDir, fmt.Sprintf("%s_gradcam_frame_%04d.png", baseName, frames[i].Index))
		if err := savePNG(path, overlay); err != nil {
			return paths, err
		}
		metrics.OverlaysWritten.Inc()
		paths = append(paths, path)
	}
	return paths, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating overlay file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding overlay: %w", err)
	}
	return f.Close()
}
