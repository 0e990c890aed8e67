// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/png" // register PNG decoding for extracted frames
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/verascope/verascope/internal/imgproc"
	"github.com/verascope/verascope/internal/logging"
	"github.com/verascope/verascope/internal/metrics"
)

// ErrUnreadableInput reports that the input video could not be opened or
// decoded at all. This is the only extractor error the pipeline treats as
// fatal.
var ErrUnreadableInput = errors.New("unreadable input video")

// ExtractorConfig controls the ffmpeg-backed extractor.
type ExtractorConfig struct {
	// FFmpegPath is the ffmpeg binary; defaults to "ffmpeg" on PATH.
	FFmpegPath string `koanf:"ffmpeg_path" json:"ffmpeg_path"`
	// FFprobePath is the ffprobe binary; defaults to "ffprobe" on PATH.
	FFprobePath string `koanf:"ffprobe_path" json:"ffprobe_path"`
	// Timeout bounds each subprocess invocation.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
	// SampleFPS is the rate frames are sampled at for analysis.
	SampleFPS float64 `koanf:"sample_fps" json:"sample_fps"`
	// MaxFrames caps the number of frames decoded per video.
	MaxFrames int `koanf:"max_frames" json:"max_frames"`
	// AudioSampleRate is the rate audio is resampled to on extraction.
	AudioSampleRate int `koanf:"audio_sample_rate" json:"audio_sample_rate"`
}

// DefaultExtractorConfig returns production defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		Timeout:         60 * time.Second,
		SampleFPS:       5,
		MaxFrames:       300,
		AudioSampleRate: 16000,
	}
}

// Extractor decodes frames and audio from video files by shelling out to
// ffmpeg. All invocations run behind a circuit breaker so a wedged or
// missing decoder degrades analyses instead of piling up subprocesses.
type Extractor struct {
	cfg ExtractorConfig
	cb  *gobreaker.CircuitBreaker[[]byte]
}

// NewExtractor builds an extractor from the given config, filling in zero
// values with defaults.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	def := DefaultExtractorConfig()
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = def.FFprobePath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.SampleFPS <= 0 {
		cfg.SampleFPS = def.SampleFPS
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = def.MaxFrames
	}
	if cfg.AudioSampleRate <= 0 {
		cfg.AudioSampleRate = def.AudioSampleRate
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "media-decoder",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("decoder circuit breaker state change")
		},
	})

	return &Extractor{cfg: cfg, cb: cb}
}

// ExtractFrames decodes sampled frames from the video. The returned frame
// rate is the sampling rate used for timestamping.
func (e *Extractor) ExtractFrames(ctx context.Context, videoPath string) ([]Frame, float64, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}

	tmpDir, err := os.MkdirTemp("", "verascope-frames-*")
	if err != nil {
		return nil, 0, fmt.Errorf("creating frame directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pattern := filepath.Join(tmpDir, "frame_%05d.png")
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%g", e.cfg.SampleFPS),
		"-frames:v", strconv.Itoa(e.cfg.MaxFrames),
		pattern,
	}
	if _, err := e.run(ctx, "frames", e.cfg.FFmpegPath, args...); err != nil {
		return nil, 0, fmt.Errorf("%w: frame extraction failed: %v", ErrUnreadableInput, err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, 0, fmt.Errorf("reading frame directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".png") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, 0, fmt.Errorf("%w: decoder produced no frames", ErrUnreadableInput)
	}

	frames := make([]Frame, 0, len(names))
	for i, name := range names {
		img, err := decodePNG(filepath.Join(tmpDir, name))
		if err != nil {
			logging.Warn().Err(err).Str("frame", name).Msg("skipping undecodable frame")
			continue
		}
		rgba := toRGBA(img)
		frames = append(frames, Frame{
			Index:       i,
			TimestampMS: float64(i) / e.cfg.SampleFPS * 1000,
			Width:       rgba.Bounds().Dx(),
			Height:      rgba.Bounds().Dy(),
			Gray:        imgproc.FromImage(rgba),
			RGBA:        rgba,
		})
	}
	if len(frames) == 0 {
		return nil, 0, fmt.Errorf("%w: no decodable frames", ErrUnreadableInput)
	}

	metrics.FramesAnalyzed.Add(float64(len(frames)))
	logging.Debug().
		Int("frames", len(frames)).
		Float64("sample_fps", e.cfg.SampleFPS).
		Str("video", videoPath).
		Msg("extracted frames")
	return frames, e.cfg.SampleFPS, nil
}

// ExtractAudio decodes the audio track as mono 16-bit PCM at the configured
// sample rate. Returns nil audio (no error) when the video has no audio
// stream.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath string) (*Audio, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(e.cfg.AudioSampleRate),
		"-ac", "1",
		"-f", "wav",
		"pipe:1",
	}
	out, err := e.run(ctx, "audio", e.cfg.FFmpegPath, args...)
	if err != nil {
		// Videos without audio streams are common; treat decode failure on
		// the audio path as absence, not as a fatal input error.
		logging.Debug().Err(err).Str("video", videoPath).Msg("no audio extracted")
		return nil, nil
	}

	audio, err := DecodeWAV(out)
	if err != nil {
		return nil, fmt.Errorf("decoding extracted audio: %w", err)
	}
	if len(audio.Samples) == 0 {
		return nil, nil
	}
	return audio, nil
}

// ProbeFPS returns the native frame rate of the first video stream.
func (e *Extractor) ProbeFPS(ctx context.Context, videoPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	}
	out, err := e.run(ctx, "probe", e.cfg.FFprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("probing frame rate: %w", err)
	}
	return parseRational(strings.TrimSpace(string(out)))
}

// run executes a decoder subprocess through the circuit breaker with the
// configured timeout.
func (e *Extractor) run(ctx context.Context, operation, bin string, args ...string) ([]byte, error) {
	start := time.Now()
	out, err := e.cb.Execute(func() ([]byte, error) {
		cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
		cmd := exec.CommandContext(cctx, bin, args...)
		output, err := cmd.Output()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
				return nil, fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
			}
			return nil, err
		}
		return output, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordDecoderRejected(operation)
		return nil, fmt.Errorf("decoder unavailable: %w", err)
	}
	metrics.RecordDecoderInvocation(operation, time.Since(start), err)
	return out, err
}

// parseRational parses ffprobe rate strings such as "30000/1001" or "25".
func parseRational(s string) (float64, error) {
	if s == "" || s == "0/0" {
		return 0, fmt.Errorf("no frame rate reported")
	}
	if num, den, found := strings.Cut(s, "/"); found {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing frame rate %q: %w", s, err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("parsing frame rate %q: invalid denominator", s)
		}
		return n / d, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing frame rate %q: %w", s, err)
	}
	return v, nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
