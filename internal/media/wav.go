// Verascope - Deepfake Forensics and Explainability Engine
// Copyright 2026 Verascope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/verascope/verascope

package media

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedWAV wraps all WAV parse failures so callers can branch on the
// class of error without matching strings.
var ErrMalformedWAV = errors.New("malformed wav")

const (
	wavFormatPCM = 1
)

// DecodeWAV parses a RIFF/WAVE byte stream into a mono float64 stream.
// Multi-channel audio is mixed down by averaging. Only 16-bit PCM is
// accepted; that is the only format the decoder is asked to emit.
//
// Every chunk length is bounds-checked against the buffer so truncated or
// hostile input fails with ErrMalformedWAV rather than a panic.
func DecodeWAV(data []byte) (*Audio, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: file too short (%d bytes)", ErrMalformedWAV, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return nil, fmt.Errorf("%w: missing RIFF header", ErrMalformedWAV)
	}
	if string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing WAVE marker", ErrMalformedWAV)
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		haveFmt       bool
		pcm           []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if chunkID == "data" && body+chunkLen > len(data) {
			// ffmpeg writes 0xFFFFFFFF placeholder sizes when muxing to a
			// non-seekable output; the data chunk then runs to EOF.
			chunkLen = len(data) - body
		}
		if chunkLen < 0 || body+chunkLen > len(data) {
			return nil, fmt.Errorf("%w: chunk %q length %d exceeds buffer", ErrMalformedWAV, chunkID, chunkLen)
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too short (%d bytes)", ErrMalformedWAV, chunkLen)
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != wavFormatPCM {
				return nil, fmt.Errorf("%w: unsupported format tag %d", ErrMalformedWAV, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkLen]
		}

		// Chunks are word-aligned
		offset = body + chunkLen
		if chunkLen%2 == 1 {
			offset++
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("%w: no fmt chunk", ErrMalformedWAV)
	}
	if pcm == nil {
		return nil, fmt.Errorf("%w: no data chunk", ErrMalformedWAV)
	}
	if channels < 1 || channels > 16 {
		return nil, fmt.Errorf("%w: invalid channel count %d", ErrMalformedWAV, channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrMalformedWAV, sampleRate)
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrMalformedWAV, bitsPerSample)
	}

	bytesPerFrame := channels * 2
	frames := len(pcm) / bytesPerFrame
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			off := i*bytesPerFrame + c*2
			v := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			sum += float64(v) / 32768.0
		}
		samples[i] = sum / float64(channels)
	}

	return &Audio{SampleRate: sampleRate, Samples: samples}, nil
}

// EncodeWAV serializes mono float64 samples to a 16-bit PCM WAV buffer.
// Samples outside [-1, 1] are clipped. Used by tests and fixtures.
func EncodeWAV(sampleRate int, samples []float64) []byte {
	dataLen := len(samples) * 2
	buf := make([]byte, 44+dataLen)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	for i, s := range samples {
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(buf[44+i*2:46+i*2], uint16(v))
	}
	return buf
}
