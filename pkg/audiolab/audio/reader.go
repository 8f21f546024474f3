package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

var (
	ErrInvalidWAV        = errors.New("audio: not a valid WAV file")
	ErrUnsupportedFormat = errors.New("audio: unsupported WAV encoding")
)

const wavFormatPCM = 1

// DecodeWAV reads an integer PCM WAV stream (8, 16, 24 or 32 bit, any
// channel count) into a normalized planar Buffer. 8-bit samples are
// unsigned with silence at 128.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, d.BitDepth)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding PCM samples: %w", err)
	}
	if pcm == nil || len(pcm.Data) == 0 {
		return nil, ErrNoSamples
	}

	numChans := int(d.NumChans)
	if numChans == 0 {
		return nil, ErrInvalidWAV
	}
	scale := 1.0 / float64(int64(1)<<(uint(d.BitDepth)-1))
	offset := 0
	if d.BitDepth == 8 {
		offset = 128
	}

	frames := len(pcm.Data) / numChans
	if frames == 0 {
		return nil, ErrNoSamples
	}
	chans := make([][]float64, numChans)
	for c := range chans {
		chans[c] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < numChans; c++ {
			chans[c][i] = float64(pcm.Data[i*numChans+c]-offset) * scale
		}
	}

	return NewBuffer(int(d.SampleRate), chans...)
}

// ReadWAVFile decodes a WAV file from disk.
func ReadWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return buf, nil
}

// ReadFile decodes any audio file. WAV files are decoded in-process; other
// containers, and WAV encodings the decoder does not handle, are converted
// with ffmpeg into tempDir first.
func ReadFile(ctx context.Context, path, tempDir string, cfg ConvertWAVConfig) (*Buffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		buf, err := ReadWAVFile(path)
		if err == nil {
			if cfg.SampleRate > 0 && buf.SampleRate != cfg.SampleRate {
				return Resample(buf, cfg.SampleRate)
			}
			return buf, nil
		}
		if !errors.Is(err, ErrUnsupportedFormat) {
			return nil, err
		}
	}

	wavPath, err := ConvertToWAV(ctx, path, tempDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer os.Remove(wavPath)

	return ReadWAVFile(wavPath)
}
