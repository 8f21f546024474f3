package audio

import (
	"errors"
	"math"
)

var (
	ErrNoSamples       = errors.New("audio: buffer has no samples")
	ErrInvalidRate     = errors.New("audio: sample rate must be positive")
	ErrChannelMismatch = errors.New("audio: channels have different lengths")
)

// Buffer holds decoded planar PCM. Samples are normalized to [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float64
}

// NewBuffer validates and wraps planar channel data.
func NewBuffer(sampleRate int, channels ...[]float64) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidRate
	}
	if len(channels) == 0 {
		return nil, ErrNoSamples
	}
	n := len(channels[0])
	for _, ch := range channels[1:] {
		if len(ch) != n {
			return nil, ErrChannelMismatch
		}
	}
	return &Buffer{SampleRate: sampleRate, Channels: channels}, nil
}

// FromInterleaved splits interleaved samples into a planar buffer. A trailing
// partial frame is dropped.
func FromInterleaved(samples []float64, numChannels, sampleRate int) (*Buffer, error) {
	if numChannels <= 0 {
		return nil, errors.New("audio: channel count must be positive")
	}
	frames := len(samples) / numChannels
	chans := make([][]float64, numChannels)
	for c := range chans {
		chans[c] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			chans[c][i] = samples[i*numChannels+c]
		}
	}
	return NewBuffer(sampleRate, chans...)
}

func (b *Buffer) NumChannels() int { return len(b.Channels) }

// Len returns the number of frames.
func (b *Buffer) Len() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate)
}

// Mono downmixes the buffer by averaging all channels. A mono buffer's
// channel is returned without copying.
func (b *Buffer) Mono() []float64 {
	return Mono(b)
}

// Mono downmixes buf by averaging its channels.
func Mono(buf *Buffer) []float64 {
	if buf == nil || len(buf.Channels) == 0 {
		return nil
	}
	if len(buf.Channels) == 1 {
		return buf.Channels[0]
	}
	n := buf.Len()
	out := make([]float64, n)
	scale := 1.0 / float64(len(buf.Channels))
	for _, ch := range buf.Channels {
		for i := 0; i < n; i++ {
			out[i] += ch[i]
		}
	}
	for i := range out {
		out[i] *= scale
	}
	return out
}

// Channel returns channel c, or channel 0 when c is out of range.
func (b *Buffer) Channel(c int) []float64 {
	if c < 0 || c >= len(b.Channels) {
		return b.Channels[0]
	}
	return b.Channels[c]
}

// Frame converts a time in seconds to a frame index (floored, clamped to [0, Len]).
func (b *Buffer) Frame(sec float64) int {
	f := int(math.Floor(sec * float64(b.SampleRate)))
	if f < 0 {
		return 0
	}
	if n := b.Len(); f > n {
		return n
	}
	return f
}

// Slice returns a view covering [startSec, startSec+durSec). A non-positive
// durSec means "to the end". The view shares sample memory with b.
func (b *Buffer) Slice(startSec, durSec float64) *Buffer {
	start := b.Frame(startSec)
	end := b.Len()
	if durSec > 0 {
		if e := start + int(math.Floor(durSec*float64(b.SampleRate))); e < end {
			end = e
		}
	}
	chans := make([][]float64, len(b.Channels))
	for c, ch := range b.Channels {
		chans[c] = ch[start:end]
	}
	return &Buffer{SampleRate: b.SampleRate, Channels: chans}
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float64 {
	var p float64
	for _, ch := range b.Channels {
		for _, v := range ch {
			if a := math.Abs(v); a > p {
				p = a
			}
		}
	}
	return p
}
