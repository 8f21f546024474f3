package audio

import (
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV writes buf as integer PCM. bitDepth defaults to 16; 8-bit
// output is unsigned. Samples outside [-1, 1] are clipped.
func EncodeWAV(w io.WriteSeeker, buf *Buffer, bitDepth int) error {
	if buf == nil || buf.Len() == 0 {
		return ErrNoSamples
	}
	if bitDepth == 0 {
		bitDepth = 16
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, bitDepth)
	}

	numChans := buf.NumChannels()
	maxVal := float64(int64(1)<<(uint(bitDepth)-1)) - 1
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	frames := buf.Len()

	data := make([]int, frames*numChans)
	for i := 0; i < frames; i++ {
		for c := 0; c < numChans; c++ {
			v := math.Max(-1, math.Min(1, buf.Channels[c][i]))
			data[i*numChans+c] = int(math.Round(v*maxVal)) + offset
		}
	}

	enc := wav.NewEncoder(w, buf.SampleRate, bitDepth, numChans, wavFormatPCM)
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: numChans, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("writing WAV samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing WAV: %w", err)
	}
	return nil
}
