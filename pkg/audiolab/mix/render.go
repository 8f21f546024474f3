package mix

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/align"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
)

// Render mixes the whole common region at a fixed slider position and
// writes it to w as a stereo WAV at A's sample rate.
func Render(a, b *audio.Buffer, res align.Result, slider, bitDepth int, w io.WriteSeeker) error {
	buf, err := RenderBuffer(a, b, res, slider)
	if err != nil {
		return err
	}
	if err := audio.EncodeWAV(w, buf, bitDepth); err != nil {
		return fmt.Errorf("encoding mix: %w", err)
	}
	return nil
}

// RenderBuffer is Render without the encoding step.
func RenderBuffer(a, b *audio.Buffer, res align.Result, slider int) (*audio.Buffer, error) {
	m, err := NewMixer(a, b, res)
	if err != nil {
		return nil, err
	}
	m.SetMixNow(slider)

	frames := int(math.Floor(m.CommonDuration() * float64(m.SampleRate())))
	if frames <= 0 {
		return nil, audio.ErrNoSamples
	}
	left := make([]float64, 0, frames)
	right := make([]float64, 0, frames)

	chunk := make([]byte, 4096*BytesPerFrame)
	for {
		n, err := m.Read(chunk)
		for i := 0; i+BytesPerFrame <= n; i += BytesPerFrame {
			l, r := decodeFrame(chunk[i:])
			left = append(left, float64(l))
			right = append(right, float64(r))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return audio.NewBuffer(m.SampleRate(), left, right)
}
