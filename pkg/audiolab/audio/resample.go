package audio

import "math"

// Resample converts buf to rate using linear interpolation per channel.
func Resample(buf *Buffer, rate int) (*Buffer, error) {
	if rate <= 0 {
		return nil, ErrInvalidRate
	}
	if buf == nil || buf.Len() == 0 {
		return nil, ErrNoSamples
	}
	if buf.SampleRate == rate {
		return buf, nil
	}

	ratio := float64(buf.SampleRate) / float64(rate)
	inLen := buf.Len()
	outLen := int(math.Floor(float64(inLen) / ratio))
	if outLen == 0 {
		return nil, ErrNoSamples
	}

	chans := make([][]float64, buf.NumChannels())
	for c, in := range buf.Channels {
		out := make([]float64, outLen)
		for i := range out {
			pos := float64(i) * ratio
			j := int(pos)
			frac := pos - float64(j)
			if j+1 < inLen {
				out[i] = in[j]*(1-frac) + in[j+1]*frac
			} else {
				out[i] = in[inLen-1]
			}
		}
		chans[c] = out
	}
	return &Buffer{SampleRate: rate, Channels: chans}, nil
}
