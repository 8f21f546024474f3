package spatial

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	FFTSize               = 256
	SmoothingTimeConstant = 0.8
	MinDecibels           = -100.0
	MaxDecibels           = -30.0
)

// Analyser reproduces a browser AnalyserNode's byte frequency data: a
// Blackman-windowed FFT over the most recent FFTSize samples, smoothed over
// time and mapped from [MinDecibels, MaxDecibels] onto 0..255.
type Analyser struct {
	window   []float64
	ring     []float64
	pos      int
	smoothed []float64
	frame    []float64
	bytes    []byte
}

func NewAnalyser() *Analyser {
	return &Analyser{
		window:   window.Blackman(FFTSize),
		ring:     make([]float64, FFTSize),
		smoothed: make([]float64, FFTSize/2),
		frame:    make([]float64, FFTSize),
		bytes:    make([]byte, FFTSize/2),
	}
}

// Write appends samples to the time-domain history.
func (a *Analyser) Write(samples []float64) {
	if len(samples) > FFTSize {
		samples = samples[len(samples)-FFTSize:]
	}
	for _, v := range samples {
		a.ring[a.pos] = v
		a.pos = (a.pos + 1) % FFTSize
	}
}

// Reset clears history and smoothing state.
func (a *Analyser) Reset() {
	for i := range a.ring {
		a.ring[i] = 0
	}
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
	a.pos = 0
}

// ByteFrequencyData analyses the current history and returns FFTSize/2
// bins. The returned slice is reused by the next call.
func (a *Analyser) ByteFrequencyData() []byte {
	for i := range a.frame {
		a.frame[i] = a.ring[(a.pos+i)%FFTSize] * a.window[i]
	}
	bins := fft.FFTReal(a.frame)

	scale := 255 / (MaxDecibels - MinDecibels)
	for k := range a.smoothed {
		mag := cmplx.Abs(bins[k]) / FFTSize
		a.smoothed[k] = SmoothingTimeConstant*a.smoothed[k] + (1-SmoothingTimeConstant)*mag

		db := math.Inf(-1)
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		v := math.Floor(scale * (db - MinDecibels))
		a.bytes[k] = byte(math.Max(0, math.Min(255, v)))
	}
	return a.bytes
}

// Level is the mean of ByteFrequencyData normalized to [0, 1].
func (a *Analyser) Level() float64 {
	var sum float64
	data := a.ByteFrequencyData()
	for _, b := range data {
		sum += float64(b)
	}
	return sum / float64(len(data)) / 255
}
