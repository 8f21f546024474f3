package align

import "math"

// DefaultTargetRate is the envelope rate, in Hz, used for correlation.
const DefaultTargetRate = 200.0

// Envelope rectifies x and block-averages it down to roughly targetRate,
// then removes the mean. Samples after the last complete block are dropped.
// It returns the envelope and its exact rate (sampleRate / block size).
func Envelope(x []float64, sampleRate, targetRate float64) ([]float64, float64) {
	if targetRate <= 0 {
		targetRate = DefaultTargetRate
	}
	step := int(math.Floor(sampleRate / targetRate))
	if step < 1 {
		step = 1
	}
	n := len(x) / step
	y := make([]float64, n)

	inv := 1.0 / float64(step)
	for k := 0; k < n; k++ {
		var acc float64
		for _, v := range x[k*step : (k+1)*step] {
			acc += math.Abs(v)
		}
		y[k] = acc * inv
	}

	var m float64
	for _, v := range y {
		m += v
	}
	m /= math.Max(1, float64(n))
	for i := range y {
		y[i] -= m
	}
	return y, sampleRate / float64(step)
}
