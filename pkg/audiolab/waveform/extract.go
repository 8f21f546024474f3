// Package waveform reduces audio to min/max/rms columns and rasterizes them.
package waveform

import (
	"math"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
)

// DefaultWidth is the column count used when none is given.
const DefaultWidth = 800

// Point summarizes one column of samples.
type Point struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	RMS float64 `json:"rms"`
}

// Extract downmixes buf and reduces the region starting at startSec (and at
// most maxDurationSec long, if positive) to about targetWidth points.
//
// The RMS field is sqrt(mean(|x|)), which reads louder than a true RMS for
// quiet material; Draw is tuned against it.
func Extract(buf *audio.Buffer, targetWidth int, startSec, maxDurationSec float64) []Point {
	if buf == nil || buf.Len() == 0 {
		return nil
	}
	if targetWidth <= 0 {
		targetWidth = DefaultWidth
	}
	mono := audio.Mono(buf.Slice(startSec, 0))
	return ExtractSamples(mono, buf.SampleRate, targetWidth, maxDurationSec)
}

// ExtractSamples is Extract over an already mono signal.
func ExtractSamples(mono []float64, sampleRate, targetWidth int, maxDurationSec float64) []Point {
	samples := len(mono)
	if maxDurationSec > 0 {
		if maxSamples := int(math.Floor(maxDurationSec * float64(sampleRate))); maxSamples < samples {
			samples = maxSamples
		}
	}
	if samples <= 0 {
		return nil
	}
	if targetWidth <= 0 {
		targetWidth = DefaultWidth
	}

	step := samples / targetWidth
	if step < 1 {
		step = 1
	}
	n := samples / step
	points := make([]Point, n)
	for i := range points {
		lo, hi := 1.0, -1.0
		var sum float64
		for _, v := range mono[i*step : (i+1)*step] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
			sum += math.Abs(v)
		}
		points[i] = Point{Min: lo, Max: hi, RMS: math.Sqrt(sum / float64(step))}
	}
	return points
}

// SeekFraction maps a horizontal position on a waveform of the given width
// to a [0, 1] fraction of the common duration.
func SeekFraction(x, width float64) float64 {
	if width <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, x/width))
}

// SeekTime converts a scrub position to common time in seconds.
func SeekTime(x, width, commonDuration float64) float64 {
	return SeekFraction(x, width) * commonDuration
}
