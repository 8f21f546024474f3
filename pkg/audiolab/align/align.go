// Package align estimates the time offset between two recordings of the same
// material by cross-correlating their energy envelopes.
package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
)

// DefaultMaxLagSec bounds the lag search window on either side of zero.
const DefaultMaxLagSec = 1.5

const (
	MethodDirect = "direct"
	MethodFFT    = "fft"
)

var (
	ErrEmptyBuffer   = errors.New("align: buffer is empty")
	ErrUnknownMethod = errors.New("align: unknown correlation method")
)

type Options struct {
	TargetRate float64 // envelope rate in Hz
	MaxLagSec  float64
	Method     string // MethodDirect or MethodFFT
}

func DefaultOptions() Options {
	return Options{
		TargetRate: DefaultTargetRate,
		MaxLagSec:  DefaultMaxLagSec,
		Method:     MethodDirect,
	}
}

// Resolved fills zero fields with their defaults.
func (o Options) Resolved() Options {
	if o.TargetRate <= 0 {
		o.TargetRate = DefaultTargetRate
	}
	if o.MaxLagSec <= 0 {
		o.MaxLagSec = DefaultMaxLagSec
	}
	if o.Method == "" {
		o.Method = MethodDirect
	}
	return o
}

// Result is the outcome of an alignment estimate. LagSec is the shift of
// track B relative to track A: positive means B's material starts later.
type Result struct {
	LagSec       float64
	LagSamples   int     // lag in envelope samples
	EnvelopeRate float64 // Hz
	Score        float64 // normalized correlation at the chosen lag
}

// OffsetA is how far into track A playback starts at common time zero.
func (r Result) OffsetA() float64 {
	if r.LagSec < 0 {
		return -r.LagSec
	}
	return 0
}

// OffsetB is how far into track B playback starts at common time zero.
func (r Result) OffsetB() float64 {
	if r.LagSec > 0 {
		return r.LagSec
	}
	return 0
}

// CommonDuration is the length both tracks can play in sync once each is
// offset by its share of the lag. It is never negative.
func CommonDuration(durA, durB, lagSec float64) float64 {
	r := Result{LagSec: lagSec}
	d := math.Min(durA-r.OffsetA(), durB-r.OffsetB())
	if d < 0 {
		return 0
	}
	return d
}

// Estimate aligns b against a. Both are downmixed to mono; b is resampled
// to a's rate first when the rates differ.
func Estimate(a, b *audio.Buffer, opts Options) (Result, error) {
	opts = opts.Resolved()
	if a == nil || b == nil || a.Len() == 0 || b.Len() == 0 {
		return Result{}, ErrEmptyBuffer
	}
	if b.SampleRate != a.SampleRate {
		rb, err := audio.Resample(b, a.SampleRate)
		if err != nil {
			return Result{}, fmt.Errorf("resampling track B: %w", err)
		}
		b = rb
	}

	ea, rate := Envelope(a.Mono(), float64(a.SampleRate), opts.TargetRate)
	eb, _ := Envelope(b.Mono(), float64(b.SampleRate), opts.TargetRate)
	return EstimateEnvelopes(ea, eb, rate, opts)
}

// EstimateEnvelopes runs the lag search on precomputed envelopes sharing rate.
func EstimateEnvelopes(ea, eb []float64, rate float64, opts Options) (Result, error) {
	opts = opts.Resolved()
	maxLag := int(math.Floor(opts.MaxLagSec * rate))

	var lag int
	var score float64
	switch opts.Method {
	case MethodDirect:
		lag, score = BestLag(ea, eb, maxLag)
	case MethodFFT:
		lag, score = BestLagFFT(ea, eb, maxLag)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMethod, opts.Method)
	}

	return Result{
		LagSec:       float64(lag) / rate,
		LagSamples:   lag,
		EnvelopeRate: rate,
		Score:        score,
	}, nil
}
