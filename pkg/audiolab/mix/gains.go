// Package mix implements equal-power A/B crossfading and synchronized
// dual-track playback over an aligned pair.
package mix

import "math"

// Gains describes one slider position. Slider 0 is all A, 100 is all B.
type Gains struct {
	A, B           float64 // equal-power amplitudes
	ARatio, BRatio float64 // linear share, used for waveform opacity
	APct, BPct     int     // label percentages, always summing to 100
}

// EqualPower maps a 0-100 slider to cos/sin gains so the summed power stays
// constant across the sweep. Out-of-range values are clamped.
func EqualPower(slider int) Gains {
	p := clampInt(slider, 0, 100)
	bRatio := float64(p) / 100
	aRatio := 1 - bRatio
	theta := bRatio * math.Pi / 2

	aPct := int(math.Round(aRatio * 100))
	return Gains{
		A:      math.Cos(theta),
		B:      math.Sin(theta),
		ARatio: aRatio,
		BRatio: bRatio,
		APct:   aPct,
		BPct:   100 - aPct,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
