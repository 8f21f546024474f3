package align

import "math"

// normEpsilon keeps silent envelopes from dividing by zero.
const normEpsilon = 1e-8

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s) + normEpsilon
}

// lagOverlap returns the index range of a that overlaps b shifted by lag.
func lagOverlap(lenA, lenB, lag int) (t0, t1 int) {
	t0 = 0
	if lag < 0 {
		t0 = -lag
	}
	t1 = lenA
	if lenB-lag < t1 {
		t1 = lenB - lag
	}
	return t0, t1
}

// better reports whether (score, lag) beats the current best. Ties prefer
// the lag closest to zero, then the negative one.
func better(score float64, lag int, best float64, bestLag int) bool {
	if score != best {
		return score > best
	}
	al, ab := abs(lag), abs(bestLag)
	if al != ab {
		return al < ab
	}
	return lag < bestLag
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// BestLag searches lags in [-maxLag, maxLag] for the one maximizing
//
//	sum_t a[t]*b[t+lag] / (|a| |b|)
//
// over the overlapping region. A positive lag means b's content arrives
// later than a's.
func BestLag(a, b []float64, maxLag int) (int, float64) {
	if maxLag < 0 {
		maxLag = 0
	}
	na, nb := norm(a), norm(b)
	denom := na * nb

	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		t0, t1 := lagOverlap(len(a), len(b), lag)
		var sum float64
		for t := t0; t < t1; t++ {
			sum += a[t] * b[t+lag]
		}
		sum /= denom
		if better(sum, lag, best, bestLag) {
			best = sum
			bestLag = lag
		}
	}
	return bestLag, best
}
