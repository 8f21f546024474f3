package align

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// BestLagFFT computes the same search as BestLag via the frequency domain:
// corr = IFFT(conj(FFT(a)) * FFT(b)). It is O(n log n) in the envelope
// length instead of O(n * maxLag).
func BestLagFFT(a, b []float64, maxLag int) (int, float64) {
	if maxLag < 0 {
		maxLag = 0
	}
	na, nb := norm(a), norm(b)
	if len(a) == 0 || len(b) == 0 || na <= 2*normEpsilon || nb <= 2*normEpsilon {
		return 0, 0
	}
	denom := na * nb

	size := nextPow2(len(a) + len(b) - 1)
	pa := make([]float64, size)
	pb := make([]float64, size)
	copy(pa, a)
	copy(pb, b)

	fa := fft.FFTReal(pa)
	fb := fft.FFTReal(pb)
	prod := make([]complex128, size)
	for i := range prod {
		c := fa[i]
		prod[i] = complex(real(c), -imag(c)) * fb[i]
	}
	corr := fft.IFFT(prod)

	// corr[k] holds sum_t a[t]*b[t+k] for k >= 0 and, wrapped around,
	// lag k-size for the negative side.
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		var sum float64
		switch {
		case lag >= len(b) || -lag >= len(a):
			sum = 0
		case lag >= 0:
			sum = real(corr[lag])
		default:
			sum = real(corr[size+lag])
		}
		sum /= denom
		if better(sum, lag, best, bestLag) {
			best = sum
			bestLag = lag
		}
	}
	return bestLag, best
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
