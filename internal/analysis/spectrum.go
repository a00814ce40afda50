package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrum holds a one-sided power spectrum.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum returns the one-sided spectrum of a series sampled every dt
// seconds. The mean is removed and a Hann window applied first.
func PowerSpectrum(series []float64, dt float64) Spectrum {
	n := len(series)
	if n < 2 || dt <= 0 {
		return Spectrum{}
	}

	x := make([]float64, n)
	var mean float64
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)
	for i, v := range series {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	coeffs := fft.FFTReal(x)
	half := n/2 + 1
	s := Spectrum{Freqs: make([]float64, half), Power: make([]float64, half)}
	for k := 0; k < half; k++ {
		s.Freqs[k] = float64(k) / (float64(n) * dt)
		a := cmplx.Abs(coeffs[k])
		s.Power[k] = a * a / float64(n)
	}
	return s
}

// Dominant returns the strongest non-DC frequency of the series and its
// power. A flat series yields (0, 0).
func Dominant(series []float64, dt float64) (freq, power float64) {
	s := PowerSpectrum(series, dt)
	for k := 1; k < len(s.Power); k++ {
		if s.Power[k] > power {
			freq, power = s.Freqs[k], s.Power[k]
		}
	}
	if power < 1e-18 || math.IsNaN(power) {
		return 0, 0
	}
	return freq, power
}
