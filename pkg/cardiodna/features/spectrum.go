package features

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// QRS energy concentrates in this band.
const (
	qrsBandLowHz  = 5.0
	qrsBandHighHz = 15.0
)

// PowerSpectrum applies a Hamming window and returns |X(k)|² for the
// non-negative frequency bins 0..n/2.
func PowerSpectrum(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}

	frame := make([]float64, len(x))
	copy(frame, x)
	window.Apply(frame, window.Hamming)

	spec := fft.FFTReal(frame)
	half := len(spec)/2 + 1
	power := make([]float64, half)
	for k := 0; k < half; k++ {
		m := cmplx.Abs(spec[k])
		power[k] = m * m
	}
	return power
}

// spectralQuality returns the strongest non-DC frequency and the share of
// non-DC power inside the QRS band. An all-zero spectrum yields zeros.
func spectralQuality(x []float64, sampleRate int) (dominantHz, bandRatio float64) {
	power := PowerSpectrum(x)
	if len(power) < 2 {
		return 0, 0
	}

	binHz := float64(sampleRate) / float64(len(x))

	var total, band float64
	best := 0
	for k := 1; k < len(power); k++ {
		p := power[k]
		total += p
		f := float64(k) * binHz
		if f >= qrsBandLowHz && f <= qrsBandHighHz {
			band += p
		}
		if best == 0 || p > power[best] {
			best = k
		}
	}

	if total <= 0 {
		return 0, 0
	}
	return float64(best) * binHz, band / total
}
