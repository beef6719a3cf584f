// Package features derives physiological measurements from a validated
// single-lead ECG window: heart rate, RMSSD, QRS width, R amplitude,
// signal energy and a couple of spectral quality indicators.
package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/himanishpuri/CardioDNA/pkg/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ReasonNoPeak is reported when the window contains no detectable R wave.
const ReasonNoPeak = "no_peak_detected"

// ExtractionError is returned when a required feature cannot be computed.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("feature extraction failed: %s", e.Reason)
}

// Params tunes the detector. The zero value is not usable; start from
// DefaultParams.
type Params struct {
	SampleRate         int
	PeakThresholdRatio float64
	RefractorySeconds  float64
	QRSWidthRatio      float64
}

func DefaultParams() Params {
	return Params{
		SampleRate:         130,
		PeakThresholdRatio: 0.6,
		RefractorySeconds:  0.2,
		QRSWidthRatio:      0.5,
	}
}

// Extractor is stateless and safe for concurrent use.
type Extractor struct {
	params     Params
	refractory int
}

func NewExtractor(p Params) *Extractor {
	return &Extractor{
		params:     p,
		refractory: int(math.Round(p.RefractorySeconds * float64(p.SampleRate))),
	}
}

// Default returns an extractor for 130 Hz windows.
func Default() *Extractor {
	return NewExtractor(DefaultParams())
}

// Extract computes the feature set of one window. The input is not modified.
func (e *Extractor) Extract(samples []float64) (models.FeatureSet, models.SignalQuality, error) {
	var (
		fs      models.FeatureSet
		quality models.SignalQuality
	)
	if len(samples) == 0 {
		return fs, quality, &ExtractionError{Reason: ReasonNoPeak}
	}

	centred := removeBaseline(samples)
	peaks := DetectPeaks(centred, e.params.SampleRate, e.params.PeakThresholdRatio, e.refractory)
	if len(peaks) == 0 {
		return fs, quality, &ExtractionError{Reason: ReasonNoPeak}
	}
	for i := range peaks {
		peaks[i].Amplitude = samples[peaks[i].Index]
	}

	windowSeconds := float64(len(samples)) / float64(e.params.SampleRate)
	rr := rrIntervals(peaks)

	if len(rr) == 0 {
		fs.HeartRate = float64(len(peaks)) * 60.0 / windowSeconds
	} else {
		fs.HeartRate = 60.0 / stat.Mean(rr, nil)
	}

	if rmssd, ok := RMSSD(rr); ok {
		fs.HRVRMSSD = rmssd
		quality.HRVDefined = true
	}

	top := dominant(peaks)
	width := peakWidth(centred, top.Index, e.params.QRSWidthRatio*top.Height)
	fs.QRSDuration = float64(width) / float64(e.params.SampleRate)
	fs.RAmplitude = top.Amplitude
	fs.SignalEnergy = floats.Dot(samples, samples)

	quality.PeaksDetected = len(peaks)
	quality.RRIntervals = len(rr)
	quality.DominantFrequencyHz, quality.QRSBandPowerRatio = spectralQuality(centred, e.params.SampleRate)

	return fs, quality, nil
}

// RMSSD returns the root mean square of successive RR differences in
// milliseconds. At least two intervals are needed.
func RMSSD(rr []float64) (float64, bool) {
	if len(rr) < 2 {
		return 0, false
	}
	var sum float64
	for i := 1; i < len(rr); i++ {
		d := (rr[i] - rr[i-1]) * 1000
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(rr)-1)), true
}

func removeBaseline(samples []float64) []float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	out := make([]float64, len(samples))
	copy(out, samples)
	floats.AddConst(-median, out)
	return out
}
