// Package waveform holds the single-lead ECG window contract: its shape,
// the gatekeeping checks applied before any numeric work, and file I/O.
package waveform

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// SampleRate of every accepted window, in Hz.
	SampleRate = 130
	// Length is the number of samples in one window (one second).
	Length = 130
)

// Reason is the machine-readable cause of a rejected waveform.
type Reason string

const (
	ReasonWrongLength Reason = "wrong_length"
	ReasonNonFinite   Reason = "non_finite_value"
	ReasonOutOfRange  Reason = "out_of_range"
)

// Sub-reasons reported in ValidationError.Detail for out_of_range.
const (
	DetailAmplitudeExceeded = "amplitude_exceeded"
	DetailFlatSignal        = "flat_signal"
	DetailSaturated         = "saturated"
)

// ValidationError is returned for every rejected waveform.
type ValidationError struct {
	Reason Reason
	// Index of the offending sample, -1 when the failure is not tied to one.
	Index  int
	Detail string
	Length int
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonWrongLength:
		return fmt.Sprintf("ecg_signal must have exactly %d values (got %d)", Length, e.Length)
	case ReasonNonFinite:
		return fmt.Sprintf("ecg_signal[%d] is not a finite number", e.Index)
	case ReasonOutOfRange:
		if e.Index >= 0 {
			return fmt.Sprintf("ecg_signal out of range (%s at index %d)", e.Detail, e.Index)
		}
		return fmt.Sprintf("ecg_signal out of range (%s)", e.Detail)
	default:
		return "invalid ecg_signal"
	}
}

// Limits bounds what counts as a physiologically sane window.
type Limits struct {
	// MaxAbsAmplitude rejects any sample with a larger magnitude.
	MaxAbsAmplitude float64
	// MinPeakToPeak rejects flat lines, including the all-zero window.
	MinPeakToPeak float64
	// MaxClippedFraction rejects windows where more than this share of
	// samples sit at the maximum magnitude (a clipped front end).
	MaxClippedFraction float64
}

// DefaultLimits suits millivolt-scaled input.
func DefaultLimits() Limits {
	return Limits{
		MaxAbsAmplitude:    20.0,
		MinPeakToPeak:      1e-6,
		MaxClippedFraction: 0.10,
	}
}

// Validate checks samples against DefaultLimits.
func Validate(samples []float64) error {
	return DefaultLimits().Validate(samples)
}

// Validate checks, in order, length, finiteness and amplitude range.
// It never modifies samples.
func (l Limits) Validate(samples []float64) error {
	if len(samples) != Length {
		return &ValidationError{Reason: ReasonWrongLength, Index: -1, Length: len(samples)}
	}

	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Reason: ReasonNonFinite, Index: i, Length: len(samples)}
		}
	}

	for i, v := range samples {
		if math.Abs(v) > l.MaxAbsAmplitude {
			return &ValidationError{Reason: ReasonOutOfRange, Index: i, Detail: DetailAmplitudeExceeded, Length: len(samples)}
		}
	}

	if floats.Max(samples)-floats.Min(samples) < l.MinPeakToPeak {
		return &ValidationError{Reason: ReasonOutOfRange, Index: -1, Detail: DetailFlatSignal, Length: len(samples)}
	}

	// Rails are measured from the window's own baseline, so a DC offset is
	// not mistaken for clipping.
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	baseline := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	dev := make([]float64, len(samples))
	for i, v := range samples {
		dev[i] = math.Abs(v - baseline)
	}
	rail := floats.Max(dev)

	clipped := 0
	for _, d := range dev {
		if d >= rail*(1-1e-9) {
			clipped++
		}
	}
	if float64(clipped) > l.MaxClippedFraction*float64(len(samples)) {
		return &ValidationError{Reason: ReasonOutOfRange, Index: -1, Detail: DetailSaturated, Length: len(samples)}
	}

	return nil
}
