package waveform

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// singleBeat builds a window with a baseline of zero and one sharp R wave.
func singleBeat(peakIdx int, amp float64) []float64 {
	s := make([]float64, Length)
	s[peakIdx] = amp
	s[peakIdx-1] = amp * 0.4
	s[peakIdx+1] = amp * 0.4
	return s
}

func requireReason(t *testing.T, err error, want Reason) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	assert.Equal(t, want, verr.Reason)
	return verr
}

func TestValidateAcceptsCleanBeat(t *testing.T) {
	s := singleBeat(40, 1.5)
	before := append([]float64(nil), s...)

	require.NoError(t, Validate(s))
	assert.Equal(t, before, s, "validation must not modify the input")
}

func TestValidateWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 129, 131, 260} {
		err := Validate(make([]float64, n))
		verr := requireReason(t, err, ReasonWrongLength)
		assert.Equal(t, n, verr.Length)
		assert.Contains(t, verr.Error(), "exactly 130")
	}
}

func TestValidateNonFinite(t *testing.T) {
	cases := map[string]float64{
		"nan":  math.NaN(),
		"+inf": math.Inf(1),
		"-inf": math.Inf(-1),
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			s := singleBeat(40, 1.5)
			s[77] = bad
			verr := requireReason(t, Validate(s), ReasonNonFinite)
			assert.Equal(t, 77, verr.Index)
		})
	}
}

func TestValidateLengthCheckedBeforeFiniteness(t *testing.T) {
	s := make([]float64, 129)
	s[0] = math.NaN()
	requireReason(t, Validate(s), ReasonWrongLength)
}

func TestValidateOutOfRange(t *testing.T) {
	t.Run("amplitude", func(t *testing.T) {
		s := singleBeat(40, 1.5)
		s[10] = -25
		verr := requireReason(t, Validate(s), ReasonOutOfRange)
		assert.Equal(t, DetailAmplitudeExceeded, verr.Detail)
		assert.Equal(t, 10, verr.Index)
	})

	t.Run("all zero", func(t *testing.T) {
		verr := requireReason(t, Validate(make([]float64, Length)), ReasonOutOfRange)
		assert.Equal(t, DetailFlatSignal, verr.Detail)
	})

	t.Run("constant offset", func(t *testing.T) {
		s := make([]float64, Length)
		for i := range s {
			s[i] = 0.7
		}
		verr := requireReason(t, Validate(s), ReasonOutOfRange)
		assert.Equal(t, DetailFlatSignal, verr.Detail)
	})

	t.Run("saturated square wave", func(t *testing.T) {
		s := make([]float64, Length)
		for i := range s {
			if (i/10)%2 == 0 {
				s[i] = 4
			} else {
				s[i] = -4
			}
		}
		verr := requireReason(t, Validate(s), ReasonOutOfRange)
		assert.Equal(t, DetailSaturated, verr.Detail)
	})

	t.Run("clipped R wave", func(t *testing.T) {
		s := make([]float64, Length)
		for i := 30; i < 50; i++ {
			s[i] = 3
		}
		verr := requireReason(t, Validate(s), ReasonOutOfRange)
		assert.Equal(t, DetailSaturated, verr.Detail)
	})
}

func TestValidateAcceptsOffsetBeat(t *testing.T) {
	for _, offset := range []float64{-1.0, -0.4, 2.5} {
		s := make([]float64, Length)
		for i := range s {
			s[i] = offset
		}
		s[39], s[40], s[41] = offset+0.6, offset+1.5, offset+0.6

		assert.NoError(t, Validate(s), "offset %v", offset)
	}
}

func TestCustomLimits(t *testing.T) {
	s := singleBeat(40, 1.5)
	limits := DefaultLimits()
	limits.MaxAbsAmplitude = 1.0

	requireReason(t, limits.Validate(s), ReasonOutOfRange)
	assert.NoError(t, DefaultLimits().Validate(s))
}
