package features

import (
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/CardioDNA/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const n = 130

func requireNoPeak(t *testing.T, err error) {
	t.Helper()
	var eerr *ExtractionError
	require.True(t, errors.As(err, &eerr), "expected *ExtractionError, got %v", err)
	assert.Equal(t, ReasonNoPeak, eerr.Reason)
}

func TestExtractSingleBeat(t *testing.T) {
	s := synth.Beat(n, 40, 1.5)

	fs, q, err := Default().Extract(s)
	require.NoError(t, err)

	assert.InDelta(t, 60.0, fs.HeartRate, 1e-9)
	assert.Equal(t, 1.5, fs.RAmplitude)
	assert.Equal(t, 0.0, fs.HRVRMSSD)
	assert.InDelta(t, 5.0/130.0, fs.QRSDuration, 1e-12)
	assert.Greater(t, fs.QRSDuration, 0.0)

	assert.Equal(t, 1, q.PeaksDetected)
	assert.Equal(t, 0, q.RRIntervals)
	assert.False(t, q.HRVDefined)
}

func TestExtractSignalEnergy(t *testing.T) {
	s := synth.New(130, 72, 0.01, 1.0).Samples(n)

	var want float64
	for _, v := range s {
		want += v * v
	}

	fs, _, err := Default().Extract(s)
	require.NoError(t, err)
	assert.InDelta(t, want, fs.SignalEnergy, 1e-9)
	assert.GreaterOrEqual(t, fs.SignalEnergy, 0.0)
}

func TestExtractMultiBeat(t *testing.T) {
	s := synth.Pulses(n, 1.0, 10, 50, 95)

	fs, q, err := Default().Extract(s)
	require.NoError(t, err)

	assert.Equal(t, 3, q.PeaksDetected)
	assert.Equal(t, 2, q.RRIntervals)
	assert.True(t, q.HRVDefined)

	assert.InDelta(t, 60.0*130.0/42.5, fs.HeartRate, 1e-9)
	assert.InDelta(t, 5.0/130.0*1000, fs.HRVRMSSD, 1e-9)
	assert.InDelta(t, 1.0, fs.RAmplitude, 1e-9)
}

func TestExtractTwoBeatsHasNoHRV(t *testing.T) {
	s := synth.Pulses(n, 1.0, 20, 85)

	fs, q, err := Default().Extract(s)
	require.NoError(t, err)
	assert.Equal(t, 2, q.PeaksDetected)
	assert.False(t, q.HRVDefined)
	assert.Equal(t, 0.0, fs.HRVRMSSD)
	assert.InDelta(t, 60.0*130.0/65.0, fs.HeartRate, 1e-9)
}

func TestExtractRefractoryKeepsTallerPeak(t *testing.T) {
	s := make([]float64, n)
	s[30] = 1.0
	s[40] = 1.4

	fs, q, err := Default().Extract(s)
	require.NoError(t, err)
	assert.Equal(t, 1, q.PeaksDetected)
	assert.Equal(t, 1.4, fs.RAmplitude)
}

func TestExtractEdgePeak(t *testing.T) {
	s := make([]float64, n)
	s[0] = 1.0

	fs, q, err := Default().Extract(s)
	require.NoError(t, err)
	assert.Equal(t, 1, q.PeaksDetected)
	assert.InDelta(t, 60.0, fs.HeartRate, 1e-9)
	assert.InDelta(t, 1.0/130.0, fs.QRSDuration, 1e-12)
}

func TestExtractNoPeak(t *testing.T) {
	_, _, err := Default().Extract(make([]float64, n))
	requireNoPeak(t, err)

	_, _, err = Default().Extract(nil)
	requireNoPeak(t, err)

	// Only downward deflections: nothing above the baseline.
	s := make([]float64, n)
	s[50] = -1.0
	_, _, err = Default().Extract(s)
	requireNoPeak(t, err)
}

func TestExtractDeterministic(t *testing.T) {
	s := synth.New(130, 80, 0.05, 1.0).WithPhase(0.1).Samples(n)
	before := append([]float64(nil), s...)

	fs1, q1, err1 := Default().Extract(s)
	fs2, q2, err2 := Default().Extract(s)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, fs1, fs2)
	assert.Equal(t, q1, q2)
	assert.Equal(t, before, s)
}

func TestRMSSD(t *testing.T) {
	_, ok := RMSSD(nil)
	assert.False(t, ok)
	_, ok = RMSSD([]float64{0.8})
	assert.False(t, ok)

	v, ok := RMSSD([]float64{0.8, 0.8, 0.8})
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)

	v, ok = RMSSD([]float64{0.80, 0.85, 0.80})
	assert.True(t, ok)
	assert.InDelta(t, 50.0, v, 1e-9)
}

func TestSpectralQuality(t *testing.T) {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.Sin(2 * math.Pi * 10 * float64(i) / 130)
	}

	dom, ratio := spectralQuality(s, 130)
	assert.InDelta(t, 10.0, dom, 1e-9)
	assert.Greater(t, ratio, 0.9)
	assert.LessOrEqual(t, ratio, 1.0)

	dom, ratio = spectralQuality(make([]float64, n), 130)
	assert.Equal(t, 0.0, dom)
	assert.Equal(t, 0.0, ratio)
}

func TestPowerSpectrumLength(t *testing.T) {
	assert.Len(t, PowerSpectrum(make([]float64, n)), n/2+1)
	assert.Nil(t, PowerSpectrum(nil))
}
