package waveform

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplesUnmarshal(t *testing.T) {
	var s Samples
	err := json.Unmarshal([]byte(`[0, -1.5, 2e-3, "NaN", "Infinity", "-Infinity", null, 1e400]`), &s)
	require.NoError(t, err)
	require.Len(t, s, 8)

	assert.Equal(t, 0.0, s[0])
	assert.Equal(t, -1.5, s[1])
	assert.InDelta(t, 0.002, s[2], 1e-12)
	assert.True(t, math.IsNaN(s[3]))
	assert.True(t, math.IsInf(s[4], 1))
	assert.True(t, math.IsInf(s[5], -1))
	assert.True(t, math.IsNaN(s[6]))
	assert.True(t, math.IsInf(s[7], 1))
}

func TestSamplesUnmarshalRejectsGarbage(t *testing.T) {
	cases := []string{
		`{"a": 1}`,
		`[1, true]`,
		`[1, "abc"]`,
		`[1, [2]]`,
	}
	for _, c := range cases {
		var s Samples
		assert.Error(t, json.Unmarshal([]byte(c), &s), c)
	}
}

func TestReadJSON(t *testing.T) {
	rec, err := ReadJSON(strings.NewReader(`{"ecg_signal": [1, 2, 3]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, rec.Samples)
	assert.Equal(t, SampleRate, rec.SampleRate)

	rec, err = ReadJSON(strings.NewReader(` [4, 5]`))
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, rec.Samples)

	_, err = ReadJSON(strings.NewReader(`{"signal": [1]}`))
	assert.ErrorContains(t, err, "ecg_signal")
}

func TestReadCSV(t *testing.T) {
	rec, err := ReadCSV(strings.NewReader("mv\n0.1\n0.2\n-0.3\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, -0.3}, rec.Samples)

	rec, err = ReadCSV(strings.NewReader("1,2,3\n4, 5,6\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, rec.Samples)

	_, err = ReadCSV(strings.NewReader("1,2\n3,x\n"))
	assert.ErrorContains(t, err, "row 2")

	_, err = ReadCSV(strings.NewReader("header\n"))
	assert.Error(t, err)
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beat.wav")
	samples := singleBeat(40, 0.5)

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(f, samples, SampleRate))
	require.NoError(t, f.Close())

	rec, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, SampleRate, rec.SampleRate)
	assert.Equal(t, path, rec.Source)
	require.Len(t, rec.Samples, len(samples))
	for i := range samples {
		assert.InDelta(t, samples[i], rec.Samples[i], 1e-3, "sample %d", i)
	}
	assert.InDelta(t, 1.0, rec.Duration(), 1e-9)
}

func TestReadFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := ReadFile(path)
	assert.ErrorContains(t, err, "unsupported")
}

func TestWindows(t *testing.T) {
	samples := make([]float64, Length*3+17)
	for i := range samples {
		samples[i] = float64(i)
	}

	windows := Windows(samples)
	require.Len(t, windows, 3)
	for i, w := range windows {
		assert.Len(t, w, Length)
		assert.Equal(t, float64(i*Length), w[0])
	}

	assert.Empty(t, Windows(make([]float64, Length-1)))
}
