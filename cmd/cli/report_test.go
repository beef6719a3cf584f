package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/CardioDNA/internal/synth"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/model"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/waveform"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
	"github.com/himanishpuri/CardioDNA/pkg/models"
)

func newTestService(t *testing.T) cardiodna.Service {
	t.Helper()

	c, err := model.NewClassifier(model.GenerateArtifact(1))
	require.NoError(t, err)

	svc, err := cardiodna.NewService(
		cardiodna.WithDBPath(filepath.Join(t.TempDir(), "cli.sqlite3")),
		cardiodna.WithClassifier(c),
		cardiodna.WithLogger(logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestSplitArgs(t *testing.T) {
	positional, flags := splitArgs([]string{"rec.json", "--db", "x.sqlite3", "--json", "--model=m.json"})
	assert.Equal(t, []string{"rec.json"}, positional)
	assert.Equal(t, []string{"--db", "x.sqlite3", "--json", "--model=m.json"}, flags)

	positional, flags = splitArgs([]string{"--db", "x.sqlite3", "rec.json"})
	assert.Equal(t, []string{"rec.json"}, positional)
	assert.Equal(t, []string{"--db", "x.sqlite3"}, flags)

	positional, _ = splitArgs([]string{"--json", "rec.json"})
	assert.Equal(t, []string{"rec.json"}, positional)
}

func TestWriteSamplesFormats(t *testing.T) {
	dir := t.TempDir()
	samples := synth.Beat(waveform.Length, 40, 1.5)

	for _, name := range []string{"beat.json", "beat.csv", "beat.wav"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, writeSamples(path, samples))

			rec, err := waveform.ReadFile(path)
			require.NoError(t, err)
			require.Len(t, rec.Samples, len(samples))
			assert.InDelta(t, 1.5, rec.Samples[40], 1e-3)
		})
	}

	assert.Error(t, writeSamples(filepath.Join(dir, "beat.mp3"), samples))
}

func TestClassifyFile(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	ctx := context.Background()

	single := filepath.Join(dir, "single.json")
	require.NoError(t, writeSamples(single, synth.Beat(waveform.Length, 40, 1.5)))

	rows := classifyFile(ctx, svc, single)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Error)
	assert.Equal(t, "single.json", rows[0].File)
	assert.Contains(t, []string{string(models.DiagnosisNormal), string(models.DiagnosisAbnormal)}, rows[0].Diagnosis)
	assert.InDelta(t, 60.0, rows[0].HeartRate, 1e-9)
	assert.Equal(t, 1, rows[0].ModelVersion)

	// Two full windows, the second one flat, plus a dropped partial tail.
	long := append(synth.Beat(waveform.Length, 40, 1.5), make([]float64, waveform.Length+10)...)
	multi := filepath.Join(dir, "multi.csv")
	require.NoError(t, writeSamples(multi, long))

	rows = classifyFile(ctx, svc, multi)
	require.Len(t, rows, 2)
	assert.Empty(t, rows[0].Error)
	assert.Equal(t, 1, rows[1].Window)
	assert.Equal(t, 1000, rows[1].OffsetMs)
	assert.NotEmpty(t, rows[1].Error)
	assert.Empty(t, rows[1].Diagnosis)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o644))
	rows = classifyFile(ctx, svc, broken)
	require.Len(t, rows, 1)
	assert.Equal(t, -1, rows[0].Window)
	assert.NotEmpty(t, rows[0].Error)
}

func TestClassifyFileRejectsOtherSampleRates(t *testing.T) {
	svc := newTestService(t)
	path := filepath.Join(t.TempDir(), "holter.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, waveform.WriteWAV(f, synth.Beat(250, 80, 1.5), 250))
	require.NoError(t, f.Close())

	rows := classifyFile(context.Background(), svc, path)
	require.Len(t, rows, 1)
	assert.Equal(t, -1, rows[0].Window)
	assert.Empty(t, rows[0].Diagnosis)
	assert.Contains(t, rows[0].Error, "250 Hz")

	rec, err := waveform.ReadFile(path)
	require.NoError(t, err)
	assert.Error(t, checkSampleRate(rec))
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.csv")
	require.NoError(t, ensureParentDir(path))

	res := &models.PredictionResult{
		ModelVersion: 3,
		Diagnosis:    models.DiagnosisNormal,
		Probability:  0.75,
		Features:     models.FeatureSet{HeartRate: 60, QRSDuration: 0.04},
	}
	rows := []reportRow{
		newReportRow("a.json", 0, 0, res, nil),
		newReportRow("b.json", -1, 0, nil, os.ErrNotExist),
	}
	require.NoError(t, writeReport(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var back []reportRow
	require.NoError(t, gocsv.UnmarshalFile(f, &back))
	require.Len(t, back, 2)
	assert.Equal(t, "Normal Sinus Rhythm", back[0].Diagnosis)
	assert.Equal(t, 3, back[0].ModelVersion)
	assert.InDelta(t, 0.75, back[0].Probability, 1e-12)
	assert.Equal(t, os.ErrNotExist.Error(), back[1].Error)
}

func TestDescribeModel(t *testing.T) {
	c, err := model.NewClassifier(model.GenerateArtifact(1))
	require.NoError(t, err)

	assert.Equal(t, "130 samples -> [Normal Sinus Rhythm, Abnormal]", describeModel(c))
}
