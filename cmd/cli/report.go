package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/waveform"
	"github.com/himanishpuri/CardioDNA/pkg/models"
)

// reportRow is one line of the batch CSV report: a window of a file, or a
// file that could not be classified at all.
type reportRow struct {
	File         string  `csv:"file"`
	Window       int     `csv:"window"`
	OffsetMs     int     `csv:"offset_ms"`
	Diagnosis    string  `csv:"diagnosis"`
	Probability  float64 `csv:"probability"`
	HeartRate    float64 `csv:"heart_rate"`
	HRVRMSSD     float64 `csv:"hrv_rmssd"`
	QRSDuration  float64 `csv:"qrs_duration"`
	RAmplitude   float64 `csv:"r_amplitude"`
	SignalEnergy float64 `csv:"signal_energy"`
	ModelVersion int     `csv:"model_version"`
	Error        string  `csv:"error"`
}

func newReportRow(file string, index, offsetMs int, res *models.PredictionResult, err error) reportRow {
	row := reportRow{File: file, Window: index, OffsetMs: offsetMs}
	if err != nil {
		row.Error = err.Error()
		return row
	}
	row.Diagnosis = string(res.Diagnosis)
	row.Probability = res.Probability
	row.HeartRate = res.Features.HeartRate
	row.HRVRMSSD = res.Features.HRVRMSSD
	row.QRSDuration = res.Features.QRSDuration
	row.RAmplitude = res.Features.RAmplitude
	row.SignalEnergy = res.Features.SignalEnergy
	row.ModelVersion = res.ModelVersion
	return row
}

// classifyFile never fails: read and pipeline errors become report rows.
func classifyFile(ctx context.Context, svc cardiodna.Service, path string) []reportRow {
	name := filepath.Base(path)

	rec, err := waveform.ReadFile(path)
	if err == nil {
		err = checkSampleRate(rec)
	}
	if err != nil {
		return []reportRow{newReportRow(name, -1, 0, nil, err)}
	}

	if len(rec.Samples) == waveform.Length {
		res, err := svc.Predict(ctx, rec.Samples)
		return []reportRow{newReportRow(name, 0, 0, res, err)}
	}

	results, err := svc.PredictRecording(ctx, rec.Samples)
	if err != nil {
		return []reportRow{newReportRow(name, -1, 0, nil, err)}
	}
	rows := make([]reportRow, 0, len(results))
	for _, wr := range results {
		rows = append(rows, newReportRow(name, wr.Index, wr.OffsetMs, wr.Result, wr.Err))
	}
	return rows
}

// checkSampleRate rejects recordings whose windows would not span one second.
func checkSampleRate(rec *waveform.Recording) error {
	if rec.SampleRate != waveform.SampleRate {
		return fmt.Errorf("recording is %d Hz, expected %d Hz", rec.SampleRate, waveform.SampleRate)
	}
	return nil
}

func writeReport(path string, rows []reportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gocsv.MarshalFile(&rows, f)
}
