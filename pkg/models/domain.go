package models

import "encoding/json"

// Diagnosis is the label produced by the classifier.
type Diagnosis string

const (
	DiagnosisNormal   Diagnosis = "Normal Sinus Rhythm"
	DiagnosisAbnormal Diagnosis = "Abnormal"
)

// Diagnoses lists the labels in classifier output order.
var Diagnoses = []Diagnosis{DiagnosisNormal, DiagnosisAbnormal}

// Valid reports whether d is one of the enumerated labels.
func (d Diagnosis) Valid() bool {
	return d == DiagnosisNormal || d == DiagnosisAbnormal
}

// FeatureSet holds the physiological measurements derived from one window.
type FeatureSet struct {
	HeartRate    float64 `json:"heart_rate" csv:"heart_rate"`       // beats per minute
	HRVRMSSD     float64 `json:"hrv_rmssd" csv:"hrv_rmssd"`         // milliseconds, 0 when undefined
	QRSDuration  float64 `json:"qrs_duration" csv:"qrs_duration"`   // seconds
	RAmplitude   float64 `json:"r_amplitude" csv:"r_amplitude"`     // signal units
	SignalEnergy float64 `json:"signal_energy" csv:"signal_energy"` // sum of squared samples
}

// SignalQuality labels how each feature was obtained.
type SignalQuality struct {
	PeaksDetected       int     `json:"peaks_detected"`
	RRIntervals         int     `json:"rr_intervals"`
	HRVDefined          bool    `json:"hrv_defined"`
	DominantFrequencyHz float64 `json:"dominant_frequency_hz"`
	QRSBandPowerRatio   float64 `json:"qrs_band_power_ratio"`
}

// FeatureReport flattens a FeatureSet and its SignalQuality into one record,
// the shape handed to browser clients.
type FeatureReport struct {
	FeatureSet
	SignalQuality
}

// PredictionResult is the assembled outcome for a single waveform.
type PredictionResult struct {
	ModelVersion  int                   `json:"modelVersion"`
	Diagnosis     Diagnosis             `json:"diagnosis"`
	Probability   float64               `json:"probability"`
	Probabilities map[Diagnosis]float64 `json:"probabilities"`
	Features      FeatureSet            `json:"features"`
	Quality       SignalQuality         `json:"quality"`
}

// WindowResult is a PredictionResult tagged with its position in a longer recording.
// A rejected window carries Err and, for typed pipeline errors, its Reason code.
type WindowResult struct {
	Index    int               `json:"index"`
	OffsetMs int               `json:"offsetMs"`
	Result   *PredictionResult `json:"result,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Err      error             `json:"-"`
}

// MarshalJSON adds the error message, which error values cannot encode themselves.
func (w WindowResult) MarshalJSON() ([]byte, error) {
	type plain WindowResult
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(w)}
	if w.Err != nil {
		out.Error = w.Err.Error()
	}
	return json.Marshal(out)
}
