package main

import (
	"errors"

	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/waveform"
	"github.com/himanishpuri/CardioDNA/pkg/models"
)

// MaxRequestBytes bounds the request body. A 130-sample window in JSON is
// a few kilobytes at most.
const MaxRequestBytes = 64 << 10

// Reason codes that do not come from the pipeline itself.
const (
	ReasonInvalidRequest   = "invalid_request"
	ReasonMissingAPIKey    = "missing_api_key"
	ReasonInvalidAPIKey    = "invalid_api_key"
	ReasonMethodNotAllowed = "method_not_allowed"
	ReasonNotFound         = "not_found"
	ReasonInternal         = "internal_error"
)

// PredictRequest is the request body for POST /api/predict
type PredictRequest struct {
	ECGSignal *waveform.Samples `json:"ecg_signal"`
}

// Validate checks that the required field is present
func (r *PredictRequest) Validate() error {
	if r.ECGSignal == nil {
		return errors.New("missing required field: ecg_signal")
	}
	return nil
}

// PredictResponse is the success body. It holds no timestamps or ids so
// identical inputs produce byte-identical bodies.
type PredictResponse struct {
	ModelVersion  int                  `json:"modelVersion"`
	Diagnosis     string               `json:"diagnosis"`
	Probability   float64              `json:"probability"`
	Probabilities map[string]float64   `json:"probabilities"`
	Features      models.FeatureSet    `json:"features"`
	Quality       models.SignalQuality `json:"quality"`
}

func newPredictResponse(res *models.PredictionResult) PredictResponse {
	probs := make(map[string]float64, len(res.Probabilities))
	for label, p := range res.Probabilities {
		probs[string(label)] = p
	}
	return PredictResponse{
		ModelVersion:  res.ModelVersion,
		Diagnosis:     string(res.Diagnosis),
		Probability:   res.Probability,
		Probabilities: probs,
		Features:      res.Features,
		Quality:       res.Quality,
	}
}

// MetricsResponse provides server health and model details
type MetricsResponse struct {
	Status        string `json:"status"`
	DatabasePath  string `json:"database_path"`
	ModelVersion  int    `json:"model_version"`
	ModelDigest   string `json:"model_digest"`
	ModelPath     string `json:"model_path,omitempty"`
	SampleRate    int    `json:"sample_rate"`
	WindowLength  int    `json:"window_length"`
	RequireAPIKey bool   `json:"require_api_key"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
