package cardiodna

import (
	"errors"

	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/features"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/waveform"
)

var (
	ErrModelNotLoaded = errors.New("model not loaded")
	ErrMissingAPIKey  = errors.New("missing api key")
	ErrInvalidAPIKey  = errors.New("invalid api key")
	ErrInactiveAPIKey = errors.New("api key is inactive")
	ErrKeyNotFound    = errors.New("api key not found")
	ErrEmptyRecording = errors.New("recording shorter than one window")

	ErrModelVersionNotFound = errors.New("model version not found")
)

// ReasonOf returns the machine-readable reason carried by a pipeline error,
// or "" when err is not one of the typed pipeline errors.
func ReasonOf(err error) string {
	var verr *waveform.ValidationError
	if errors.As(err, &verr) {
		return string(verr.Reason)
	}
	var eerr *features.ExtractionError
	if errors.As(err, &eerr) {
		return eerr.Reason
	}
	return ""
}
