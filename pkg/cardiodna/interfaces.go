package cardiodna

import (
	"context"

	"github.com/himanishpuri/CardioDNA/pkg/models"
)

type Service interface {
	Predict(ctx context.Context, samples []float64) (*models.PredictionResult, error)
	PredictRecording(ctx context.Context, samples []float64) ([]models.WindowResult, error)
	ModelInfo() models.ModelVersion
	ListModelVersions() ([]models.ModelVersion, error)
	GetModelVersion(version int) (models.ModelVersion, error)

	ValidateAPIKey(ctx context.Context, key string) (models.APIKey, error)
	CreateAPIKey(email string) (string, models.APIKey, error)
	SetAPIKeyActive(idOrPrefix string, active bool) error
	ListAPIKeys() ([]models.APIKey, error)

	Close() error
}

type Storage interface {
	RegisterModel(digest, path string) (models.ModelVersion, error)
	ListModelVersions() ([]models.ModelVersion, error)
	GetModelVersion(version int) (models.ModelVersion, error)
	CreateAPIKey(email string) (string, models.APIKey, error)
	ValidateAPIKey(key string) (models.APIKey, error)
	SetAPIKeyActive(idOrPrefix string, active bool) error
	ListAPIKeys() ([]models.APIKey, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// FeatureExtractor derives the physiological features of one window.
type FeatureExtractor interface {
	Extract(samples []float64) (models.FeatureSet, models.SignalQuality, error)
}

// Classifier labels one window. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Predict(samples []float64) (models.Diagnosis, float64, map[models.Diagnosis]float64)
	Digest() string
	Path() string
}
