package cardiodna

import (
	"github.com/himanishpuri/CardioDNA/internal/metrics"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/waveform"
)

type Config struct {
	DBPath    string
	ModelPath string
	// ModelVersion overrides the registry-assigned version when > 0.
	ModelVersion int
	Limits       waveform.Limits
	// RecordingWorkers bounds the windows predicted in parallel by
	// PredictRecording.
	RecordingWorkers int
	Logger           Logger
	Storage          Storage
	Metrics          *metrics.Metrics
	Extractor        FeatureExtractor
	Classifier       Classifier
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithModelPath(path string) Option {
	return func(c *Config) {
		c.ModelPath = path
	}
}

func WithModelVersion(version int) Option {
	return func(c *Config) {
		c.ModelVersion = version
	}
}

func WithLimits(limits waveform.Limits) Option {
	return func(c *Config) {
		c.Limits = limits
	}
}

func WithRecordingWorkers(n int) Option {
	return func(c *Config) {
		c.RecordingWorkers = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithExtractor replaces the default feature extractor.
func WithExtractor(e FeatureExtractor) Option {
	return func(c *Config) {
		c.Extractor = e
	}
}

// WithClassifier skips loading ModelPath and uses c instead.
func WithClassifier(cl Classifier) Option {
	return func(c *Config) {
		c.Classifier = cl
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:           "cardiodna.sqlite3",
		ModelPath:        "models/ecg_cnn.json",
		Limits:           waveform.DefaultLimits(),
		RecordingWorkers: 4,
	}
}
