package cardiodna

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/himanishpuri/CardioDNA/internal/metrics"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/features"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/model"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/waveform"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
	"github.com/himanishpuri/CardioDNA/pkg/models"
	"golang.org/x/sync/errgroup"
)

// cardioService is the default implementation of the Service interface.
type cardioService struct {
	storage    Storage
	log        Logger
	metrics    *metrics.Metrics
	extractor  FeatureExtractor
	classifier Classifier
	limits     waveform.Limits
	model      models.ModelVersion
	config     *Config
}

// NewService loads the classifier, resolves its version and returns a
// ready service. Artifact problems are returned here, never per request.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = features.Default()
	}

	classifier := cfg.Classifier
	if classifier == nil {
		c, err := model.Load(cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelNotLoaded, err)
		}
		classifier = c
	}

	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	mv := models.ModelVersion{
		Version:  cfg.ModelVersion,
		Digest:   classifier.Digest(),
		Path:     classifier.Path(),
		LoadedAt: time.Now().UTC(),
	}
	if cfg.ModelVersion <= 0 {
		mv, err = stor.RegisterModel(classifier.Digest(), classifier.Path())
		if err != nil {
			stor.Close()
			return nil, fmt.Errorf("failed to register model: %w", err)
		}
	}

	cfg.Metrics.SetModel(mv.Version, mv.LoadedAt)
	cfg.Logger.Infof("Model v%d loaded (digest %.12s)", mv.Version, mv.Digest)

	return &cardioService{
		storage:    stor,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		extractor:  cfg.Extractor,
		classifier: classifier,
		limits:     cfg.Limits,
		model:      mv,
		config:     cfg,
	}, nil
}

// Predict validates one window, then extracts features and classifies it
// concurrently. A rejected window never reaches the extractor or the
// classifier.
func (s *cardioService) Predict(ctx context.Context, samples []float64) (*models.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	if err := s.limits.Validate(samples); err != nil {
		s.metrics.RecordRejection(ReasonOf(err))
		s.log.Debugf("Rejected waveform: %v", err)
		return nil, err
	}
	s.metrics.RecordStage("validate", time.Since(start))

	var (
		fs        models.FeatureSet
		quality   models.SignalQuality
		diagnosis models.Diagnosis
		prob      float64
		probs     map[models.Diagnosis]float64
	)

	var g errgroup.Group
	g.Go(func() error {
		t := time.Now()
		var err error
		fs, quality, err = s.extractor.Extract(samples)
		s.metrics.RecordStage("extract", time.Since(t))
		return err
	})
	g.Go(func() error {
		t := time.Now()
		diagnosis, prob, probs = s.classifier.Predict(samples)
		s.metrics.RecordStage("classify", time.Since(t))
		return nil
	})
	if err := g.Wait(); err != nil {
		if reason := ReasonOf(err); reason != "" {
			s.metrics.RecordRejection(reason)
			s.log.Debugf("Feature extraction failed: %v", err)
			return nil, err
		}
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	result := &models.PredictionResult{
		ModelVersion:  s.model.Version,
		Diagnosis:     diagnosis,
		Probability:   prob,
		Probabilities: probs,
		Features:      fs,
		Quality:       quality,
	}

	elapsed := time.Since(start)
	s.metrics.RecordPrediction(string(diagnosis), prob, elapsed)
	s.log.Debugf("Predicted %s (p=%.3f, hr=%.1f) in %s", diagnosis, prob, fs.HeartRate, elapsed)
	return result, nil
}

// PredictRecording splits a longer recording into consecutive one-second
// windows and predicts each. Per-window failures are reported in the
// window's Err; the call itself fails only for an empty recording or a
// cancelled context.
func (s *cardioService) PredictRecording(ctx context.Context, samples []float64) ([]models.WindowResult, error) {
	windows := waveform.Windows(samples)
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: got %d samples", ErrEmptyRecording, len(samples))
	}

	results := make([]models.WindowResult, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	if s.config.RecordingWorkers > 0 {
		g.SetLimit(s.config.RecordingWorkers)
	}

	for i, w := range windows {
		g.Go(func() error {
			res, err := s.Predict(gctx, w)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return err
			}
			results[i] = models.WindowResult{
				Index:    i,
				OffsetMs: i * 1000 * waveform.Length / waveform.SampleRate,
				Result:   res,
				Reason:   ReasonOf(err),
				Err:      err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Infof("Processed recording: %d windows", len(windows))
	return results, nil
}

func (s *cardioService) ModelInfo() models.ModelVersion {
	return s.model
}

func (s *cardioService) ListModelVersions() ([]models.ModelVersion, error) {
	return s.storage.ListModelVersions()
}

func (s *cardioService) GetModelVersion(version int) (models.ModelVersion, error) {
	return s.storage.GetModelVersion(version)
}

// ValidateAPIKey resolves the key sent with a request.
func (s *cardioService) ValidateAPIKey(ctx context.Context, key string) (models.APIKey, error) {
	if err := ctx.Err(); err != nil {
		return models.APIKey{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		s.metrics.RecordAPIKeyCheck("missing")
		return models.APIKey{}, ErrMissingAPIKey
	}

	k, err := s.storage.ValidateAPIKey(key)
	switch {
	case err == nil:
		s.metrics.RecordAPIKeyCheck("ok")
	case errors.Is(err, ErrInvalidAPIKey):
		s.metrics.RecordAPIKeyCheck("invalid")
	case errors.Is(err, ErrInactiveAPIKey):
		s.metrics.RecordAPIKeyCheck("inactive")
	default:
		s.metrics.RecordAPIKeyCheck("error")
		s.log.Errorf("API key lookup failed: %v", err)
	}
	return k, err
}

func (s *cardioService) CreateAPIKey(email string) (string, models.APIKey, error) {
	key, rec, err := s.storage.CreateAPIKey(email)
	if err != nil {
		return "", models.APIKey{}, err
	}
	s.log.Infof("Issued API key %s for %s", rec.Prefix, rec.Email)
	return key, rec, nil
}

func (s *cardioService) SetAPIKeyActive(idOrPrefix string, active bool) error {
	if err := s.storage.SetAPIKeyActive(idOrPrefix, active); err != nil {
		return err
	}
	s.log.Infof("API key %s active=%t", idOrPrefix, active)
	return nil
}

func (s *cardioService) ListAPIKeys() ([]models.APIKey, error) {
	return s.storage.ListAPIKeys()
}

func (s *cardioService) Close() error {
	return s.storage.Close()
}
