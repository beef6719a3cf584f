package cardiodna

import (
	"errors"

	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/storage"
	"github.com/himanishpuri/CardioDNA/pkg/models"
)

// storageAdapter adapts storage.DBClient to the Storage interface and maps
// its sentinel errors onto this package's.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) RegisterModel(digest, path string) (models.ModelVersion, error) {
	return s.db.RegisterModel(digest, path)
}

func (s *storageAdapter) ListModelVersions() ([]models.ModelVersion, error) {
	return s.db.ListModelVersions()
}

func (s *storageAdapter) GetModelVersion(version int) (models.ModelVersion, error) {
	mv, err := s.db.GetModelVersion(version)
	if errors.Is(err, storage.ErrNotFound) {
		return models.ModelVersion{}, ErrModelVersionNotFound
	}
	return mv, err
}

func (s *storageAdapter) CreateAPIKey(email string) (string, models.APIKey, error) {
	return s.db.CreateAPIKey(email)
}

func (s *storageAdapter) ValidateAPIKey(key string) (models.APIKey, error) {
	k, err := s.db.ValidateAPIKey(key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return models.APIKey{}, ErrInvalidAPIKey
	case errors.Is(err, storage.ErrInactiveKey):
		return k, ErrInactiveAPIKey
	}
	return k, err
}

func (s *storageAdapter) SetAPIKeyActive(idOrPrefix string, active bool) error {
	err := s.db.SetAPIKeyActive(idOrPrefix, active)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrKeyNotFound
	}
	return err
}

func (s *storageAdapter) ListAPIKeys() ([]models.APIKey, error) {
	return s.db.ListAPIKeys()
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}
