//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/himanishpuri/CardioDNA/pkg/models"
	"github.com/himanishpuri/CardioDNA/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "cardiodna.sqlite3"
const errDBClientNil = "db client is nil"

var (
	ErrNotFound    = errors.New("not found")
	ErrInactiveKey = errors.New("api key is inactive")
)

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// ModelVersionRow is one registered classifier artifact. Its ID is the
// version reported to clients.
type ModelVersionRow struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Digest   string `gorm:"type:varchar(64);uniqueIndex:idx_model_digest"`
	Path     string
	LoadedAt time.Time
}

func (ModelVersionRow) TableName() string { return "model_versions" }

type APIKeyRow struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	KeyHash   string `gorm:"type:varchar(64);uniqueIndex:idx_key_hash"`
	Prefix    string `gorm:"index:idx_key_prefix"`
	Email     string `gorm:"index:idx_key_email"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	LastUsed  *time.Time
}

func (APIKeyRow) TableName() string { return "api_keys" }

func (r APIKeyRow) toModel() models.APIKey {
	return models.APIKey{
		ID:        r.ID,
		Prefix:    r.Prefix,
		Email:     r.Email,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		LastUsed:  r.LastUsed,
	}
}

func (r ModelVersionRow) toModel() models.ModelVersion {
	return models.ModelVersion{
		Version:  int(r.ID),
		Digest:   r.Digest,
		Path:     r.Path,
		LoadedAt: r.LoadedAt,
	}
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("CARDIO_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&ModelVersionRow{}, &APIKeyRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}

// RegisterModel returns the version assigned to digest, creating the next
// one when the digest has not been seen before.
func (c *DBClient) RegisterModel(digest, path string) (models.ModelVersion, error) {
	if c == nil || c.DB == nil {
		return models.ModelVersion{}, errors.New(errDBClientNil)
	}

	var row ModelVersionRow
	err := c.DB.Where("digest = ?", digest).First(&row).Error
	if err == nil {
		if row.Path != path && path != "" {
			if err := c.DB.Model(&row).Update("path", path).Error; err != nil {
				return models.ModelVersion{}, fmt.Errorf("updating model path: %w", err)
			}
			row.Path = path
		}
		return row.toModel(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ModelVersion{}, fmt.Errorf("querying model version: %w", err)
	}

	row = ModelVersionRow{Digest: digest, Path: path, LoadedAt: time.Now().UTC()}
	if err := c.DB.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			if fetchErr := c.DB.Where("digest = ?", digest).First(&row).Error; fetchErr != nil {
				return models.ModelVersion{}, fmt.Errorf("fetching model after constraint violation: %w", fetchErr)
			}
			return row.toModel(), nil
		}
		return models.ModelVersion{}, fmt.Errorf("creating model version: %w", err)
	}
	return row.toModel(), nil
}

func (c *DBClient) GetModelVersion(version int) (models.ModelVersion, error) {
	if c == nil || c.DB == nil {
		return models.ModelVersion{}, errors.New(errDBClientNil)
	}
	var row ModelVersionRow
	if err := c.DB.First(&row, version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ModelVersion{}, ErrNotFound
		}
		return models.ModelVersion{}, fmt.Errorf("querying model version: %w", err)
	}
	return row.toModel(), nil
}

func (c *DBClient) ListModelVersions() ([]models.ModelVersion, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []ModelVersionRow
	if err := c.DB.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing model versions: %w", err)
	}
	out := make([]models.ModelVersion, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// CreateAPIKey issues a key for email. The plaintext is returned once and
// only its hash is stored.
func (c *DBClient) CreateAPIKey(email string) (string, models.APIKey, error) {
	if c == nil || c.DB == nil {
		return "", models.APIKey{}, errors.New(errDBClientNil)
	}

	key := utils.GenerateAPIKey()
	row := APIKeyRow{
		ID:        uuid.NewString(),
		KeyHash:   utils.HashAPIKey(key),
		Prefix:    utils.KeyDisplayPrefix(key),
		Email:     strings.TrimSpace(email),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.DB.Create(&row).Error; err != nil {
		return "", models.APIKey{}, fmt.Errorf("creating api key: %w", err)
	}
	return key, row.toModel(), nil
}

// ValidateAPIKey looks a plaintext key up by hash and stamps its last use.
func (c *DBClient) ValidateAPIKey(key string) (models.APIKey, error) {
	if c == nil || c.DB == nil {
		return models.APIKey{}, errors.New(errDBClientNil)
	}
	if key == "" {
		return models.APIKey{}, ErrNotFound
	}

	var row APIKeyRow
	err := c.DB.Where("key_hash = ?", utils.HashAPIKey(key)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.APIKey{}, ErrNotFound
	}
	if err != nil {
		return models.APIKey{}, fmt.Errorf("querying api key: %w", err)
	}
	if !row.Active {
		return row.toModel(), ErrInactiveKey
	}

	now := time.Now().UTC()
	if err := c.DB.Model(&row).Update("last_used", now).Error; err != nil {
		return models.APIKey{}, fmt.Errorf("updating last_used: %w", err)
	}
	row.LastUsed = &now
	return row.toModel(), nil
}

// SetAPIKeyActive toggles a key addressed by its id or display prefix.
func (c *DBClient) SetAPIKeyActive(idOrPrefix string, active bool) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Model(&APIKeyRow{}).
		Where("id = ? OR prefix = ?", idOrPrefix, idOrPrefix).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("updating api key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *DBClient) ListAPIKeys() ([]models.APIKey, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []APIKeyRow
	if err := c.DB.Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	out := make([]models.APIKey, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
