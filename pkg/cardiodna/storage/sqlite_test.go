package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/CardioDNA/pkg/utils"
)

// Helper function to create a temporary test database
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_cardio.sqlite3")
	t.Setenv("CARDIO_DB_PATH", dbPath)

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client, dbPath
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil || client.db == nil {
		t.Fatal("Expected non-nil database handles")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewDBClientWithNestedPath(t *testing.T) {
	customPath := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClientWithPath(customPath)
	if err != nil {
		t.Fatalf("Failed to create client with nested path: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(customPath); err != nil {
		t.Errorf("Expected database at %s: %v", customPath, err)
	}
}

func TestNilClient(t *testing.T) {
	var c *DBClient
	if _, err := c.RegisterModel("d", "p"); err == nil {
		t.Error("Expected error from nil client")
	}
	if _, err := c.ValidateAPIKey("k"); err == nil {
		t.Error("Expected error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil client should be a no-op, got %v", err)
	}
}

func TestRegisterModelAssignsMonotonicVersions(t *testing.T) {
	client, _ := setupTestDB(t)

	v1, err := client.RegisterModel(strings.Repeat("a", 64), "models/a.json")
	if err != nil {
		t.Fatalf("RegisterModel failed: %v", err)
	}
	v2, err := client.RegisterModel(strings.Repeat("b", 64), "models/b.json")
	if err != nil {
		t.Fatalf("RegisterModel failed: %v", err)
	}
	if v2.Version <= v1.Version {
		t.Errorf("Expected increasing versions, got %d then %d", v1.Version, v2.Version)
	}

	again, err := client.RegisterModel(strings.Repeat("a", 64), "elsewhere/a.json")
	if err != nil {
		t.Fatalf("RegisterModel failed: %v", err)
	}
	if again.Version != v1.Version {
		t.Errorf("Same digest should reuse version %d, got %d", v1.Version, again.Version)
	}
	if again.Path != "elsewhere/a.json" {
		t.Errorf("Expected path to follow the latest load, got %q", again.Path)
	}

	got, err := client.GetModelVersion(v2.Version)
	if err != nil {
		t.Fatalf("GetModelVersion failed: %v", err)
	}
	if got.Digest != v2.Digest {
		t.Errorf("Expected digest %s, got %s", v2.Digest, got.Digest)
	}

	if _, err := client.GetModelVersion(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	all, err := client.ListModelVersions()
	if err != nil {
		t.Fatalf("ListModelVersions failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 versions, got %d", len(all))
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	client, _ := setupTestDB(t)

	key, rec, err := client.CreateAPIKey(" dev@example.com ")
	if err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(key, utils.APIKeyPrefix) {
		t.Errorf("Expected key prefix %q, got %q", utils.APIKeyPrefix, key)
	}
	if rec.Email != "dev@example.com" || !rec.Active || rec.LastUsed != nil {
		t.Errorf("Unexpected new key record: %+v", rec)
	}
	if !strings.HasPrefix(key, rec.Prefix) {
		t.Errorf("Display prefix %q is not a prefix of the key", rec.Prefix)
	}

	var stored APIKeyRow
	if err := client.DB.First(&stored, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("Loading stored key: %v", err)
	}
	if stored.KeyHash == key || stored.KeyHash != utils.HashAPIKey(key) {
		t.Error("Expected only the hash of the key to be stored")
	}

	got, err := client.ValidateAPIKey(key)
	if err != nil {
		t.Fatalf("ValidateAPIKey failed: %v", err)
	}
	if got.ID != rec.ID || got.LastUsed == nil {
		t.Errorf("Expected last_used to be stamped, got %+v", got)
	}

	if _, err := client.ValidateAPIKey(key + "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown key, got %v", err)
	}
	if _, err := client.ValidateAPIKey(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty key, got %v", err)
	}

	if err := client.SetAPIKeyActive(rec.Prefix, false); err != nil {
		t.Fatalf("Deactivating by prefix failed: %v", err)
	}
	if _, err := client.ValidateAPIKey(key); !errors.Is(err, ErrInactiveKey) {
		t.Errorf("Expected ErrInactiveKey, got %v", err)
	}

	if err := client.SetAPIKeyActive(rec.ID, true); err != nil {
		t.Fatalf("Reactivating by id failed: %v", err)
	}
	if _, err := client.ValidateAPIKey(key); err != nil {
		t.Errorf("Expected reactivated key to validate, got %v", err)
	}

	if err := client.SetAPIKeyActive("nope", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListAPIKeys(t *testing.T) {
	client, _ := setupTestDB(t)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, _, err := client.CreateAPIKey(email); err != nil {
			t.Fatalf("CreateAPIKey(%s) failed: %v", email, err)
		}
	}

	keys, err := client.ListAPIKeys()
	if err != nil {
		t.Fatalf("ListAPIKeys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %d", len(keys))
	}
	for _, k := range keys {
		if k.ID == "" || k.Prefix == "" {
			t.Errorf("Incomplete key record: %+v", k)
		}
	}
}
