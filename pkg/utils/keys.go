package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// APIKeyPrefix marks keys issued by this service.
const APIKeyPrefix = "cdna_"

// GenerateAPIKey returns a new random API key built from two v4 UUIDs.
func GenerateAPIKey() string {
	a := strings.ReplaceAll(uuid.NewString(), "-", "")
	b := strings.ReplaceAll(uuid.NewString(), "-", "")
	return APIKeyPrefix + a + b
}

// HashAPIKey returns the hex sha256 digest under which a key is stored.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// KeyDisplayPrefix returns the short, non-secret part of a key used in listings.
func KeyDisplayPrefix(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12]
}

// NewRequestID returns an identifier for correlating logs with a request.
func NewRequestID() string {
	return uuid.NewString()
}
