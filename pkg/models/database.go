package models

import "time"

// ModelVersion describes a registered classifier artifact.
type ModelVersion struct {
	Version  int
	Digest   string
	Path     string
	LoadedAt time.Time
}

// APIKey describes an issued key. The plaintext key is never part of it.
type APIKey struct {
	ID        string
	Prefix    string
	Email     string
	Active    bool
	CreatedAt time.Time
	LastUsed  *time.Time
}
