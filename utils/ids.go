package utils

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// LegacyIDLength is the length of identifiers issued before the move to UUID keys
// (24 hex characters, the ObjectID layout).
const LegacyIDLength = 24

var ErrInvalidID = errors.New("invalid identifier: expected UUID or 24-character hex id")

var (
	legacyNamespaceMu sync.RWMutex
	legacyNamespace   = uuid.MustParse("6f1c2a4e-8d3b-5e7f-9a01-b2c3d4e5f607")
)

// SetLegacyNamespace replaces the namespace used to derive UUIDs from legacy ids.
// Call it once during startup, before serving requests.
func SetLegacyNamespace(ns uuid.UUID) {
	legacyNamespaceMu.Lock()
	legacyNamespace = ns
	legacyNamespaceMu.Unlock()
}

func LegacyNamespace() uuid.UUID {
	legacyNamespaceMu.RLock()
	defer legacyNamespaceMu.RUnlock()
	return legacyNamespace
}

// IsLegacyID reports whether s looks like a legacy 24-character hex identifier.
func IsLegacyID(s string) bool {
	if len(s) != LegacyIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}

// LegacyToUUID maps a legacy id to its deterministic UUID (SHA-1, version 5).
// Hex case does not matter.
func LegacyToUUID(legacy string) uuid.UUID {
	return uuid.NewSHA1(LegacyNamespace(), []byte(strings.ToLower(legacy)))
}

// NormalizeID accepts a canonical UUID or a legacy hex id and returns the UUID the
// record is stored under.
func NormalizeID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, ErrInvalidID
	}
	if IsLegacyID(raw) {
		return LegacyToUUID(raw), nil
	}
	// uuid.Parse also accepts urn: and braced forms; only the 36-char form is allowed.
	if len(raw) != 36 {
		return uuid.Nil, ErrInvalidID
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}
