// Package security provides identifier generation and validation utilities
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mathrand "math/rand"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// GenerateULID generates a new ULID string. Used for analytics event and
// lead identifiers where lexicographic ordering is convenient.
func GenerateULID() string {
	return ulid.Make().String()
}

// GenerateUUID generates a lowercase UUID-v4 string using a
// cryptographically strong source, falling back to a non-crypto generator
// if the entropy source is unavailable.
func GenerateUUID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackUUID()
	}
	return id.String()
}

// fallbackUUID builds a v4-shaped UUID from math/rand when crypto/rand
// fails. Identity issuance must not crash the request path.
func fallbackUUID() string {
	var b [16]byte
	for i := range b {
		b[i] = byte(mathrand.Intn(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// GenerateSecureKey creates a cryptographically secure random key and returns it as a hex string.
// This is ideal for generating JWT and AES secrets.
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length/2) // Each byte becomes two hex characters
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
