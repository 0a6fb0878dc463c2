// Package fingerprint implements the persistent identity records that
// deployment history is correlated against. Each container or image
// identifier maps to one fingerprint holding its attached facets.
package fingerprint

import (
	"errors"
	"fmt"
)

const (
	// IdentifierLength is the length of a full container or image identifier.
	IdentifierLength = 64
	// HashLength is the length of the derived storage key.
	HashLength = 32
)

// ErrInvalidID is returned when an identifier is not exactly 64 characters.
var ErrInvalidID = errors.New("invalid identifier")

// Hash derives the storage key for an identifier by taking its first
// 32 characters. Pure function, no side effects.
func Hash(id string) (string, error) {
	if len(id) != IdentifierLength {
		return "", fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidID, IdentifierLength, len(id))
	}
	return id[:HashLength], nil
}
