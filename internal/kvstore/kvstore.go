// Package kvstore provides durable string key-value storage backends.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidKey indicates a key that the backend cannot address.
var ErrInvalidKey = errors.New("invalid key")

// Store is a durable string-keyed blob store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value for key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// ValidateKey ensures a key matches [A-Za-z0-9._-]+.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
