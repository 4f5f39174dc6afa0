// Package crypto provides AES-256-GCM encryption for review data at rest.
package crypto

import "context"

// KeyProvider returns AES-256 encryption keys by key ID.
type KeyProvider interface {
	// GetKey returns the 32-byte AES-256 key for the given key ID.
	GetKey(ctx context.Context, keyID string) ([]byte, error)
}
