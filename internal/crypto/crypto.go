package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Service provides AES-256-GCM encryption bound to a record scope.
// The scope (a review or case ID) is authenticated as additional data, so a
// ciphertext copied onto another record fails to decrypt.
type Service struct {
	keys  KeyProvider
	keyID string
}

// NewService creates an encryption service using the key named keyID.
func NewService(keys KeyProvider, keyID string) *Service {
	return &Service{keys: keys, keyID: keyID}
}

// Encrypt encrypts plaintext with AES-256-GCM for the given scope.
// Returns base64-encoded nonce+ciphertext.
func (s *Service) Encrypt(ctx context.Context, scope string, plaintext []byte) (string, error) {
	key, err := s.keys.GetKey(ctx, s.keyID)
	if err != nil {
		return "", fmt.Errorf("crypto: get key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("crypto: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("crypto: new gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, []byte(scope))

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decrypts a base64-encoded ciphertext (nonce prepended) for the given scope.
func (s *Service) Decrypt(ctx context.Context, scope, ciphertext string) ([]byte, error) {
	key, err := s.keys.GetKey(ctx, s.keyID)
	if err != nil {
		return nil, fmt.Errorf("crypto: get key: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: base64 decode: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("crypto: ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, sealed, []byte(scope))
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt failed: %w", err)
	}

	return plaintext, nil
}

// EncryptString encrypts a string field. Empty strings are stored as-is.
func (s *Service) EncryptString(ctx context.Context, scope, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	return s.Encrypt(ctx, scope, []byte(plaintext))
}

// DecryptString reverses EncryptString.
func (s *Service) DecryptString(ctx context.Context, scope, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	plain, err := s.Decrypt(ctx, scope, ciphertext)
	if err != nil {
		return "", err
	}

	return string(plain), nil
}
