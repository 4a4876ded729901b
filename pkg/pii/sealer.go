package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// AESSealer seals PIIBinding.Original values with AES-GCM under a single
// process-wide key. Each seal draws a fresh random nonce and prefixes it to
// the ciphertext, so the same plaintext never produces the same sealed
// bytes twice and no IV bookkeeping is needed across bindings.
type AESSealer struct {
	gcm cipher.AEAD
}

// NewAESSealer builds a sealer from a raw key of 16, 24, or 32 bytes
// (AES-128/192/256).
func NewAESSealer(key []byte) (*AESSealer, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("pii: invalid AES key length %d; must be 16, 24, or 32 bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("pii: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("pii: new gcm: %w", err)
	}
	return &AESSealer{gcm: gcm}, nil
}

// Seal encrypts plaintext, returning nonce||ciphertext||tag.
func (s *AESSealer) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("pii: generate nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open reverses Seal. Returns an error if sealed is truncated or the
// authentication tag does not match (tampered or corrupted data).
func (s *AESSealer) Open(sealed []byte) (string, error) {
	nonceSize := s.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return "", errors.New("pii: sealed value shorter than nonce")
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("pii: open: %w", err)
	}
	return string(plaintext), nil
}
