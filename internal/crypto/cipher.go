package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"fmt"
)

const (
	NonceSize = 12 // GCM nonce size
	TagSize   = 16 // GCM authentication tag size
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidNonce      = errors.New("invalid nonce")
	ErrAuthFailed        = errors.New("authentication failed")
)

// NewNonce returns a fresh random nonce. Callers must never seal twice
// under the same key with the same nonce.
func NewNonce() ([]byte, error) {
	return GenerateRandom(NonceSize)
}

// Encryptor provides authenticated encryption
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with the given key
func NewEncryptor(key []byte) *Encryptor {
	return &Encryptor{
		key: key,
	}
}

func (e *Encryptor) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts and authenticates plaintext using AES-256-GCM.
// additionalData is authenticated but not encrypted.
func (e *Encryptor) Seal(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonce
	}

	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}

	return gcm.Seal(nil, nonce, plaintext, additionalData), nil
}

// Open verifies and decrypts ciphertext. Any tag mismatch, whether caused by
// a wrong key, corruption or tampering, returns ErrAuthFailed.
func (e *Encryptor) Open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonce
	}
	if len(ciphertext) < TagSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
