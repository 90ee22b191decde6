// Package secrets implements the vault used to encrypt small per-principal
// secrets (api key secrets, room-service and storage credentials) under the
// server-wide master key.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrBadKey is returned when the master key is not 32 bytes of std base64.
	ErrBadKey = errors.New("secrets: master key must be 32 bytes, base64-encoded")
	// ErrDecrypt is returned for any decryption failure: bad base64, truncated
	// framing, or a failed AEAD tag check (tamper or wrong key).
	ErrDecrypt = errors.New("secrets: decryption failed")
)

// Vault seals and opens secrets with XChaCha20-Poly1305. Each Encrypt draws a
// fresh random nonce, prefixed to the ciphertext before base64 encoding, so
// ciphertexts are never stable across calls.
type Vault struct {
	key []byte
}

// NewVault decodes the base64 master key and validates its length.
func NewVault(masterKeyB64 string) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrBadKey
	}
	return &Vault{key: key}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens base64(nonce || ciphertext) produced by Encrypt.
func (v *Vault) Decrypt(ciphertextB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", ErrDecrypt
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", err
	}

	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrDecrypt
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
