// Package seal is the encryption delegate boundary of the chat core. The
// core records an "encrypted" flag and round-trips message content through a
// Cipher; it never implements cryptography itself.
package seal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// Cipher seals plaintext into an opaque string form and opens it back.
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// Plain is a passthrough cipher used when no key is configured.
type Plain struct{}

func (Plain) Encrypt(plaintext []byte) (string, error) { return string(plaintext), nil }

func (Plain) Decrypt(ciphertext string) ([]byte, error) { return []byte(ciphertext), nil }

const nonceSize = 24

// SecretBox seals content with NaCl secretbox under a fixed symmetric key.
type SecretBox struct {
	key [32]byte
}

// NewSecretBox creates a SecretBox cipher. key must be exactly 32 bytes.
func NewSecretBox(key []byte) (*SecretBox, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("secretbox key must be 32 bytes, got %d", len(key))
	}
	sb := &SecretBox{}
	copy(sb.key[:], key)
	return sb, nil
}

// Encrypt seals plaintext with a fresh random nonce. Output is
// base64(nonce || box).
func (s *SecretBox) Encrypt(plaintext []byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (s *SecretBox) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return nil, errors.New("ciphertext too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("decryption failed")
	}
	return opened, nil
}
