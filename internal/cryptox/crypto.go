// Package cryptox seals small secrets at rest with AES-GCM under a key
// derived from a passphrase with Argon2id.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltSize is the length of salts produced by NewSalt.
	SaltSize = 16
	keySize  = 32
)

// ErrEmptyPassphrase is returned by NewSealer for an empty passphrase.
var ErrEmptyPassphrase = errors.New("empty passphrase")

// DeriveKey stretches a passphrase into a 256-bit key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keySize)
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	return RandomBytes(SaltSize)
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Sealer encrypts and decrypts values with a fixed key.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the key from passphrase and salt. The passphrase bytes
// are wiped once the key is derived.
func NewSealer(passphrase, salt []byte) (*Sealer, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	key := DeriveKey(passphrase, salt)
	defer Wipe(key)
	Wipe(passphrase)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) (ciphertext, nonce []byte, err error) {
	nonce, err = RandomBytes(s.aead.NonceSize())
	if err != nil {
		return nil, nil, err
	}
	return s.aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != s.aead.NonceSize() {
		return nil, fmt.Errorf("open: bad nonce size %d", len(nonce))
	}
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}

// Wipe zeroes b in place.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
