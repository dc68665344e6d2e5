package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveKey(password, []byte("salt-1"))
	key2 := DeriveKey(password, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestSealer_RoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	require.Len(t, salt, SaltSize)

	s, err := NewSealer([]byte("school-run"), salt)
	require.NoError(t, err)

	ct, nonce, err := s.Seal([]byte("eyJhbGciOi..."))
	require.NoError(t, err)
	assert.NotContains(t, string(ct), "eyJhbGciOi")

	pt, err := s.Open(ct, nonce)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi...", string(pt))
}

func TestSealer_WrongPassphrase(t *testing.T) {
	salt := []byte("0123456789abcdef")

	a, err := NewSealer([]byte("right"), salt)
	require.NoError(t, err)
	b, err := NewSealer([]byte("wrong"), salt)
	require.NoError(t, err)

	ct, nonce, err := a.Seal([]byte("token"))
	require.NoError(t, err)

	_, err = b.Open(ct, nonce)
	assert.Error(t, err)
}

func TestSealer_BadNonce(t *testing.T) {
	s, err := NewSealer([]byte("p"), []byte("0123456789abcdef"))
	require.NoError(t, err)

	_, err = s.Open([]byte("x"), []byte{1, 2})
	assert.Error(t, err)
}

func TestNewSealer_WipesPassphrase(t *testing.T) {
	pass := []byte("school-run")
	_, err := NewSealer(pass, []byte("0123456789abcdef"))
	require.NoError(t, err)

	assert.Equal(t, make([]byte, len(pass)), pass)
}

func TestNewSealer_EmptyPassphrase(t *testing.T) {
	_, err := NewSealer(nil, []byte("salt"))
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}
