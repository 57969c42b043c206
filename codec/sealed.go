package codec

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/guyvdb/recstore/fault"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	KeySize   = chacha20poly1305.KeySize
	NonceSize = chacha20poly1305.NonceSize

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var _ Codec = (*Sealed)(nil)

// Sealed encrypts the output of another codec. The payload layout is
// nonce || ciphertext.
type Sealed struct {
	inner Codec
	aead  cipher.AEAD
}

func NewSealed(inner Codec, key []byte) (*Sealed, error) {
	if inner == nil {
		inner = JSON{}
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("sealed codec: %w", err)
	}
	return &Sealed{inner: inner, aead: aead}, nil
}

// KeyFromPassphrase derives a payload key with scrypt.
func KeyFromPassphrase(passphrase string, salt []byte) ([]byte, error) {
	if len(salt) == 0 {
		return nil, errors.New("empty salt")
	}
	return scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, KeySize)
}

func (s *Sealed) Encode(v any) ([]byte, error) {
	plain, err := s.inner.Encode(v)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize, NonceSize+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %w", fault.ErrEncodeFailed, err)
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *Sealed) Decode(data []byte, v any) error {
	if len(data) < NonceSize+s.aead.Overhead() {
		return fmt.Errorf("%w: sealed payload too short", fault.ErrDecodeFailed)
	}
	plain, err := s.aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return fmt.Errorf("%w: %w", fault.ErrDecodeFailed, err)
	}
	return s.inner.Decode(plain, v)
}
