package secrets

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealPrefix = "sealed:v1:"

var hkdfSalt = []byte("rift.secrets")

// ErrCorrupt is returned when a sealed value cannot be opened with the
// configured passphrase.
var ErrCorrupt = errors.New("sealed secret cannot be opened")

// Sealed encrypts values with XChaCha20-Poly1305 before handing them to the
// wrapped store. The key name is bound as additional data so a value cannot be
// moved to another key.
type Sealed struct {
	inner Store
	key   []byte
}

// NewSealed derives the encryption key from passphrase.
func NewSealed(inner Store, passphrase string) (*Sealed, error) {
	if passphrase == "" {
		return nil, errors.New("secrets: empty passphrase")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), hkdfSalt, []byte("rift-secrets-v1")), key); err != nil {
		return nil, fmt.Errorf("secrets: derive key: %w", err)
	}
	return &Sealed{inner: inner, key: key}, nil
}

func (s *Sealed) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return s.open(key, raw)
}

func (s *Sealed) SetAll(ctx context.Context, values map[string]string) error {
	sealed := make(map[string]string, len(values))
	for k, v := range values {
		out, err := s.seal(k, v)
		if err != nil {
			return err
		}
		sealed[k] = out
	}
	return s.inner.SetAll(ctx, sealed)
}

func (s *Sealed) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

func (s *Sealed) Close() error {
	return s.inner.Close()
}

func (s *Sealed) seal(key, value string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("secrets: cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secrets: nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return sealPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *Sealed) open(key, raw string) (string, error) {
	if len(raw) < len(sealPrefix) || raw[:len(sealPrefix)] != sealPrefix {
		return "", ErrCorrupt
	}
	data, err := base64.RawStdEncoding.DecodeString(raw[len(sealPrefix):])
	if err != nil {
		return "", ErrCorrupt
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("secrets: cipher: %w", err)
	}
	if len(data) < aead.NonceSize() {
		return "", ErrCorrupt
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", ErrCorrupt
	}
	return string(plain), nil
}
