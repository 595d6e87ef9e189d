package pepper

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrSourceUnavailable indicates the ciphertext source could not be reached.
	// The caller may retry; the store itself does not.
	ErrSourceUnavailable = errors.New("pepper: secret source unavailable")
	// ErrDecryptFailed indicates the ciphertext did not authenticate under the
	// configured key-encryption key.
	ErrDecryptFailed = errors.New("pepper: secret decryption failed")
)

// Source supplies the encrypted pepper material for an alias. Implementations
// typically call an external key-management service; the store fetches once per
// alias and caches the decrypted secret for the process lifetime.
type Source interface {
	FetchCiphertext(ctx context.Context, alias string) ([]byte, error)
}

// StaticSource is a Source backed by an in-memory alias → ciphertext map, for
// configurations that load sealed pepper blobs at startup.
type StaticSource map[string][]byte

// FetchCiphertext returns the registered ciphertext or ErrUnknownAlias.
func (s StaticSource) FetchCiphertext(_ context.Context, alias string) ([]byte, error) {
	ct, ok := s[alias]
	if !ok {
		return nil, ErrUnknownAlias
	}
	return ct, nil
}

// Store resolves pepper secrets by alias. Ciphertexts are nonce-prefixed
// AES-256-GCM envelopes opened with the key-encryption key supplied at
// construction. Decrypted secrets are cached; concurrent first use of the same
// alias performs at most one fetch.
type Store struct {
	source Source
	aead   cipher.AEAD

	mu    sync.Mutex
	cache map[string][]byte
}

// NewStore creates a Store. kek must be a 32-byte AES-256 key.
func NewStore(source Source, kek []byte) (*Store, error) {
	if source == nil {
		return nil, errors.New("pepper: source required")
	}
	if len(kek) != 32 {
		return nil, errors.New("pepper: key-encryption key must be 32 bytes")
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Store{
		source: source,
		aead:   aead,
		cache:  make(map[string][]byte),
	}, nil
}

// Secret returns the decrypted pepper for alias, fetching and decrypting on
// first use. Fails with ErrUnknownAlias when no ciphertext is registered.
func (s *Store) Secret(ctx context.Context, alias string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if secret, ok := s.cache[alias]; ok {
		return secret, nil
	}

	ciphertext, err := s.source.FetchCiphertext(ctx, alias)
	if err != nil {
		if errors.Is(err, ErrUnknownAlias) {
			return nil, ErrUnknownAlias
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	secret, err := s.open(ciphertext)
	if err != nil {
		return nil, err
	}

	s.cache[alias] = secret
	return secret, nil
}

func (s *Store) open(envelope []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(envelope) <= nonceSize {
		return nil, ErrDecryptFailed
	}

	plaintext, err := s.aead.Open(nil, envelope[:nonceSize], envelope[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// Seal encrypts a raw pepper secret into the nonce-prefixed envelope format the
// store expects. Intended for provisioning tooling and tests.
func Seal(kek, nonce, secret []byte) ([]byte, error) {
	if len(kek) != 32 {
		return nil, errors.New("pepper: key-encryption key must be 32 bytes")
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("pepper: invalid nonce size")
	}

	return append(append([]byte{}, nonce...), aead.Seal(nil, nonce, secret, nil)...), nil
}
