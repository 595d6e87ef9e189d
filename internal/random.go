package internal

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// NewTokenID returns a fresh jti for an issued token.
func NewTokenID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// FingerprintToken computes the one-way hash stored in the refresh ledger:
// sha256 over the raw compact token followed by the ledger pepper. The raw
// token itself is never persisted.
func FingerprintToken(rawToken string, pepper []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(rawToken))
	h.Write(pepper)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
