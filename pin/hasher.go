package pin

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCost is the lowest accepted bcrypt cost factor.
	MinCost = 10
	// MaxCost is the highest accepted bcrypt cost factor.
	MaxCost = 18
)

// ErrInvalidCost indicates a cost factor outside the accepted range.
var ErrInvalidCost = errors.New("pin: invalid cost factor")

// HashPIN computes bcrypt(pepper‖rawPIN) at the given cost. The salt is
// generated internally by bcrypt and encoded into the returned hash.
func HashPIN(pepper []byte, rawPIN string, cost int) ([]byte, error) {
	if cost < MinCost || cost > MaxCost {
		return nil, ErrInvalidCost
	}
	return bcrypt.GenerateFromPassword(peppered(pepper, rawPIN), cost)
}

// VerifyPIN compares rawPIN against a stored hash under the given pepper.
// A mismatch returns (false, nil); any other failure (corrupt hash encoding)
// returns an error so callers can distinguish bad input from bad state.
func VerifyPIN(pepper []byte, rawPIN string, hash []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, peppered(pepper, rawPIN))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// bcrypt truncates input beyond 72 bytes; a 32-byte pepper plus a short numeric
// PIN stays well inside that limit.
func peppered(pepper []byte, rawPIN string) []byte {
	buf := make([]byte, 0, len(pepper)+len(rawPIN))
	buf = append(buf, pepper...)
	buf = append(buf, rawPIN...)
	return buf
}
