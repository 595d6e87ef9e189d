package ledger

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRecordNotFound indicates no record exists for the jti (forged jti, or
	// the ledger was rebuilt without the record).
	ErrRecordNotFound = errors.New("ledger: record not found")
	// ErrRecordDead indicates the record was revoked or already flagged for
	// reuse; its lineage can never mint again.
	ErrRecordDead = errors.New("ledger: record revoked or poisoned")
	// ErrReuseDetected indicates a rotation attempt on an already-rotated
	// record — the primary theft signal. The record is flagged sticky.
	ErrReuseDetected = errors.New("ledger: refresh token reuse detected")
	// ErrHashMismatch indicates the presented token's fingerprint does not
	// match the record stored for its jti — an integrity failure.
	ErrHashMismatch = errors.New("ledger: token fingerprint mismatch")
	// ErrUnavailable indicates the ledger backend could not be reached.
	ErrUnavailable = errors.New("ledger: backend unavailable")
)

// Store is the Redis-backed refresh token ledger. All per-jti updates are
// executed under WATCH so concurrent rotations of the same token serialize to
// exactly one winner.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a Store with the given key prefix (default "prl").
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "prl"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) key(jti string) string {
	return s.prefix + ":" + jti
}

// Ping verifies the backing Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Put inserts a Live record for a newly issued token. The TTL should be the
// token's remaining lifetime.
func (s *Store) Put(ctx context.Context, jti string, record *Record, ttl time.Duration) error {
	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(jti), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the record for a jti, or ErrRecordNotFound.
func (s *Store) Get(ctx context.Context, jti string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeRecord(data)
}

// Rotate executes the reuse-detection state machine for one presented refresh
// token, atomically per jti:
//
//  1. Absent record → ErrRecordNotFound.
//  2. Revoked or reuse-flagged record → ErrRecordDead.
//  3. Already-rotated record → reuse: the sticky ReuseDetected flag is set and
//     ErrReuseDetected returned. This is the primary theft signal.
//  4. Fingerprint mismatch at a live record → flagged and rejected with
//     ErrHashMismatch when blockOnMismatch is set; ignored otherwise.
//  5. Otherwise the record is marked rotated (when markRotated is set, i.e.
//     rotation policy enabled) and returned; the caller mints the next pair.
//
// Flagged and rotated records are kept with their remaining TTL, never deleted
// here, so later attempts on the same jti stay recognizable.
func (s *Store) Rotate(ctx context.Context, jti string, providedHash [32]byte, markRotated, blockOnMismatch bool) (*Record, error) {
	const maxRetries = 4
	key := s.key(jti)

	for i := 0; i < maxRetries; i++ {
		var rotated *Record

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeRecord(data)
			if err != nil {
				return err
			}

			now := s.now()
			if record.Expired(now) {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrRecordNotFound
			}

			if record.Revoked() || record.ReuseDetected {
				return ErrRecordDead
			}

			remaining := record.ExpiresAt.Sub(now)

			if record.Rotated() {
				record.ReuseDetected = true
				if err := s.write(ctx, tx, key, record, remaining); err != nil {
					return err
				}
				return ErrReuseDetected
			}

			if subtle.ConstantTimeCompare(record.TokenHash[:], providedHash[:]) != 1 && blockOnMismatch {
				record.ReuseDetected = true
				if err := s.write(ctx, tx, key, record, remaining); err != nil {
					return err
				}
				return ErrHashMismatch
			}

			if markRotated {
				record.RotatedAt = now
				if err := s.write(ctx, tx, key, record, remaining); err != nil {
					return err
				}
			}

			rotated = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrRecordNotFound
			case errors.Is(err, ErrRecordNotFound),
				errors.Is(err, ErrRecordDead),
				errors.Is(err, ErrReuseDetected),
				errors.Is(err, ErrHashMismatch):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}

		return rotated, nil
	}

	// Contention exhausted the retry budget; the competing writer won.
	return nil, ErrReuseDetected
}

// Revoke marks the record revoked. It is idempotent and deliberately quiet:
// absent records, device mismatches, and already-dead records are no-ops.
func (s *Store) Revoke(ctx context.Context, jti, deviceID string) error {
	const maxRetries = 4
	key := s.key(jti)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeRecord(data)
			if err != nil {
				return err
			}
			if record.DeviceID != deviceID || record.Revoked() {
				return nil
			}

			now := s.now()
			if record.Expired(now) {
				return nil
			}

			record.RevokedAt = now
			return s.write(ctx, tx, key, record, record.ExpiresAt.Sub(now))
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}

	return nil
}

func (s *Store) write(ctx context.Context, tx *redis.Tx, key string, record *Record, ttl time.Duration) error {
	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, encoded, ttl)
		return nil
	})
	return err
}
