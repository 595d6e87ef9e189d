package pepper

import (
	"errors"
	"sync"
	"time"
)

// Status is the lifecycle state of a pepper key.
type Status uint8

const (
	// StatusActive marks the single key used for new hashes.
	StatusActive Status = iota
	// StatusRetiring marks a key that still verifies old hashes but is being
	// phased out by upgrade-on-login.
	StatusRetiring
	// StatusRevoked marks a key whose secret must never be used again.
	StatusRevoked
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRetiring:
		return "retiring"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Key describes one pepper key. Keys are identified by a stable alias and are
// never deleted; revocation keeps the record for audit purposes.
type Key struct {
	Alias     string
	Status    Status
	CreatedAt time.Time
	RotatedAt time.Time
}

var (
	// ErrNoActiveKey indicates the registry has no Active key. This is a fatal
	// configuration error: nobody can be authenticated without one.
	ErrNoActiveKey = errors.New("pepper: no active key")
	// ErrUnknownAlias indicates no key is registered under the alias.
	ErrUnknownAlias = errors.New("pepper: unknown key alias")
	// ErrKeyRevoked indicates the key exists but its secret may no longer be used.
	ErrKeyRevoked = errors.New("pepper: key revoked")
	// ErrAliasExists indicates a duplicate registration.
	ErrAliasExists = errors.New("pepper: alias already registered")
)

// Registry tracks the set of pepper keys and their lifecycle state. It is safe
// for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	keys   map[string]*Key
	active string
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		keys: make(map[string]*Key),
		now:  time.Now,
	}
}

// Register adds a key with the given alias and status. Registering a second
// Active key fails; use Promote for rotation.
func (r *Registry) Register(alias string, status Status) error {
	if alias == "" {
		return ErrUnknownAlias
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[alias]; ok {
		return ErrAliasExists
	}
	if status == StatusActive && r.active != "" {
		return errors.New("pepper: active key already present")
	}

	r.keys[alias] = &Key{
		Alias:     alias,
		Status:    status,
		CreatedAt: r.now(),
	}
	if status == StatusActive {
		r.active = alias
	}
	return nil
}

// Promote makes alias the Active key. The previous Active key, if any, moves to
// Retiring. Promoting a Revoked key fails.
func (r *Registry) Promote(alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[alias]
	if !ok {
		return ErrUnknownAlias
	}
	if key.Status == StatusRevoked {
		return ErrKeyRevoked
	}

	if r.active != "" && r.active != alias {
		prev := r.keys[r.active]
		prev.Status = StatusRetiring
		prev.RotatedAt = r.now()
	}

	key.Status = StatusActive
	key.RotatedAt = r.now()
	r.active = alias
	return nil
}

// Revoke retires a key permanently. Revoking the Active key leaves the registry
// with no Active key, so callers should promote a replacement first. Revoke is
// idempotent.
func (r *Registry) Revoke(alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[alias]
	if !ok {
		return ErrUnknownAlias
	}
	if key.Status == StatusRevoked {
		return nil
	}

	key.Status = StatusRevoked
	key.RotatedAt = r.now()
	if r.active == alias {
		r.active = ""
	}
	return nil
}

// ActiveKey returns the current Active key, or ErrNoActiveKey.
func (r *Registry) ActiveKey() (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == "" {
		return Key{}, ErrNoActiveKey
	}
	return *r.keys[r.active], nil
}

// Get returns the key registered under alias.
func (r *Registry) Get(alias string) (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.keys[alias]
	if !ok {
		return Key{}, ErrUnknownAlias
	}
	return *key, nil
}

// Keys returns a snapshot of all registered keys.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Key, 0, len(r.keys))
	for _, key := range r.keys {
		out = append(out, *key)
	}
	return out
}
