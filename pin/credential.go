package pin

import "time"

// Credential is the authentication record for one user. Instances are value
// snapshots: verification and upgrade return modified copies, which the caller
// persists through its credential store.
type Credential struct {
	UserID         string
	PepperKeyAlias string
	Hash           []byte
	Cost           int
	FailedCount    int
	LockedUntil    time.Time
	LastChangedAt  time.Time
	LastVerifiedAt time.Time
}

// Locked reports whether the credential is under an active lockout. A
// LockedUntil in the past is equivalent to "not locked".
func (c Credential) Locked(now time.Time) bool {
	return !c.LockedUntil.IsZero() && now.Before(c.LockedUntil)
}
