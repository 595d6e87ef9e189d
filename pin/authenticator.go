package pin

import "time"

// Result classifies the outcome of a verification attempt.
type Result uint8

const (
	// ResultOk means the PIN matched.
	ResultOk Result = iota
	// ResultLocked means the credential is under lockout; no hash comparison
	// was performed.
	ResultLocked
	// ResultMismatch means the PIN did not match.
	ResultMismatch
)

func (r Result) String() string {
	switch r {
	case ResultOk:
		return "ok"
	case ResultLocked:
		return "locked"
	case ResultMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Policy holds the lockout parameters applied on verification.
type Policy struct {
	// MaxFails is the consecutive-failure threshold that triggers a lock.
	MaxFails int
	// LockWindow is how long a triggered lock lasts.
	LockWindow time.Duration
}

// Verify checks rawPIN against the credential under the supplied pepper and
// applies the lockout policy. It returns the outcome and the updated snapshot;
// the caller must persist the snapshot even on ResultMismatch so failure
// counts survive restarts.
//
// While locked, no hash comparison is performed.
func Verify(cred Credential, pepper []byte, rawPIN string, now time.Time, policy Policy) (Result, Credential, error) {
	if cred.Locked(now) {
		return ResultLocked, cred, nil
	}

	ok, err := VerifyPIN(pepper, rawPIN, cred.Hash)
	if err != nil {
		return ResultMismatch, cred, err
	}

	if !ok {
		cred.FailedCount++
		if policy.MaxFails > 0 && cred.FailedCount >= policy.MaxFails {
			cred.LockedUntil = now.Add(policy.LockWindow)
			cred.FailedCount = 0
		}
		return ResultMismatch, cred, nil
	}

	cred.FailedCount = 0
	cred.LockedUntil = time.Time{}
	cred.LastVerifiedAt = now
	return ResultOk, cred, nil
}
