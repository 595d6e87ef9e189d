package pinauth

import "errors"

var (
	// ErrInvalidCredentials covers unknown user, missing credential, and PIN
	// mismatch. The three are deliberately indistinguishable to callers to
	// prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPinLocked indicates the credential is under an active lockout window.
	ErrPinLocked = errors.New("pin locked")
	// ErrRefreshInvalid indicates a refresh token that failed signature,
	// expiry, or type checks. All crypto-level failures normalize here.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrDeviceMismatch indicates the presented device id does not match the
	// token's embedded device claim. Alert-worthy; callers should force a full
	// re-login.
	ErrDeviceMismatch = errors.New("device mismatch")
	// ErrRefreshNotFound indicates a structurally valid refresh token with no
	// ledger record (forged jti, or ledger rebuilt without it).
	ErrRefreshNotFound = errors.New("refresh token not tracked")
	// ErrRefreshReuse indicates rotation was attempted with a revoked or
	// already-superseded token. The jti's lineage can never mint again.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrUnknownPepperAlias indicates no pepper ciphertext is registered for a
	// credential's key alias. Configuration-fatal.
	ErrUnknownPepperAlias = errors.New("unknown pepper key alias")
	// ErrNoActivePepperKey indicates the registry has no Active key.
	// Configuration-fatal: nobody can be authenticated.
	ErrNoActivePepperKey = errors.New("no active pepper key")
	// ErrPepperKeyRevoked indicates a credential is pinned to a revoked pepper
	// key, whose secret must never be used again.
	ErrPepperKeyRevoked = errors.New("pepper key revoked")
	// ErrLedgerUnavailable indicates the refresh ledger backend is unreachable.
	ErrLedgerUnavailable = errors.New("refresh ledger unavailable")
	// ErrDirectoryUnavailable indicates the user directory or credential store
	// could not be reached.
	ErrDirectoryUnavailable = errors.New("credential backend unavailable")
	// ErrEngineNotReady indicates use of an Engine that was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
)
