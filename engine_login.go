package pinauth

import (
	"context"
	"log"
	"time"

	"github.com/finwise/pinauth/pepper"
	"github.com/finwise/pinauth/pin"
)

// Login verifies a phone + PIN pair and returns a short-lived access token.
// Device binding is recorded in the token's did claim.
//
// Unknown phone, missing credential, and wrong PIN all return
// ErrInvalidCredentials. An active lockout returns ErrPinLocked without
// touching the stored hash. On success the stored hash is transparently
// re-hashed when it lags the active pepper key or target cost.
func (e *Engine) Login(ctx context.Context, phone, pinCode, deviceID string) (string, error) {
	access, _, err := e.loginInternal(ctx, phone, pinCode, deviceID, false)
	return access, err
}

// LoginWithRefresh behaves like Login but additionally mints a refresh token
// and registers it in the rotation ledger.
func (e *Engine) LoginWithRefresh(ctx context.Context, phone, pinCode, deviceID string) (string, string, error) {
	return e.loginInternal(ctx, phone, pinCode, deviceID, true)
}

func (e *Engine) loginInternal(ctx context.Context, phone, pinCode, deviceID string, withRefresh bool) (string, string, error) {
	if err := e.ready(); err != nil {
		return "", "", err
	}

	if !validDeviceID(deviceID) || !validPinFormat(pinCode, e.config.Pin.Digits) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, false, "", deviceID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "malformed_input"}
		})
		return "", "", ErrInvalidCredentials
	}

	user, err := e.directory.FindUserByPhone(ctx, phone)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, false, "", deviceID, "", err, func() map[string]string {
			return map[string]string{"reason": "user_not_found"}
		})
		return "", "", ErrInvalidCredentials
	}

	cred, err := e.credentials.GetCredential(ctx, user.UserID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, false, user.UserID, deviceID, "", err, func() map[string]string {
			return map[string]string{"reason": "no_credential"}
		})
		return "", "", ErrInvalidCredentials
	}

	now := time.Now()

	// Lockout wins before any hash work or pepper resolution.
	if cred.Locked(now) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, EventLoginLocked, false, user.UserID, deviceID, "", ErrPinLocked, func() map[string]string {
			return map[string]string{"locked_until": cred.LockedUntil.UTC().Format(time.RFC3339)}
		})
		return "", "", ErrPinLocked
	}

	secret, err := e.pepperSecret(ctx, cred.PepperKeyAlias)
	if err != nil {
		e.emitAudit(ctx, EventLoginFailure, false, user.UserID, deviceID, "", err, func() map[string]string {
			return map[string]string{"reason": "pepper_unavailable", "alias": cred.PepperKeyAlias}
		})
		return "", "", err
	}

	policy := pin.Policy{
		MaxFails:   e.config.Pin.MaxFails,
		LockWindow: e.config.Pin.LockWindow,
	}

	result, updated, err := pin.Verify(cred, secret, pinCode, now, policy)
	if err != nil {
		// Corrupt stored hash; indistinguishable from a mismatch to callers.
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, false, user.UserID, deviceID, "", err, func() map[string]string {
			return map[string]string{"reason": "hash_error"}
		})
		return "", "", ErrInvalidCredentials
	}

	switch result {
	case pin.ResultLocked:
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, EventLoginLocked, false, user.UserID, deviceID, "", ErrPinLocked, nil)
		return "", "", ErrPinLocked

	case pin.ResultMismatch:
		// The bumped failure counter (or fresh lock window) must be durable
		// before the rejection is reported.
		if err := e.credentials.SaveCredential(ctx, updated); err != nil {
			return "", "", ErrDirectoryUnavailable
		}
		e.metricInc(MetricLoginFailure)
		if !updated.LockedUntil.IsZero() && updated.LockedUntil.After(now) {
			e.metricInc(MetricLockoutTriggered)
			e.emitAudit(ctx, EventLockoutTriggered, false, user.UserID, deviceID, "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"locked_until": updated.LockedUntil.UTC().Format(time.RFC3339)}
			})
		} else {
			e.emitAudit(ctx, EventLoginFailure, false, user.UserID, deviceID, "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"reason": "pin_mismatch"}
			})
		}
		return "", "", ErrInvalidCredentials
	}

	// Success path: persist the cleared counters, then attempt the
	// best-effort credential upgrade before minting tokens.
	if err := e.credentials.SaveCredential(ctx, updated); err != nil {
		return "", "", ErrDirectoryUnavailable
	}

	if e.config.Pin.UpgradeOnLogin {
		e.maybeUpgradeCredential(ctx, updated, secret, pinCode, deviceID, now)
	}

	access, _, err := e.issuer.CreateAccess(user.UserID, deviceID)
	if err != nil {
		return "", "", err
	}

	var refresh string
	if withRefresh {
		refresh, err = e.mintRefresh(ctx, user.UserID, deviceID, now)
		if err != nil {
			return "", "", err
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, EventLoginSuccess, true, user.UserID, deviceID, "", nil, nil)

	return access, refresh, nil
}

// maybeUpgradeCredential re-hashes the credential under the active pepper key
// and target cost when it lags either. Failures are swallowed: the login
// already succeeded and the next one will retry the upgrade.
func (e *Engine) maybeUpgradeCredential(ctx context.Context, cred pin.Credential, ownSecret []byte, pinCode, deviceID string, now time.Time) {
	activeKey, err := e.registry.ActiveKey()
	if err != nil {
		return
	}
	if !pin.NeedsUpgrade(cred, activeKey.Alias, e.config.Pin.TargetCost) {
		return
	}

	activeSecret, err := e.peppers.Secret(ctx, activeKey.Alias)
	if err != nil {
		return
	}

	upgraded, changed, err := pin.Upgrade(cred, ownSecret, pinCode, activeKey.Alias, activeSecret, e.config.Pin.TargetCost, now)
	if err != nil {
		log.Print("pinauth: credential re-hash failed")
		return
	}
	if !changed {
		return
	}
	if err := e.credentials.SaveCredential(ctx, upgraded); err != nil {
		log.Print("pinauth: credential upgrade save failed")
		return
	}

	e.metricInc(MetricCredentialUpgraded)
	e.emitAudit(ctx, EventCredentialUpgraded, true, cred.UserID, deviceID, "", nil, func() map[string]string {
		return map[string]string{"alias": activeKey.Alias}
	})
}

// RegisterPin creates or replaces a user's PIN credential, hashed under the
// active pepper key at the configured target cost. Counters and lock state
// reset.
func (e *Engine) RegisterPin(ctx context.Context, userID, pinCode string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !validPinFormat(pinCode, e.config.Pin.Digits) {
		return ErrInvalidCredentials
	}

	activeKey, err := e.registry.ActiveKey()
	if err != nil {
		return ErrNoActivePepperKey
	}
	secret, err := e.peppers.Secret(ctx, activeKey.Alias)
	if err != nil {
		return e.mapPepperErr(err)
	}

	hash, err := pin.HashPIN(secret, pinCode, e.config.Pin.TargetCost)
	if err != nil {
		return err
	}

	now := time.Now()
	cred := pin.Credential{
		UserID:         userID,
		PepperKeyAlias: activeKey.Alias,
		Hash:           hash,
		Cost:           e.config.Pin.TargetCost,
		LastChangedAt:  now,
	}
	if err := e.credentials.SaveCredential(ctx, cred); err != nil {
		return ErrDirectoryUnavailable
	}

	e.emitAudit(ctx, EventPinRegistered, true, userID, "", "", nil, nil)

	return nil
}

// pepperSecret resolves the decrypted pepper for a credential's alias,
// enforcing registry status first so revoked material is never fetched.
func (e *Engine) pepperSecret(ctx context.Context, alias string) ([]byte, error) {
	key, err := e.registry.Get(alias)
	if err != nil {
		return nil, ErrUnknownPepperAlias
	}
	if key.Status == pepper.StatusRevoked {
		return nil, ErrPepperKeyRevoked
	}

	secret, err := e.peppers.Secret(ctx, alias)
	if err != nil {
		return nil, e.mapPepperErr(err)
	}
	return secret, nil
}

func validPinFormat(pinCode string, digits int) bool {
	if len(pinCode) != digits {
		return false
	}
	for i := 0; i < len(pinCode); i++ {
		if pinCode[i] < '0' || pinCode[i] > '9' {
			return false
		}
	}
	return true
}
