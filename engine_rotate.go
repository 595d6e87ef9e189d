package pinauth

import (
	"context"
	"errors"
	"time"

	"github.com/finwise/pinauth/internal"
	"github.com/finwise/pinauth/ledger"
	"github.com/finwise/pinauth/token"
)

// IssueRefreshToken mints a refresh token for an already-authenticated user
// and registers it in the rotation ledger. Use it to re-establish a refresh
// chain after out-of-band authentication (e.g. step-up or support flows).
func (e *Engine) IssueRefreshToken(ctx context.Context, userID, deviceID string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if !validDeviceID(deviceID) {
		return "", ErrDeviceMismatch
	}
	return e.mintRefresh(ctx, userID, deviceID, time.Now())
}

// Rotate exchanges a live refresh token for a fresh access + refresh pair.
// The presented token's ledger record is atomically marked rotated; a second
// rotation of the same token is reported as reuse and poisons the record so
// the lineage can never mint again.
func (e *Engine) Rotate(ctx context.Context, refreshToken, deviceID string) (string, string, error) {
	if err := e.ready(); err != nil {
		return "", "", err
	}

	if !validDeviceID(deviceID) {
		e.metricInc(MetricDeviceMismatch)
		return "", "", ErrDeviceMismatch
	}

	claims, err := e.issuer.Parse(refreshToken)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, EventRotateFailure, false, "", deviceID, "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": "parse_failed"}
		})
		return "", "", ErrRefreshInvalid
	}
	if claims.TokenType != token.TypeRefresh {
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, EventRotateFailure, false, claims.Subject, deviceID, claims.ID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": "wrong_token_type"}
		})
		return "", "", ErrRefreshInvalid
	}
	if claims.DeviceID != deviceID {
		e.metricInc(MetricDeviceMismatch)
		e.emitAudit(ctx, EventDeviceMismatch, false, claims.Subject, deviceID, claims.ID, ErrDeviceMismatch, nil)
		return "", "", ErrDeviceMismatch
	}

	providedHash := internal.FingerprintToken(refreshToken, e.config.Token.PrivateKey)

	record, err := e.ledger.Rotate(ctx, claims.ID, providedHash,
		e.config.Security.EnforceRefreshRotation,
		e.config.Security.EnforceRefreshReuseDetection)
	if err != nil {
		return "", "", e.rotateLedgerFailure(ctx, claims, deviceID, err)
	}

	// The record is authoritative for identity; the claims merely located it.
	access, _, err := e.issuer.CreateAccess(record.UserID, deviceID)
	if err != nil {
		return "", "", err
	}
	refresh, err := e.mintRefresh(ctx, record.UserID, deviceID, time.Now())
	if err != nil {
		return "", "", err
	}

	e.metricInc(MetricRotateSuccess)
	e.emitAudit(ctx, EventRotateSuccess, true, record.UserID, deviceID, claims.ID, nil, nil)

	return access, refresh, nil
}

func (e *Engine) rotateLedgerFailure(ctx context.Context, claims *token.Claims, deviceID string, err error) error {
	switch {
	case errors.Is(err, ledger.ErrRecordNotFound):
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, EventRotateFailure, false, claims.Subject, deviceID, claims.ID, ErrRefreshNotFound, nil)
		return ErrRefreshNotFound

	case errors.Is(err, ledger.ErrReuseDetected),
		errors.Is(err, ledger.ErrHashMismatch),
		errors.Is(err, ledger.ErrRecordDead):
		e.metricInc(MetricRotateFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, EventRefreshReuse, false, claims.Subject, deviceID, claims.ID, ErrRefreshReuse, nil)
		return ErrRefreshReuse

	case errors.Is(err, ledger.ErrUnavailable):
		return ErrLedgerUnavailable

	default:
		return err
	}
}

// Revoke retires a refresh token ahead of its expiry. Missing records,
// device mismatches, and already-revoked records are silent no-ops: revoke is
// a cleanup path, not a probe.
func (e *Engine) Revoke(ctx context.Context, refreshToken, deviceID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !validDeviceID(deviceID) {
		return nil
	}

	jti, ok := e.issuer.TokenID(refreshToken)
	if !ok {
		return nil
	}

	if err := e.ledger.Revoke(ctx, jti, deviceID); err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			return ErrLedgerUnavailable
		}
		return err
	}

	e.metricInc(MetricRevoke)
	e.emitAudit(ctx, EventRefreshRevoked, true, "", deviceID, jti, nil, nil)

	return nil
}

// mintRefresh creates a refresh token and inserts its Live ledger record with
// a TTL matching the token's lifetime.
func (e *Engine) mintRefresh(ctx context.Context, userID, deviceID string, now time.Time) (string, error) {
	refresh, claims, err := e.issuer.CreateRefresh(userID, deviceID)
	if err != nil {
		return "", err
	}

	record := &ledger.Record{
		UserID:    userID,
		DeviceID:  deviceID,
		TokenHash: internal.FingerprintToken(refresh, e.config.Token.PrivateKey),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	ttl := claims.ExpiresAt.Time.Sub(now)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := e.ledger.Put(ctx, claims.ID, record, ttl); err != nil {
		return "", ErrLedgerUnavailable
	}

	e.metricInc(MetricRefreshIssued)
	e.emitAudit(ctx, EventRefreshIssued, true, userID, deviceID, claims.ID, nil, nil)

	return refresh, nil
}
