package pinauth

import (
	"context"
	"time"
)

// Audit event type constants.
const (
	EventLoginSuccess       = "login_success"
	EventLoginFailure       = "login_failure"
	EventLoginLocked        = "login_locked"
	EventLockoutTriggered   = "lockout_triggered"
	EventCredentialUpgraded = "credential_upgraded"
	EventPinRegistered      = "pin_registered"
	EventRefreshIssued      = "refresh_issued"
	EventRotateSuccess      = "rotate_success"
	EventRotateFailure      = "rotate_failure"
	EventRefreshReuse       = "refresh_reuse_detected"
	EventDeviceMismatch     = "device_mismatch"
	EventRefreshRevoked     = "refresh_revoked"
	EventPepperKeyPromoted  = "pepper_key_promoted"
	EventPepperKeyRevoked   = "pepper_key_revoked"
)

// emitAudit builds and dispatches an audit event. metadataBuilder may be nil;
// it runs only when auditing is enabled.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID, deviceID, tokenID string, err error, metadataBuilder func() map[string]string) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		DeviceID:  deviceID,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}

	e.audit.Emit(ctx, event)
}
