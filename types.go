package pinauth

import (
	"context"

	"github.com/finwise/pinauth/pin"
)

// UserRecord is the minimal identity record resolved through [UserDirectory].
type UserRecord struct {
	UserID string
	Phone  string
}

// UserDirectory is the identity-lookup port. Implementations query the
// caller's user store; pinauth never owns user rows.
type UserDirectory interface {
	FindUserByPhone(ctx context.Context, phone string) (UserRecord, error)
}

// CredentialProvider is the durable storage port for PIN credentials.
//
// SaveCredential must be durable before it returns: failure counters and lock
// windows are safety-critical and must survive process restarts. GetCredential
// returns an error when no credential exists for the user; the Engine folds
// that into ErrInvalidCredentials.
type CredentialProvider interface {
	GetCredential(ctx context.Context, userID string) (pin.Credential, error)
	SaveCredential(ctx context.Context, cred pin.Credential) error
}

// maxDeviceIDLength bounds the client-supplied device id (opaque header
// value; anything longer is rejected, not truncated).
const maxDeviceIDLength = 64

func validDeviceID(deviceID string) bool {
	return deviceID != "" && len(deviceID) <= maxDeviceIDLength
}
