package pinauth

import (
	"context"
	"errors"

	"github.com/finwise/pinauth/pepper"
)

// PromotePepperKey makes alias the Active pepper key. The previously active
// key moves to Retiring, so credentials hashed under it keep verifying and
// get transparently re-hashed on their next successful login.
func (e *Engine) PromotePepperKey(ctx context.Context, alias string) error {
	if err := e.ready(); err != nil {
		return err
	}

	if err := e.registry.Promote(alias); err != nil {
		return e.mapPepperErr(err)
	}

	e.emitAudit(ctx, EventPepperKeyPromoted, true, "", "", "", nil, func() map[string]string {
		return map[string]string{"alias": alias}
	})

	return nil
}

// RevokePepperKey marks alias compromised. Credentials still pinned to it
// fail login with ErrPepperKeyRevoked until re-registered. Idempotent.
func (e *Engine) RevokePepperKey(ctx context.Context, alias string) error {
	if err := e.ready(); err != nil {
		return err
	}

	if err := e.registry.Revoke(alias); err != nil {
		return e.mapPepperErr(err)
	}

	e.emitAudit(ctx, EventPepperKeyRevoked, true, "", "", "", nil, func() map[string]string {
		return map[string]string{"alias": alias}
	})

	return nil
}

// PepperKeys returns a snapshot of the registered pepper keys and their
// statuses. Secrets are never included.
func (e *Engine) PepperKeys() []pepper.Key {
	if e == nil || e.registry == nil {
		return nil
	}
	return e.registry.Keys()
}

func (e *Engine) mapPepperErr(err error) error {
	switch {
	case errors.Is(err, pepper.ErrUnknownAlias):
		return ErrUnknownPepperAlias
	case errors.Is(err, pepper.ErrNoActiveKey):
		return ErrNoActivePepperKey
	case errors.Is(err, pepper.ErrKeyRevoked):
		return ErrPepperKeyRevoked
	default:
		return err
	}
}
