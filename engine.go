package pinauth

import (
	"context"

	"github.com/finwise/pinauth/ledger"
	"github.com/finwise/pinauth/pepper"
	"github.com/finwise/pinauth/token"
)

// Engine is the credential lifecycle engine. It verifies PIN logins,
// transparently upgrades stored hashes after pepper or cost rotation, and
// manages the refresh token ledger. All methods are safe for concurrent use.
//
// Engines are built with [Builder]; the zero value is not usable.
type Engine struct {
	config Config

	registry *pepper.Registry
	peppers  *pepper.Store
	issuer   *token.Issuer
	ledger   *ledger.Store

	directory   UserDirectory
	credentials CredentialProvider

	audit   *auditDispatcher
	metrics *Metrics
}

// Close flushes and stops the async audit dispatcher. It does not close the
// Redis client, which is owned by the caller.
func (e *Engine) Close() {
	if e.audit != nil {
		e.audit.Close()
	}
}

// MetricsSnapshot returns a copy of the in-process counters. All values are
// zero when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// HealthCheck verifies the engine can reach its dependencies: the active
// pepper key must resolve and decrypt, and the ledger backend must respond.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}

	key, err := e.registry.ActiveKey()
	if err != nil {
		return ErrNoActivePepperKey
	}
	if _, err := e.peppers.Secret(ctx, key.Alias); err != nil {
		return e.mapPepperErr(err)
	}

	if err := e.ledger.Ping(ctx); err != nil {
		return ErrLedgerUnavailable
	}

	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.registry == nil || e.peppers == nil || e.issuer == nil ||
		e.ledger == nil || e.directory == nil || e.credentials == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}
