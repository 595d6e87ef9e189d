package pinauth

import "sync/atomic"

// MetricID identifies a counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful PIN verifications through Login.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins (collapsed credential errors).
	MetricLoginFailure
	// MetricLoginLocked counts logins rejected by an active lockout.
	MetricLoginLocked
	// MetricLockoutTriggered counts failures that tripped the lockout threshold.
	MetricLockoutTriggered
	// MetricCredentialUpgraded counts transparent re-hashes on login.
	MetricCredentialUpgraded
	// MetricRefreshIssued counts refresh tokens minted (login and rotation).
	MetricRefreshIssued
	// MetricRotateSuccess counts successful refresh rotations.
	MetricRotateSuccess
	// MetricRotateFailure counts rejected rotations.
	MetricRotateFailure
	// MetricRefreshReuseDetected counts rotations rejected as reuse.
	MetricRefreshReuseDetected
	// MetricDeviceMismatch counts device-binding rejections.
	MetricDeviceMismatch
	// MetricRevoke counts revocations (including idempotent no-ops).
	MetricRevoke

	metricIDCount
)

// Metrics holds atomic counters. When disabled, all operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
