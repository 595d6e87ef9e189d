// Package pinauth provides the credential lifecycle and token rotation core
// for PIN-authenticated services: peppered PIN verification with lockout,
// transparent re-hashing as pepper keys and cost factors roll forward, JWT
// access tokens, and rotating refresh tokens with reuse detection.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// pinauth is the public surface. It exposes [Engine], [Builder], [Config], the
// port interfaces ([UserDirectory], [CredentialProvider]), and value types.
// User identity and PIN credential storage are the caller's, reached through
// the ports; the refresh ledger and nothing else lives in Redis.
//
// # What this package must NOT do
//
//   - Expose Redis clients, ledger records, or encoding details in its public API.
//   - Log PINs, peppers, or raw token material.
//   - Distinguish "unknown user" from "wrong PIN" in returned errors.
package pinauth
