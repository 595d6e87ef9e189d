// Package ledger tracks issued refresh tokens by jti and implements the
// rotate/revoke state machine with reuse detection.
//
// # Record lifecycle
//
// Live → Rotated (superseded; record kept, not deleted) and, independently,
// Live|Rotated → Revoked. ReuseDetected is a sticky flag that is never
// cleared. A rotated record is dead for issuing tokens but is retained so a
// second rotation attempt on the same jti is recognized as reuse.
//
// # Storage
//
// Records live in Redis under a versioned binary encoding, keyed by jti, with
// a TTL equal to the token's remaining lifetime so expiry doubles as garbage
// collection. Rotation is a WATCH/MULTI compare-and-swap: two concurrent
// rotations of the same token cannot both succeed.
//
// # Architecture boundaries
//
// This package owns record state and per-key atomicity. Token signature and
// claim validation happen in the token package before the ledger is consulted;
// minting replacement tokens is the Engine's job.
//
// # What this package must NOT do
//
//   - Store raw refresh tokens — only their peppered sha256 fingerprint.
//   - Parse or verify JWTs.
//   - Import any other pinauth package.
package ledger
