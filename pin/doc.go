// Package pin implements peppered PIN hashing, verification with lockout, and
// transparent credential upgrades.
//
// # Credential model
//
// [Credential] is an immutable snapshot of one user's PIN record. Verification
// and upgrade are pure functions: they take a snapshot and return a new
// snapshot for the caller to persist. Nothing in this package performs I/O.
//
// # Hashing
//
// Hashes are bcrypt over pepper‖PIN with a tunable cost factor. The pepper is
// held server-side, separate from the credential store, so a credential-store
// compromise alone is insufficient to brute-force four-digit PINs.
//
// # Architecture boundaries
//
// This package owns hash computation and the fail/lock/success state
// transitions. Pepper resolution and durable persistence belong to the Engine.
//
// # What this package must NOT do
//
//   - Perform network or storage I/O.
//   - Log PIN or pepper material.
//   - Import any other pinauth package.
package pin
