// Package pepper manages the server-held secrets ("peppers") mixed into PIN
// hashes, and the lifecycle of the keys that name them.
//
// # Key lifecycle
//
// Keys move Active → Retiring → Revoked and are never deleted. At most one key
// is Active at a time; promotion demotes the previous Active key to Retiring.
// A Revoked key's secret is never decrypted or used again.
//
// # Secret material
//
// Secrets are stored encrypted (AES-256-GCM envelope, nonce-prefixed) and
// fetched from a [Source] on first use per alias. Decrypted secrets are cached
// for the process lifetime — rotation is handled by alias changes, not by
// secret expiry.
//
// # Architecture boundaries
//
// This package owns key state and secret resolution. Which alias a credential
// was hashed under, and when to re-hash, is decided by the Engine.
//
// # What this package must NOT do
//
//   - Hash or verify PINs.
//   - Log secret material or ciphertexts.
//   - Import any other pinauth package.
package pepper
