// Package token implements signed access and refresh token issuance and
// validation.
//
// # Wire format
//
// Compact JWS: three dot-separated base64url segments (header, claims,
// signature), HMAC-SHA256 by default with optional Ed25519. Claims are a small
// closed set — sub, did, jti, typ, iat, exp — and consumers tolerate unknown
// additional claims.
//
// # Failure policy
//
// Parsing and signature failures all funnel into a single "invalid" outcome.
// The convenience extractors fail closed: a token that does not verify yields
// "not present" rather than an error, and callers on the critical path treat
// that as a hard rejection.
//
// # Architecture boundaries
//
// This package owns signing, verification, and claim extraction. Whether a
// refresh token is still live belongs to the ledger; this package never
// consults it.
//
// # What this package must NOT do
//
//   - Access Redis or any I/O.
//   - Trust claims from a token whose signature fails.
//   - Import the ledger or root packages.
package token
