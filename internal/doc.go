// Package internal holds shared primitives used by the pinauth root package
// and its subpackages: token identifier generation and token fingerprinting.
//
// Nothing in this package is part of the public API.
package internal
