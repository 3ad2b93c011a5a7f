// Package keystore generates, persists, and resolves key material:
// asymmetric pairs, derived symmetric keys, and per-topic bindings.
// Private keys never leave this package.
package keystore
