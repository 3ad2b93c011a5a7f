// Package store provides persistence for the engine's records.
//
// It contains concrete implementations of the domain storage
// interfaces: JSON files on disk (private key material sealed with a
// passphrase-derived key) and in-memory equivalents for tests and
// ephemeral engines. All methods are concurrency-safe via internal
// locking.
//
// The package includes stores for:
//   - Key pairs and per-topic key bindings (FileKeyStorage)
//   - Relationship records (FileRelationshipStore)
//   - Pending inbound proposals (FilePendingRequestStore)
//   - Handled-request history (FileHistoryStore)
package store
