// Package crypto exposes the primitives the engine builds on.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - Channel key derivation via HKDF-SHA256 (SharedKey), symmetric in the
//     two parties by construction
//   - Deterministic topic digests (TopicFor)
//   - Best-effort memory wiping for sensitive byte slices (Zero)
//
// All functions work on the fixed-size array types defined in
// internal/domain/types to avoid accidental reallocations. Callers should
// treat returned secrets as sensitive and rely on Zero when practical.
package crypto
