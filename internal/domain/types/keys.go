package types

import (
	"encoding/hex"
	"fmt"
)

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// Hex returns the lowercase hex form of the key.
func (p X25519Public) Hex() string { return hex.EncodeToString(p[:]) }

// X25519Private is a Curve25519 private key. It never crosses the
// key store boundary.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// SymmetricKey is a 32-byte channel encryption key derived from a
// key agreement.
type SymmetricKey [32]byte

// Slice returns the key as a []byte.
func (k SymmetricKey) Slice() []byte { return k[:] }

// Hex returns the lowercase hex form of the key.
func (k SymmetricKey) Hex() string { return hex.EncodeToString(k[:]) }

// ParsePublicKey decodes a 64-character hex string into a public key.
func ParsePublicKey(s string) (X25519Public, error) {
	var pub X25519Public
	raw, err := hex.DecodeString(s)
	if err != nil {
		return pub, fmt.Errorf("parse public key: %w", err)
	}
	if len(raw) != len(pub) {
		return pub, fmt.Errorf("parse public key: want %d bytes, got %d", len(pub), len(raw))
	}
	copy(pub[:], raw)
	return pub, nil
}

// TopicKeys is the key material bound to a single relay topic. Exactly
// one resolution mode applies: a symmetric key for sealed-channel
// topics, a self/peer agreement pair for topics that send
// ephemeral-key envelopes, or a bare self key for inbound proposal
// topics whose envelopes carry the sender key in the clear.
type TopicKeys struct {
	Sym  *SymmetricKey `json:"sym,omitempty"`
	Self *X25519Public `json:"self,omitempty"`
	Peer *X25519Public `json:"peer,omitempty"`
}
