package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"

	domaintypes "pairlink/internal/domain/types"
)

// SharedKey derives the channel symmetric key from an X25519 agreement
// between a local private key and a peer public key. The HKDF info
// binds both public halves in sorted order, so both sides arrive at
// the same key no matter who derives it.
func SharedKey(selfPriv domaintypes.X25519Private, selfPub, peerPub domaintypes.X25519Public) (domaintypes.SymmetricKey, error) {
	var key domaintypes.SymmetricKey

	secret, err := DH(selfPriv, peerPub)
	if err != nil {
		return key, err
	}
	defer Zero(secret[:])

	lo, hi := selfPub, peerPub
	if lesser(peerPub, selfPub) {
		lo, hi = peerPub, selfPub
	}
	info := make([]byte, 0, 64)
	info = append(info, lo[:]...)
	info = append(info, hi[:]...)

	r := hkdf.New(sha256.New, secret[:], nil, info)
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

// TopicFor hashes a key's hex form into the relay routing key.
// Deterministic across processes.
func TopicFor(keyHex string) domaintypes.Topic {
	sum := sha256.Sum256([]byte(keyHex))
	return domaintypes.Topic(hex.EncodeToString(sum[:]))
}

func lesser(a, b domaintypes.X25519Public) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
