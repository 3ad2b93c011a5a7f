package types

// EnvelopeType selects how the receiver resolves the decryption key.
type EnvelopeType int

const (
	// EnvelopeSym is decrypted with the symmetric key already bound to
	// the envelope's topic.
	EnvelopeSym EnvelopeType = 0

	// EnvelopeKeyAgreement carries the sender's public key in the
	// clear; the receiver derives the channel key from it and the key
	// it holds for the topic.
	EnvelopeKeyAgreement EnvelopeType = 1
)

// Envelope is the encrypted wire unit exchanged over a topic.
// SenderPublicKey is set only for EnvelopeKeyAgreement; Ciphertext is
// nonce-prefixed sealed data, base64 on the wire.
type Envelope struct {
	Type            EnvelopeType `json:"type"`
	SenderPublicKey string       `json:"senderPublicKey,omitempty"`
	Ciphertext      []byte       `json:"ciphertext"`
}
