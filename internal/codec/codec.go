package codec

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/chacha20poly1305"

	"pairlink/internal/domain"
)

// Codec seals plaintexts into wire envelopes and opens them. Keys are
// resolved through the key manager by topic for the duration of one
// call and never retained.
type Codec struct {
	keys   domain.KeyManager
	logger *zap.Logger
}

// New constructs a codec over the given key manager.
func New(keys domain.KeyManager, logger *zap.Logger) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{keys: keys, logger: logger.Named("codec")}
}

// Encrypt seals plaintext for a topic. The envelope type follows the
// binding: a key agreement produces a type-1 envelope carrying the
// local public key in the clear; a symmetric key produces type 0.
func (c *Codec) Encrypt(topic domain.Topic, plaintext []byte) ([]byte, error) {
	keys, err := c.keys.TopicKeys(topic)
	if err != nil {
		return nil, err
	}

	switch {
	case keys.Self != nil && keys.Peer != nil:
		sym, err := c.keys.DeriveSharedKey(*keys.Self, *keys.Peer)
		if err != nil {
			return nil, err
		}
		ct, err := seal(sym, plaintext)
		if err != nil {
			return nil, err
		}
		return json.Marshal(domain.Envelope{
			Type:            domain.EnvelopeKeyAgreement,
			SenderPublicKey: keys.Self.Hex(),
			Ciphertext:      ct,
		})

	case keys.Sym != nil:
		ct, err := seal(*keys.Sym, plaintext)
		if err != nil {
			return nil, err
		}
		return json.Marshal(domain.Envelope{
			Type:       domain.EnvelopeSym,
			Ciphertext: ct,
		})

	default:
		return nil, fmt.Errorf("%w: no usable binding for %s", domain.ErrKeyNotFound, topic)
	}
}

// Decrypt opens a wire envelope for a topic. Type-1 envelopes resolve
// their key from the clear sender key and the local key bound to the
// topic; type-0 envelopes require the symmetric key to be bound
// already. Failures are never retried.
func (c *Codec) Decrypt(topic domain.Topic, wire []byte) ([]byte, error) {
	var env domain.Envelope
	if err := json.Unmarshal(wire, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", domain.ErrDecryptionFailed, err)
	}

	switch env.Type {
	case domain.EnvelopeKeyAgreement:
		sender, err := domain.ParsePublicKey(env.SenderPublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionFailed, err)
		}
		keys, err := c.keys.TopicKeys(topic)
		if err != nil {
			return nil, err
		}
		if keys.Self == nil {
			return nil, fmt.Errorf("%w: no self key for %s", domain.ErrKeyNotFound, topic)
		}
		sym, err := c.keys.DeriveSharedKey(*keys.Self, sender)
		if err != nil {
			return nil, err
		}
		return unseal(sym, env.Ciphertext)

	case domain.EnvelopeSym:
		keys, err := c.keys.TopicKeys(topic)
		if err != nil {
			return nil, err
		}
		if keys.Sym == nil {
			return nil, fmt.Errorf("%w: no symmetric key for %s", domain.ErrKeyNotFound, topic)
		}
		return unseal(*keys.Sym, env.Ciphertext)

	default:
		return nil, fmt.Errorf("%w: unknown envelope type %d", domain.ErrDecryptionFailed, env.Type)
	}
}

// seal encrypts with ChaCha20-Poly1305 and prefixes the random nonce.
func seal(key domain.SymmetricKey, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key.Slice())
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// unseal splits the nonce prefix and opens the ciphertext.
func unseal(key domain.SymmetricKey, data []byte) ([]byte, error) {
	if len(data) < chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", domain.ErrDecryptionFailed)
	}
	aead, err := chacha20poly1305.New(key.Slice())
	if err != nil {
		return nil, err
	}
	nonce, ct := data[:chacha20poly1305.NonceSize], data[chacha20poly1305.NonceSize:]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionFailed, err)
	}
	return pt, nil
}

var _ domain.EnvelopeCodec = (*Codec)(nil)
