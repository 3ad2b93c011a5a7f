package codec_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairlink/internal/codec"
	"pairlink/internal/domain"
	"pairlink/internal/keystore"
	"pairlink/internal/store"
)

func newKeys(t *testing.T) *keystore.Service {
	t.Helper()
	return keystore.New(store.NewMemoryKeyStorage(), nil)
}

func TestRoundTripSymmetric(t *testing.T) {
	keys := newKeys(t)
	c := codec.New(keys, nil)

	a, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	b, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	sym, err := keys.DeriveSharedKey(a, b)
	require.NoError(t, err)

	topic := keys.TopicFor(sym.Hex())
	require.NoError(t, keys.BindSymmetricKey(topic, sym))

	plaintext := []byte(`{"id":1,"jsonrpc":"2.0","method":"pairing_invite"}`)
	wire, err := c.Encrypt(topic, plaintext)
	require.NoError(t, err)

	got, err := c.Decrypt(topic, wire)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestRoundTripKeyAgreement(t *testing.T) {
	// Sender and receiver share storage here only for convenience;
	// derivation exercises both directions of the agreement.
	keys := newKeys(t)
	c := codec.New(keys, nil)

	receiver, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	sender, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	topic := keys.TopicFor(receiver.Hex())

	// Sender side: agreement bound, emits a type-1 envelope.
	require.NoError(t, keys.BindKeyAgreement(topic, sender, receiver))
	wire, err := c.Encrypt(topic, []byte("proposal payload"))
	require.NoError(t, err)

	// Receiver side: only the self key is bound; the sender key comes
	// from the envelope.
	require.NoError(t, keys.BindSelfKey(topic, receiver))
	got, err := c.Decrypt(topic, wire)
	require.NoError(t, err)
	assert.Equal(t, []byte("proposal payload"), got)
}

func TestEncryptUnknownTopic(t *testing.T) {
	c := codec.New(newKeys(t), nil)
	_, err := c.Encrypt(domain.Topic("deadbeef"), []byte("x"))
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestDecryptTampered(t *testing.T) {
	keys := newKeys(t)
	c := codec.New(keys, nil)

	a, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	b, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	sym, err := keys.DeriveSharedKey(a, b)
	require.NoError(t, err)

	topic := keys.TopicFor(sym.Hex())
	require.NoError(t, keys.BindSymmetricKey(topic, sym))

	wire, err := c.Encrypt(topic, []byte("payload"))
	require.NoError(t, err)

	// Flip a ciphertext byte inside the JSON envelope.
	var env domain.Envelope
	require.NoError(t, json.Unmarshal(wire, &env))
	env.Ciphertext[len(env.Ciphertext)-1] ^= 0xff
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = c.Decrypt(topic, tampered)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

func TestDecryptMalformed(t *testing.T) {
	keys := newKeys(t)
	c := codec.New(keys, nil)

	_, err := c.Decrypt(domain.Topic("any"), []byte("not json"))
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}
