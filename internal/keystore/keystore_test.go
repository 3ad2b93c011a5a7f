package keystore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairlink/internal/domain"
	"pairlink/internal/keystore"
	"pairlink/internal/store"
)

func TestDeriveSharedKeySymmetry(t *testing.T) {
	alice := keystore.New(store.NewMemoryKeyStorage(), nil)
	bob := keystore.New(store.NewMemoryKeyStorage(), nil)

	aPub, err := alice.GenerateKeyPair()
	require.NoError(t, err)
	bPub, err := bob.GenerateKeyPair()
	require.NoError(t, err)

	fromAlice, err := alice.DeriveSharedKey(aPub, bPub)
	require.NoError(t, err)
	fromBob, err := bob.DeriveSharedKey(bPub, aPub)
	require.NoError(t, err)

	assert.Equal(t, fromAlice, fromBob)
}

func TestDeriveSharedKeyUnknownPair(t *testing.T) {
	keys := keystore.New(store.NewMemoryKeyStorage(), nil)

	var stranger domain.X25519Public
	stranger[0] = 1
	_, err := keys.DeriveSharedKey(stranger, stranger)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestGetOrGenerateIdentityKeyStable(t *testing.T) {
	keys := keystore.New(store.NewMemoryKeyStorage(), nil)

	first, err := keys.GetOrGenerateIdentityKey()
	require.NoError(t, err)
	second, err := keys.GetOrGenerateIdentityKey()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTopicBindings(t *testing.T) {
	keys := keystore.New(store.NewMemoryKeyStorage(), nil)

	pub, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	topic := keys.TopicFor(pub.Hex())

	_, err = keys.TopicKeys(topic)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, keys.BindSelfKey(topic, pub))
	bound, err := keys.TopicKeys(topic)
	require.NoError(t, err)
	require.NotNil(t, bound.Self)
	assert.Equal(t, pub, *bound.Self)

	require.NoError(t, keys.RemoveTopicKeys(topic))
	_, err = keys.TopicKeys(topic)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}
