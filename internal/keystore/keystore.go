package keystore

import (
	"fmt"

	"go.uber.org/zap"

	"pairlink/internal/crypto"
	"pairlink/internal/domain"
)

// Service owns all key material. Private keys live in the backing
// storage and are only ever used inside DeriveSharedKey; callers see
// public halves and derived symmetric keys.
type Service struct {
	storage domain.KeyStorage
	logger  *zap.Logger
}

// New constructs a key store over the given storage.
func New(storage domain.KeyStorage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{storage: storage, logger: logger.Named("keystore")}
}

// GenerateKeyPair creates a fresh X25519 pair, persists it, and
// returns the public half. A storage failure is fatal to the call; the
// pair is not considered to exist.
func (s *Service) GenerateKeyPair() (domain.X25519Public, error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.X25519Public{}, err
	}
	if err := s.storage.SaveKeyPair(pub, priv); err != nil {
		return domain.X25519Public{}, err
	}
	crypto.Zero(priv[:])
	return pub, nil
}

// GetOrGenerateIdentityKey returns the long-lived invite key pair's
// public half, creating and recording it on first use.
func (s *Service) GetOrGenerateIdentityKey() (domain.X25519Public, error) {
	pub, ok, err := s.storage.LoadIdentity()
	if err != nil {
		return domain.X25519Public{}, err
	}
	if ok {
		return pub, nil
	}
	pub, err = s.GenerateKeyPair()
	if err != nil {
		return domain.X25519Public{}, err
	}
	if err := s.storage.SaveIdentity(pub); err != nil {
		return domain.X25519Public{}, err
	}
	s.logger.Debug("generated identity key", zap.String("publicKey", pub.Hex()))
	return pub, nil
}

// IdentityKey returns the invite key pair's public half if one has
// been generated.
func (s *Service) IdentityKey() (domain.X25519Public, bool, error) {
	return s.storage.LoadIdentity()
}

// DeriveSharedKey performs the X25519 agreement between a stored pair
// and a peer public key, then the KDF step. Both sides derive the same
// key independently.
func (s *Service) DeriveSharedKey(self domain.X25519Public, peer domain.X25519Public) (domain.SymmetricKey, error) {
	priv, ok, err := s.storage.LoadKeyPair(self)
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	if !ok {
		return domain.SymmetricKey{}, fmt.Errorf("%w: no pair for %s", domain.ErrKeyNotFound, self.Hex())
	}
	defer crypto.Zero(priv[:])
	return crypto.SharedKey(priv, self, peer)
}

// TopicFor computes the relay topic for a key's hex form.
func (s *Service) TopicFor(keyHex string) domain.Topic {
	return crypto.TopicFor(keyHex)
}

// BindSymmetricKey binds a resolved symmetric key to a topic.
func (s *Service) BindSymmetricKey(topic domain.Topic, key domain.SymmetricKey) error {
	k := key
	return s.storage.SaveTopicKeys(topic, domain.TopicKeys{Sym: &k})
}

// BindKeyAgreement binds a self/peer agreement to a topic, to be
// resolved at encrypt time into an ephemeral-key envelope.
func (s *Service) BindKeyAgreement(topic domain.Topic, self, peer domain.X25519Public) error {
	sc, pc := self, peer
	return s.storage.SaveTopicKeys(topic, domain.TopicKeys{Self: &sc, Peer: &pc})
}

// BindSelfKey binds only the local key to a topic for decrypting
// inbound envelopes that carry the sender key in the clear.
func (s *Service) BindSelfKey(topic domain.Topic, self domain.X25519Public) error {
	sc := self
	return s.storage.SaveTopicKeys(topic, domain.TopicKeys{Self: &sc})
}

// TopicKeys resolves the binding for a topic.
func (s *Service) TopicKeys(topic domain.Topic) (domain.TopicKeys, error) {
	keys, ok, err := s.storage.LoadTopicKeys(topic)
	if err != nil {
		return domain.TopicKeys{}, err
	}
	if !ok {
		return domain.TopicKeys{}, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, topic)
	}
	return keys, nil
}

// RemoveTopicKeys deletes the binding for a topic.
func (s *Service) RemoveTopicKeys(topic domain.Topic) error {
	return s.storage.DeleteTopicKeys(topic)
}

// RemoveKeyPair deletes a stored pair by its public half.
func (s *Service) RemoveKeyPair(pub domain.X25519Public) error {
	return s.storage.DeleteKeyPair(pub)
}

var _ domain.KeyManager = (*Service)(nil)
