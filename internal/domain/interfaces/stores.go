package interfaces

import domaintypes "pairlink/internal/domain/types"

// KeyStorage persists asymmetric pairs and per-topic key bindings.
// Implementations keep private key material encrypted at rest.
type KeyStorage interface {
	SaveKeyPair(pub domaintypes.X25519Public, priv domaintypes.X25519Private) error
	LoadKeyPair(pub domaintypes.X25519Public) (domaintypes.X25519Private, bool, error)
	DeleteKeyPair(pub domaintypes.X25519Public) error

	SaveTopicKeys(topic domaintypes.Topic, keys domaintypes.TopicKeys) error
	LoadTopicKeys(topic domaintypes.Topic) (domaintypes.TopicKeys, bool, error)
	DeleteTopicKeys(topic domaintypes.Topic) error

	// Identity is the long-lived invite key pair's public half.
	SaveIdentity(pub domaintypes.X25519Public) error
	LoadIdentity() (domaintypes.X25519Public, bool, error)
}

// RelationshipStore persists relationship records keyed by topic, with
// a secondary lookup by the proposal request id.
type RelationshipStore interface {
	Save(rec domaintypes.RelationshipRecord) error
	Load(topic domaintypes.Topic) (domaintypes.RelationshipRecord, bool, error)
	LoadByRequestID(id domaintypes.RequestID) (domaintypes.RelationshipRecord, bool, error)
	Delete(topic domaintypes.Topic) error
	List() ([]domaintypes.RelationshipRecord, error)
}

// PendingRequestStore persists inbound proposals awaiting Respond.
type PendingRequestStore interface {
	Save(req domaintypes.PendingRequest) error
	Load(id domaintypes.RequestID) (domaintypes.PendingRequest, bool, error)
	Delete(id domaintypes.RequestID) error
}

// HistoryStore persists handled request ids for duplicate-delivery
// suppression.
type HistoryStore interface {
	Record(entry domaintypes.HistoryEntry) error
	Exists(id domaintypes.RequestID, topic domaintypes.Topic) (bool, error)
}
