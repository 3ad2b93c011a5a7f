package interfaces

import (
	"context"

	domaintypes "pairlink/internal/domain/types"
)

// KeyManager owns all key material. Private keys are generated,
// persisted, and used inside the implementation; only public halves
// and derived symmetric keys cross this boundary.
type KeyManager interface {
	// GenerateKeyPair creates and persists a pair, returning its
	// public half.
	GenerateKeyPair() (domaintypes.X25519Public, error)

	// GetOrGenerateIdentityKey returns the long-lived invite key,
	// creating it on first use.
	GetOrGenerateIdentityKey() (domaintypes.X25519Public, error)

	// IdentityKey returns the invite key if one has been generated.
	IdentityKey() (domaintypes.X25519Public, bool, error)

	// DeriveSharedKey runs the key agreement between a locally held
	// pair (named by its public half) and a peer public key. The
	// result is identical regardless of which side derives it.
	DeriveSharedKey(self domaintypes.X25519Public, peer domaintypes.X25519Public) (domaintypes.SymmetricKey, error)

	// TopicFor computes the deterministic topic for a key's hex form.
	TopicFor(keyHex string) domaintypes.Topic

	BindSymmetricKey(topic domaintypes.Topic, key domaintypes.SymmetricKey) error
	BindKeyAgreement(topic domaintypes.Topic, self, peer domaintypes.X25519Public) error
	BindSelfKey(topic domaintypes.Topic, self domaintypes.X25519Public) error

	// TopicKeys resolves the binding for a topic, or ErrKeyNotFound.
	TopicKeys(topic domaintypes.Topic) (domaintypes.TopicKeys, error)

	RemoveTopicKeys(topic domaintypes.Topic) error
	RemoveKeyPair(pub domaintypes.X25519Public) error
}

// EnvelopeCodec seals plaintexts into wire envelopes and opens them,
// resolving keys through the key manager by topic. Implementations
// never retain key material between calls.
type EnvelopeCodec interface {
	Encrypt(topic domaintypes.Topic, plaintext []byte) ([]byte, error)
	Decrypt(topic domaintypes.Topic, wire []byte) ([]byte, error)
}

// Router serializes, correlates, and deduplicates JSON-RPC traffic
// over encrypted topics.
type Router interface {
	// Send publishes a request and registers it for response
	// correlation, returning its id.
	Send(ctx context.Context, topic domaintypes.Topic, method string, params any) (domaintypes.RequestID, error)

	RespondWithSuccess(ctx context.Context, id domaintypes.RequestID, topic domaintypes.Topic, result any) error
	RespondWithError(ctx context.Context, id domaintypes.RequestID, topic domaintypes.Topic, code int, message string) error

	// Requests is the deduplicated inbound request stream.
	Requests() <-chan domaintypes.InboundRequest

	// Responses is the stream of responses matched to sent requests.
	Responses() <-chan domaintypes.InboundResponse
}

// Engine is the public command surface of one protocol instance.
type Engine interface {
	RegisterIdentity(ctx context.Context) (domaintypes.X25519Public, error)
	Propose(ctx context.Context, peer domaintypes.X25519Public, account domaintypes.AccountID, payload []byte) (domaintypes.RequestID, error)
	Respond(ctx context.Context, id domaintypes.RequestID, accept bool, reason string) error
	Send(ctx context.Context, topic domaintypes.Topic, payload []byte) error
	Terminate(ctx context.Context, topic domaintypes.Topic, reason string) error
	ListActive() ([]domaintypes.RelationshipRecord, error)
	Events() <-chan domaintypes.Event
	Close() error
}
