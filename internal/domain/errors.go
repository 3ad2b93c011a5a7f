package domain

import "errors"

// Error taxonomy shared across components. Callers match with
// errors.Is; wrapped variants carry the operation context.
var (
	// ErrKeyNotFound: no key material is bound to the topic. Caller
	// error or stale state, never retried internally.
	ErrKeyNotFound = errors.New("no key bound to topic")

	// ErrDecryptionFailed: authentication tag mismatch or malformed
	// envelope. Reported upward, never retried.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrPersistence: a local store write or read failed. Fatal to the
	// triggering operation; in-memory state is left untouched.
	ErrPersistence = errors.New("persistence failure")

	// ErrPublishFailed: the relay rejected or dropped a publish. No
	// implicit retry; local state is not mutated.
	ErrPublishFailed = errors.New("publish failed")

	// ErrSubscribeFailed: the relay rejected a subscribe.
	ErrSubscribeFailed = errors.New("subscribe failed")

	// ErrUnknownRequestID: no pending request matches the id. Protocol
	// misuse or a late/duplicate message.
	ErrUnknownRequestID = errors.New("unknown request id")

	// ErrRejected: the peer declined a proposal. A normal outcome.
	ErrRejected = errors.New("rejected by peer")

	// ErrRelationshipNotActive: the operation requires an active
	// relationship on the topic.
	ErrRelationshipNotActive = errors.New("relationship not active")

	// ErrClosed: the component has been shut down.
	ErrClosed = errors.New("closed")
)
