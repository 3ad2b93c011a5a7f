package types

// Topic is the relay routing key: the SHA-256 digest, in hex, of a
// key's hex representation. It is always recomputable from the key
// that generated it.
type Topic string

// String returns the string form of the topic.
func (t Topic) String() string { return string(t) }

// RequestID identifies one JSON-RPC request. Process-unique and
// monotonically increasing within a process.
type RequestID int64

// AccountID names a peer account in proposal payloads. Opaque to the
// protocol engine.
type AccountID string

// String returns the string form of the account id.
func (a AccountID) String() string { return string(a) }
