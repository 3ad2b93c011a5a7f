package types

import "encoding/json"

// Event is one item on the engine's public event stream. The concrete
// types below are the full set; consumers switch on them.
type Event interface {
	event()
}

// ConnectionStateEvent reports relay connectivity flips.
type ConnectionStateEvent struct {
	Connected bool
}

// ProposalEvent reports an inbound proposal awaiting Respond.
type ProposalEvent struct {
	RequestID     RequestID
	Protocol      string
	PeerPublicKey X25519Public
	Account       AccountID
	Payload       json.RawMessage
}

// AcceptanceEvent reports a relationship reaching the active state.
// Topic is the derived channel topic.
type AcceptanceEvent struct {
	RequestID RequestID
	Topic     Topic
}

// RejectionEvent reports a proposal the peer declined.
type RejectionEvent struct {
	RequestID RequestID
	Reason    string
}

// MessageEvent reports an inbound protocol message on an active topic.
type MessageEvent struct {
	Topic   Topic
	Payload json.RawMessage
}

// DeletionEvent reports a terminated relationship, whether peer- or
// self-initiated.
type DeletionEvent struct {
	Topic  Topic
	Reason string
}

// ErrorEvent reports a structured SDK-level failure from a background
// task; the consuming stream stays alive.
type ErrorEvent struct {
	Err error
}

func (ConnectionStateEvent) event() {}
func (ProposalEvent) event()        {}
func (AcceptanceEvent) event()      {}
func (RejectionEvent) event()       {}
func (MessageEvent) event()         {}
func (DeletionEvent) event()        {}
func (ErrorEvent) event()           {}
