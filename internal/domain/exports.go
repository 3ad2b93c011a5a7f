package domain

import (
	interfaces "pairlink/internal/domain/interfaces"
	types "pairlink/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Topic             = types.Topic
	RequestID         = types.RequestID
	AccountID         = types.AccountID
	X25519Public      = types.X25519Public
	X25519Private     = types.X25519Private
	SymmetricKey      = types.SymmetricKey
	TopicKeys         = types.TopicKeys
	Envelope          = types.Envelope
	EnvelopeType      = types.EnvelopeType
	Request           = types.Request
	Response          = types.Response
	ResponseError     = types.ResponseError
	InboundRequest    = types.InboundRequest
	InboundResponse   = types.InboundResponse
	PendingRequest    = types.PendingRequest
	HistoryEntry      = types.HistoryEntry
	HistoryDirection  = types.HistoryDirection
	RelationshipState = types.RelationshipState
	RelationshipRecord = types.RelationshipRecord

	Event                = types.Event
	ConnectionStateEvent = types.ConnectionStateEvent
	ProposalEvent        = types.ProposalEvent
	AcceptanceEvent      = types.AcceptanceEvent
	RejectionEvent       = types.RejectionEvent
	MessageEvent         = types.MessageEvent
	DeletionEvent        = types.DeletionEvent
	ErrorEvent           = types.ErrorEvent
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	RelayGateway        = interfaces.RelayGateway
	Delivery            = interfaces.Delivery
	KeyStorage          = interfaces.KeyStorage
	RelationshipStore   = interfaces.RelationshipStore
	PendingRequestStore = interfaces.PendingRequestStore
	HistoryStore        = interfaces.HistoryStore
	KeyManager          = interfaces.KeyManager
	EnvelopeCodec       = interfaces.EnvelopeCodec
	Router              = interfaces.Router
	Engine              = interfaces.Engine
)

// Constant re-exports.
const (
	EnvelopeSym          = types.EnvelopeSym
	EnvelopeKeyAgreement = types.EnvelopeKeyAgreement

	StateProposed = types.StateProposed
	StateActive   = types.StateActive
	StateRejected = types.StateRejected
	StateExpired  = types.StateExpired
	StateDeleted  = types.StateDeleted

	DirectionInbound  = types.DirectionInbound
	DirectionOutbound = types.DirectionOutbound

	JSONRPCVersion = types.JSONRPCVersion
)

// ParsePublicKey re-exports the hex public key parser.
var ParsePublicKey = types.ParsePublicKey
