package engine

import (
	"encoding/json"
	"time"

	"pairlink/internal/domain"
)

// Protocol names the RPC methods and timing of one relationship
// protocol. The engine's behavior is identical across protocols; only
// the wire vocabulary and proposal lifetime differ.
type Protocol struct {
	Name          string
	ProposeMethod string
	MessageMethod string
	DeleteMethod  string

	// ProposalTTL bounds how long an inbound proposal may await a
	// Respond decision.
	ProposalTTL time.Duration
}

// Built-in protocol instances.
var (
	PairingInvite = Protocol{
		Name:          "pairing",
		ProposeMethod: "pairing_invite",
		MessageMethod: "pairing_message",
		DeleteMethod:  "pairing_delete",
		ProposalTTL:   30 * time.Minute,
	}

	PushSubscription = Protocol{
		Name:          "push",
		ProposeMethod: "push_subscribe",
		MessageMethod: "push_message",
		DeleteMethod:  "push_delete",
		ProposalTTL:   24 * time.Hour,
	}

	AuthRequest = Protocol{
		Name:          "auth",
		ProposeMethod: "auth_request",
		MessageMethod: "auth_message",
		DeleteMethod:  "auth_delete",
		ProposalTTL:   5 * time.Minute,
	}
)

// ByName resolves a built-in protocol. Falls back to PairingInvite.
func ByName(name string) Protocol {
	switch name {
	case PushSubscription.Name:
		return PushSubscription
	case AuthRequest.Name:
		return AuthRequest
	default:
		return PairingInvite
	}
}

// errorCodeRejected is the structured error a declined proposal is
// answered with.
const errorCodeRejected = 5000

// proposeParams is the payload of a proposal request. PublicKey is the
// proposer's fresh sender key.
type proposeParams struct {
	PublicKey string           `json:"publicKey"`
	Account   domain.AccountID `json:"account,omitempty"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
}

// acceptParams is the result payload of an accepted proposal.
// PublicKey is the acceptor's fresh key.
type acceptParams struct {
	PublicKey string `json:"publicKey"`
}

// messageParams carries one protocol message on an active topic.
type messageParams struct {
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// deleteParams carries a termination notice.
type deleteParams struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
