package types

import "time"

// RelationshipState is the lifecycle position of one peer relationship.
type RelationshipState string

const (
	StateProposed RelationshipState = "proposed"
	StateActive   RelationshipState = "active"
	StateRejected RelationshipState = "rejected"
	StateExpired  RelationshipState = "expired"
	StateDeleted  RelationshipState = "deleted"
)

// Terminal reports whether no further transitions are possible.
func (s RelationshipState) Terminal() bool {
	return s == StateRejected || s == StateExpired || s == StateDeleted
}

// RelationshipRecord is the persisted state of one relationship. Topic
// is the response topic while Proposed and the derived channel topic
// once Active. The engine is the sole writer.
type RelationshipRecord struct {
	Topic         Topic             `json:"topic"`
	RequestID     RequestID         `json:"requestId"`
	Protocol      string            `json:"protocol"`
	State         RelationshipState `json:"state"`
	SelfPublicKey X25519Public      `json:"selfPublicKey"`
	PeerPublicKey X25519Public      `json:"peerPublicKey"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}
