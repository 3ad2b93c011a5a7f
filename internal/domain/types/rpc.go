package types

import (
	"encoding/json"
	"time"
)

// JSONRPCVersion is the fixed version tag on every wire payload.
const JSONRPCVersion = "2.0"

// Request is a JSON-RPC request as carried inside an envelope.
type Request struct {
	ID      RequestID       `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// ResponseError is the error half of a JSON-RPC response.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is a JSON-RPC response correlated to a request by ID.
// Exactly one of Result and Error is set.
type Response struct {
	ID      RequestID       `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// IsError reports whether the response carries an error.
func (r Response) IsError() bool { return r.Error != nil }

// InboundRequest is a decrypted, deduplicated request delivered on the
// router's request stream.
type InboundRequest struct {
	Topic Topic
	Request
}

// InboundResponse is a decrypted response matched to an outbound
// request, delivered on the router's response stream. Method is the
// method of the originating request.
type InboundResponse struct {
	Topic  Topic
	Method string
	Response
}

// PendingRequest is an inbound request awaiting a local decision, or
// an outbound request awaiting its response. Owned by the router (in
// flight) or the engine (proposals) until consumed or discarded.
type PendingRequest struct {
	ID        RequestID       `json:"id"`
	Topic     Topic           `json:"topic"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
	CreatedAt time.Time       `json:"createdAt"`
}

// HistoryDirection tags which side of the wire a history entry records.
type HistoryDirection string

const (
	DirectionInbound  HistoryDirection = "inbound"
	DirectionOutbound HistoryDirection = "outbound"
)

// HistoryEntry records an already-handled request id on a topic. A
// request id present in history must never trigger a second state
// transition or a second response.
type HistoryEntry struct {
	RequestID   RequestID        `json:"requestId"`
	Topic       Topic            `json:"topic"`
	Direction   HistoryDirection `json:"direction"`
	PayloadHash string           `json:"payloadHash"`
}
