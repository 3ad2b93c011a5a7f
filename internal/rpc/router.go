package rpc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"pairlink/internal/domain"
)

// inflightCall tracks one outbound request awaiting its response.
type inflightCall struct {
	Topic  domain.Topic
	Method string
}

// Router serializes typed requests and responses to the encrypted wire
// format, correlates responses to outbound requests by id, and
// suppresses duplicate inbound deliveries via the persisted history.
// It owns exactly one reader goroutine over the gateway's delivery
// stream; within a topic, deliveries are processed in arrival order.
type Router struct {
	gateway domain.RelayGateway
	codec   domain.EnvelopeCodec
	history domain.HistoryStore
	logger  *zap.Logger
	ids     *idGenerator

	mu       sync.Mutex
	inflight map[domain.RequestID]inflightCall

	requests  chan domain.InboundRequest
	responses chan domain.InboundResponse

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// New constructs a router and starts its delivery reader.
func New(gateway domain.RelayGateway, codec domain.EnvelopeCodec, history domain.HistoryStore, logger *zap.Logger, clk clock.Clock) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		gateway:   gateway,
		codec:     codec,
		history:   history,
		logger:    logger.Named("rpc"),
		ids:       newIDGenerator(clk),
		inflight:  make(map[domain.RequestID]inflightCall),
		requests:  make(chan domain.InboundRequest, 64),
		responses: make(chan domain.InboundResponse, 64),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go r.read()
	return r
}

// Send encrypts and publishes a request, registering it for response
// correlation. The registration is rolled back if the publish fails.
func (r *Router) Send(ctx context.Context, topic domain.Topic, method string, params any) (domain.RequestID, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return 0, fmt.Errorf("encode params: %w", err)
	}
	id := r.ids.Next()
	req := domain.Request{ID: id, JSONRPC: domain.JSONRPCVersion, Method: method, Params: raw}
	plaintext, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	wire, err := r.codec.Encrypt(topic, plaintext)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.inflight[id] = inflightCall{Topic: topic, Method: method}
	r.mu.Unlock()

	if err := r.gateway.Publish(ctx, topic, wire); err != nil {
		r.mu.Lock()
		delete(r.inflight, id)
		r.mu.Unlock()
		return 0, err
	}

	if err := r.history.Record(domain.HistoryEntry{
		RequestID:   id,
		Topic:       topic,
		Direction:   domain.DirectionOutbound,
		PayloadHash: payloadHash(plaintext),
	}); err != nil {
		r.logger.Warn("history record failed", zap.Int64("id", int64(id)), zap.Error(err))
	}
	return id, nil
}

// RespondWithSuccess publishes a success response correlated to id.
// No local side-effect remains if the publish fails.
func (r *Router) RespondWithSuccess(ctx context.Context, id domain.RequestID, topic domain.Topic, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return r.respond(ctx, topic, domain.Response{ID: id, JSONRPC: domain.JSONRPCVersion, Result: raw})
}

// RespondWithError publishes an error response correlated to id.
func (r *Router) RespondWithError(ctx context.Context, id domain.RequestID, topic domain.Topic, code int, message string) error {
	return r.respond(ctx, topic, domain.Response{
		ID:      id,
		JSONRPC: domain.JSONRPCVersion,
		Error:   &domain.ResponseError{Code: code, Message: message},
	})
}

func (r *Router) respond(ctx context.Context, topic domain.Topic, resp domain.Response) error {
	plaintext, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	wire, err := r.codec.Encrypt(topic, plaintext)
	if err != nil {
		return err
	}
	return r.gateway.Publish(ctx, topic, wire)
}

// Requests is the deduplicated inbound request stream. Closed on Close.
func (r *Router) Requests() <-chan domain.InboundRequest { return r.requests }

// Responses is the stream of responses matched to sent requests.
func (r *Router) Responses() <-chan domain.InboundResponse { return r.responses }

// Close stops the reader and closes both streams.
func (r *Router) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		<-r.done
		close(r.requests)
		close(r.responses)
	})
	return nil
}

func (r *Router) read() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			return
		case d, ok := <-r.gateway.Deliveries():
			if !ok {
				return
			}
			r.handle(d)
		}
	}
}

func (r *Router) handle(d domain.Delivery) {
	plaintext, err := r.codec.Decrypt(d.Topic, d.Payload)
	if err != nil {
		// Corrupt or foreign payload: at-most-once inbound side-effect,
		// the message is dropped.
		r.logger.Warn("dropping undecryptable delivery", zap.String("topic", d.Topic.String()), zap.Error(err))
		return
	}

	var req domain.Request
	if err := json.Unmarshal(plaintext, &req); err == nil && req.Method != "" {
		r.handleRequest(d.Topic, req, plaintext)
		return
	}

	var resp domain.Response
	if err := json.Unmarshal(plaintext, &resp); err == nil && resp.ID != 0 {
		r.handleResponse(d.Topic, resp)
		return
	}

	r.logger.Warn("dropping unparseable payload", zap.String("topic", d.Topic.String()))
}

func (r *Router) handleRequest(topic domain.Topic, req domain.Request, plaintext []byte) {
	seen, err := r.history.Exists(req.ID, topic)
	if err != nil {
		r.logger.Warn("history lookup failed, dropping request", zap.Int64("id", int64(req.ID)), zap.Error(err))
		return
	}
	if seen {
		r.logger.Debug("duplicate request dropped", zap.Int64("id", int64(req.ID)), zap.String("topic", topic.String()))
		return
	}
	if err := r.history.Record(domain.HistoryEntry{
		RequestID:   req.ID,
		Topic:       topic,
		Direction:   domain.DirectionInbound,
		PayloadHash: payloadHash(plaintext),
	}); err != nil {
		// Without the record a redelivery could double-fire; drop now,
		// the peer's retry will come back through.
		r.logger.Warn("history record failed, dropping request", zap.Int64("id", int64(req.ID)), zap.Error(err))
		return
	}

	select {
	case r.requests <- domain.InboundRequest{Topic: topic, Request: req}:
	case <-r.ctx.Done():
	}
}

func (r *Router) handleResponse(topic domain.Topic, resp domain.Response) {
	r.mu.Lock()
	call, ok := r.inflight[resp.ID]
	if ok {
		delete(r.inflight, resp.ID)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("unmatched response dropped", zap.Int64("id", int64(resp.ID)), zap.String("topic", topic.String()))
		return
	}

	select {
	case r.responses <- domain.InboundResponse{Topic: topic, Method: call.Method, Response: resp}:
	case <-r.ctx.Done():
	}
}

func payloadHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var _ domain.Router = (*Router)(nil)
