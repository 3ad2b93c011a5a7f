package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pairlink/internal/domain"
)

// resubscribeTimeout bounds the post-reconnect batch subscribe.
const resubscribeTimeout = 30 * time.Second

// Engine drives the relationship state machine for one protocol
// instance: proposals out and in, acceptance and rejection, steady-
// state messages, termination, and reconnect recovery. It owns the
// relationship records and the pending-proposal set; all state
// transitions for one relationship are serialized by key.
type Engine struct {
	proto         Protocol
	keys          domain.KeyManager
	router        domain.Router
	gateway       domain.RelayGateway
	relationships domain.RelationshipStore
	pending       *pendingProposals
	clk           clock.Clock
	logger        *zap.Logger

	locks  *keyedMutex
	events chan domain.Event

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Config collects the engine's collaborators. Logger and Clock are
// optional.
type Config struct {
	Protocol      Protocol
	Keys          domain.KeyManager
	Router        domain.Router
	Gateway       domain.RelayGateway
	Relationships domain.RelationshipStore
	Pending       domain.PendingRequestStore
	Logger        *zap.Logger
	Clock         clock.Clock
}

// New constructs an engine and starts its background loops: inbound
// requests, inbound responses, and connectivity.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		proto:         cfg.Protocol,
		keys:          cfg.Keys,
		router:        cfg.Router,
		gateway:       cfg.Gateway,
		relationships: cfg.Relationships,
		pending:       newPendingProposals(cfg.Pending, cfg.Protocol.ProposalTTL, clk),
		clk:           clk,
		logger:        logger.Named("engine").With(zap.String("protocol", cfg.Protocol.Name)),
		locks:         newKeyedMutex(),
		events:        make(chan domain.Event, 64),
		ctx:           ctx,
		cancel:        cancel,
	}

	e.wg.Add(3)
	go e.requestLoop()
	go e.responseLoop()
	go e.connectivityLoop()
	return e
}

// Events is the engine's public event stream. Closed by Close.
func (e *Engine) Events() <-chan domain.Event { return e.events }

// Close stops the background loops and closes the event stream.
// Idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.cancel()
		e.wg.Wait()
		close(e.events)
	})
	return nil
}

// RegisterIdentity ensures the long-lived invite key exists, binds its
// topic for inbound proposal decryption, and subscribes to it.
func (e *Engine) RegisterIdentity(ctx context.Context) (domain.X25519Public, error) {
	pub, err := e.keys.GetOrGenerateIdentityKey()
	if err != nil {
		return domain.X25519Public{}, err
	}
	topic := e.keys.TopicFor(pub.Hex())
	if err := e.keys.BindSelfKey(topic, pub); err != nil {
		return domain.X25519Public{}, err
	}
	if err := e.gateway.Subscribe(ctx, topic); err != nil {
		return domain.X25519Public{}, err
	}
	e.logger.Info("listening for proposals", zap.String("topic", topic.String()))
	return pub, nil
}

// Propose starts a relationship with a peer known by its public key.
// A fresh sender pair is generated; the proposal goes out on the hash
// of the peer key and the response is awaited on the hash of the
// agreed key. On publish failure the response subscription and all
// derived key material are rolled back.
func (e *Engine) Propose(ctx context.Context, peer domain.X25519Public, account domain.AccountID, payload []byte) (domain.RequestID, error) {
	self, err := e.keys.GenerateKeyPair()
	if err != nil {
		return 0, err
	}

	proposalTopic := e.keys.TopicFor(peer.Hex())
	if err := e.keys.BindKeyAgreement(proposalTopic, self, peer); err != nil {
		return 0, err
	}

	sym, err := e.keys.DeriveSharedKey(self, peer)
	if err != nil {
		return 0, err
	}
	responseTopic := e.keys.TopicFor(sym.Hex())
	if err := e.keys.BindSymmetricKey(responseTopic, sym); err != nil {
		return 0, err
	}

	if err := e.gateway.Subscribe(ctx, responseTopic); err != nil {
		e.cleanupProposal(ctx, self, proposalTopic, responseTopic, false)
		return 0, err
	}

	params := proposeParams{PublicKey: self.Hex(), Account: account, Payload: payload}
	id, err := e.router.Send(ctx, proposalTopic, e.proto.ProposeMethod, params)
	if err != nil {
		// The proposal never reached the peer; a dangling response
		// subscription would leak.
		e.cleanupProposal(ctx, self, proposalTopic, responseTopic, true)
		return 0, err
	}

	now := e.clk.Now()
	rec := domain.RelationshipRecord{
		Topic:         responseTopic,
		RequestID:     id,
		Protocol:      e.proto.Name,
		State:         domain.StateProposed,
		SelfPublicKey: self,
		PeerPublicKey: peer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.relationships.Save(rec); err != nil {
		e.cleanupProposal(ctx, self, proposalTopic, responseTopic, true)
		return 0, err
	}
	e.logger.Debug("proposal sent",
		zap.Int64("id", int64(id)),
		zap.String("proposalTopic", proposalTopic.String()),
		zap.String("responseTopic", responseTopic.String()))
	return id, nil
}

func (e *Engine) cleanupProposal(ctx context.Context, self domain.X25519Public, proposalTopic, responseTopic domain.Topic, unsubscribe bool) {
	if unsubscribe {
		if err := e.gateway.Unsubscribe(ctx, responseTopic); err != nil {
			e.logger.Warn("rollback unsubscribe failed", zap.Error(err))
		}
	}
	_ = e.keys.RemoveTopicKeys(proposalTopic)
	_ = e.keys.RemoveTopicKeys(responseTopic)
	_ = e.keys.RemoveKeyPair(self)
}

// Respond settles an inbound proposal by request id. Accepting derives
// the channel key, subscribes to the new topic, persists the active
// record, and answers on the agreed response topic; if that answer
// cannot be published everything is rolled back and the proposal stays
// pending. Rejecting sends a structured error.
func (e *Engine) Respond(ctx context.Context, id domain.RequestID, accept bool, reason string) error {
	unlock := e.locks.Lock(fmt.Sprintf("req:%d", id))
	defer unlock()

	req, ok, err := e.pending.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnknownRequestID, id)
	}

	var params proposeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return fmt.Errorf("malformed proposal params: %w", err)
	}
	peer, err := domain.ParsePublicKey(params.PublicKey)
	if err != nil {
		return err
	}

	identity, ok, err := e.keys.IdentityKey()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: identity key", domain.ErrKeyNotFound)
	}

	// Both sides compute the response topic from the agreed key.
	sym, err := e.keys.DeriveSharedKey(identity, peer)
	if err != nil {
		return err
	}
	responseTopic := e.keys.TopicFor(sym.Hex())
	if err := e.keys.BindSymmetricKey(responseTopic, sym); err != nil {
		return err
	}

	if !accept {
		if err := e.router.RespondWithError(ctx, id, responseTopic, errorCodeRejected, reason); err != nil {
			return err
		}
		return e.pending.Remove(id)
	}

	self, err := e.keys.GenerateKeyPair()
	if err != nil {
		return err
	}
	channelKey, err := e.keys.DeriveSharedKey(self, peer)
	if err != nil {
		return err
	}
	activeTopic := e.keys.TopicFor(channelKey.Hex())
	if err := e.keys.BindSymmetricKey(activeTopic, channelKey); err != nil {
		return err
	}

	now := e.clk.Now()
	rec := domain.RelationshipRecord{
		Topic:         activeTopic,
		RequestID:     id,
		Protocol:      e.proto.Name,
		State:         domain.StateActive,
		SelfPublicKey: self,
		PeerPublicKey: peer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.relationships.Save(rec); err != nil {
		_ = e.keys.RemoveTopicKeys(activeTopic)
		_ = e.keys.RemoveKeyPair(self)
		return err
	}
	if err := e.gateway.Subscribe(ctx, activeTopic); err != nil {
		_ = e.relationships.Delete(activeTopic)
		_ = e.keys.RemoveTopicKeys(activeTopic)
		_ = e.keys.RemoveKeyPair(self)
		return err
	}

	if err := e.router.RespondWithSuccess(ctx, id, responseTopic, acceptParams{PublicKey: self.Hex()}); err != nil {
		// The peer never learned of the acceptance: undo the
		// subscription and key material, keep the proposal pending.
		_ = e.gateway.Unsubscribe(ctx, activeTopic)
		_ = e.relationships.Delete(activeTopic)
		_ = e.keys.RemoveTopicKeys(activeTopic)
		_ = e.keys.RemoveKeyPair(self)
		return err
	}

	if err := e.pending.Remove(id); err != nil {
		e.logger.Warn("pending cleanup failed", zap.Int64("id", int64(id)), zap.Error(err))
	}
	e.emit(domain.AcceptanceEvent{RequestID: id, Topic: activeTopic})
	return nil
}

// Send publishes a protocol message on an active relationship's topic.
// Publish failure surfaces unchanged; nothing is marked delivered and
// nothing is retried here.
func (e *Engine) Send(ctx context.Context, topic domain.Topic, payload []byte) error {
	rec, ok, err := e.relationships.Load(topic)
	if err != nil {
		return err
	}
	if ok && rec.State == domain.StateRejected {
		return fmt.Errorf("%w: %s", domain.ErrRejected, topic)
	}
	if !ok || rec.State != domain.StateActive {
		return fmt.Errorf("%w: %s", domain.ErrRelationshipNotActive, topic)
	}
	params := messageParams{Payload: payload, Timestamp: e.clk.Now().UnixMilli()}
	_, err = e.router.Send(ctx, topic, e.proto.MessageMethod, params)
	return err
}

// Terminate ends a relationship: best-effort termination notice, then
// unconditional local cleanup. Invoking it again for the same topic is
// a no-op.
func (e *Engine) Terminate(ctx context.Context, topic domain.Topic, reason string) error {
	unlock := e.locks.Lock("topic:" + topic.String())
	defer unlock()

	rec, ok, err := e.relationships.Load(topic)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	// The notice may be dropped by the transport; cleanup proceeds
	// regardless.
	if _, err := e.router.Send(ctx, topic, e.proto.DeleteMethod, deleteParams{Code: errorCodeRejected + 1000, Message: reason}); err != nil {
		e.logger.Warn("termination notice not delivered", zap.String("topic", topic.String()), zap.Error(err))
	}
	if err := e.gateway.Unsubscribe(ctx, topic); err != nil {
		e.logger.Warn("unsubscribe failed", zap.String("topic", topic.String()), zap.Error(err))
	}

	var cleanupErr error
	cleanupErr = multierr.Append(cleanupErr, e.relationships.Delete(topic))
	cleanupErr = multierr.Append(cleanupErr, e.keys.RemoveTopicKeys(topic))
	cleanupErr = multierr.Append(cleanupErr, e.keys.RemoveKeyPair(rec.SelfPublicKey))
	if cleanupErr != nil {
		return cleanupErr
	}

	e.emit(domain.DeletionEvent{Topic: topic, Reason: reason})
	return nil
}

// ListActive returns the records currently in the active state.
func (e *Engine) ListActive() ([]domain.RelationshipRecord, error) {
	recs, err := e.relationships.List()
	if err != nil {
		return nil, err
	}
	out := recs[:0:0]
	for _, rec := range recs {
		if rec.State == domain.StateActive {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (e *Engine) emit(ev domain.Event) {
	select {
	case e.events <- ev:
	case <-e.ctx.Done():
	}
}

var _ domain.Engine = (*Engine)(nil)
