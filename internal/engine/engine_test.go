package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pairlink/internal/codec"
	"pairlink/internal/domain"
	"pairlink/internal/keystore"
	"pairlink/internal/relay"
	"pairlink/internal/rpc"
	"pairlink/internal/store"
)

type peerStack struct {
	keys          *keystore.Service
	gateway       *relay.Memory
	router        *rpc.Router
	relationships *store.MemoryRelationshipStore
	engine        *Engine
}

func newPeerStack(t *testing.T, hub *relay.MemoryHub, gateway domain.RelayGateway) *peerStack {
	t.Helper()
	logger := zap.NewNop()
	keys := keystore.New(store.NewMemoryKeyStorage(), logger)

	var mem *relay.Memory
	if gateway == nil {
		mem = hub.Attach()
		gateway = mem
	} else if cg, ok := gateway.(*countingGateway); ok {
		mem = cg.Memory
	}

	relationships := store.NewMemoryRelationshipStore()
	router := rpc.New(gateway, codec.New(keys, logger), store.NewMemoryHistoryStore(), logger, clock.New())
	eng := New(Config{
		Protocol:      PairingInvite,
		Keys:          keys,
		Router:        router,
		Gateway:       gateway,
		Relationships: relationships,
		Pending:       store.NewMemoryPendingRequestStore(),
		Logger:        logger,
	})
	t.Cleanup(func() {
		require.NoError(t, eng.Close())
		require.NoError(t, gateway.Close())
		require.NoError(t, router.Close())
	})
	return &peerStack{keys: keys, gateway: mem, router: router, relationships: relationships, engine: eng}
}

func awaitEvent[T domain.Event](t *testing.T, eng *Engine) T {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-eng.Events():
			require.True(t, ok, "event stream closed")
			if want, match := ev.(T); match {
				return want
			}
			if errEv, isErr := ev.(domain.ErrorEvent); isErr {
				t.Fatalf("unexpected error event: %v", errEv.Err)
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// establish runs a full propose/accept handshake and returns the
// shared active topic.
func establish(t *testing.T, a, b *peerStack) domain.Topic {
	t.Helper()
	ctx := context.Background()

	inviteKey, err := b.engine.RegisterIdentity(ctx)
	require.NoError(t, err)

	id, err := a.engine.Propose(ctx, inviteKey, "acct:chain:0xabc", []byte(`{"greeting":"hello"}`))
	require.NoError(t, err)

	proposal := awaitEvent[domain.ProposalEvent](t, b.engine)
	require.Equal(t, domain.AccountID("acct:chain:0xabc"), proposal.Account)
	require.JSONEq(t, `{"greeting":"hello"}`, string(proposal.Payload))

	require.NoError(t, b.engine.Respond(ctx, proposal.RequestID, true, ""))

	acceptedA := awaitEvent[domain.AcceptanceEvent](t, a.engine)
	acceptedB := awaitEvent[domain.AcceptanceEvent](t, b.engine)
	require.Equal(t, id, acceptedA.RequestID)
	require.Equal(t, acceptedA.Topic, acceptedB.Topic, "both sides must derive the same channel topic")
	return acceptedA.Topic
}

func TestHandshakeEstablishesSharedTopic(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := newPeerStack(t, hub, nil)
	b := newPeerStack(t, hub, nil)

	topic := establish(t, a, b)

	active, err := a.engine.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, topic, active[0].Topic)
	require.Equal(t, domain.StateActive, active[0].State)

	require.True(t, a.gateway.Subscribed(topic))
	require.True(t, b.gateway.Subscribed(topic))
}

func TestMessagesFlowBothWays(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := newPeerStack(t, hub, nil)
	b := newPeerStack(t, hub, nil)
	topic := establish(t, a, b)
	ctx := context.Background()

	require.NoError(t, a.engine.Send(ctx, topic, []byte(`"ping"`)))
	msg := awaitEvent[domain.MessageEvent](t, b.engine)
	require.Equal(t, topic, msg.Topic)
	require.JSONEq(t, `"ping"`, string(msg.Payload))

	require.NoError(t, b.engine.Send(ctx, topic, []byte(`"pong"`)))
	reply := awaitEvent[domain.MessageEvent](t, a.engine)
	require.JSONEq(t, `"pong"`, string(reply.Payload))
}

func TestRejectionReachesProposer(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := newPeerStack(t, hub, nil)
	b := newPeerStack(t, hub, nil)
	ctx := context.Background()

	inviteKey, err := b.engine.RegisterIdentity(ctx)
	require.NoError(t, err)

	id, err := a.engine.Propose(ctx, inviteKey, "", nil)
	require.NoError(t, err)

	proposal := awaitEvent[domain.ProposalEvent](t, b.engine)
	require.NoError(t, b.engine.Respond(ctx, proposal.RequestID, false, "not today"))

	rejected := awaitEvent[domain.RejectionEvent](t, a.engine)
	require.Equal(t, id, rejected.RequestID)
	require.Equal(t, "not today", rejected.Reason)

	active, err := a.engine.ListActive()
	require.NoError(t, err)
	require.Empty(t, active)

	recs, err := a.relationships.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, domain.StateRejected, recs[0].State)
	err = a.engine.Send(ctx, recs[0].Topic, []byte(`"x"`))
	require.ErrorIs(t, err, domain.ErrRejected)

	// The proposal is settled: responding again must fail.
	err = b.engine.Respond(ctx, proposal.RequestID, true, "")
	require.ErrorIs(t, err, domain.ErrUnknownRequestID)
}

func TestRespondUnknownID(t *testing.T) {
	hub := relay.NewMemoryHub()
	b := newPeerStack(t, hub, nil)

	err := b.engine.Respond(context.Background(), 424242, true, "")
	require.ErrorIs(t, err, domain.ErrUnknownRequestID)
}

func TestSendRequiresActiveRelationship(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := newPeerStack(t, hub, nil)

	err := a.engine.Send(context.Background(), "no-such-topic", []byte(`"x"`))
	require.ErrorIs(t, err, domain.ErrRelationshipNotActive)
}

func TestProposePublishFailureRollsBack(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := newPeerStack(t, hub, nil)
	b := newPeerStack(t, hub, nil)
	ctx := context.Background()

	inviteKey, err := b.engine.RegisterIdentity(ctx)
	require.NoError(t, err)

	boom := errors.New("relay unavailable")
	a.gateway.FailPublishes(boom)
	_, err = a.engine.Propose(ctx, inviteKey, "", nil)
	require.ErrorIs(t, err, boom)

	recs, err := a.relationships.List()
	require.NoError(t, err)
	require.Empty(t, recs, "failed proposal must leave no record behind")
}

func TestAcceptPublishFailureKeepsProposalPending(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := newPeerStack(t, hub, nil)
	b := newPeerStack(t, hub, nil)
	ctx := context.Background()

	inviteKey, err := b.engine.RegisterIdentity(ctx)
	require.NoError(t, err)
	_, err = a.engine.Propose(ctx, inviteKey, "", nil)
	require.NoError(t, err)

	proposal := awaitEvent[domain.ProposalEvent](t, b.engine)

	boom := errors.New("relay unavailable")
	b.gateway.FailPublishes(boom)
	err = b.engine.Respond(ctx, proposal.RequestID, true, "")
	require.ErrorIs(t, err, boom)

	active, err := b.engine.ListActive()
	require.NoError(t, err)
	require.Empty(t, active)

	// The proposal survives the failure and can be settled once the
	// relay recovers.
	b.gateway.FailPublishes(nil)
	require.NoError(t, b.engine.Respond(ctx, proposal.RequestID, true, ""))
	awaitEvent[domain.AcceptanceEvent](t, a.engine)
	awaitEvent[domain.AcceptanceEvent](t, b.engine)
}

func TestTerminateNotifiesPeerAndIsIdempotent(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := newPeerStack(t, hub, nil)
	b := newPeerStack(t, hub, nil)
	topic := establish(t, a, b)
	ctx := context.Background()

	require.NoError(t, a.engine.Terminate(ctx, topic, "done"))
	deletedA := awaitEvent[domain.DeletionEvent](t, a.engine)
	require.Equal(t, "done", deletedA.Reason)

	deletedB := awaitEvent[domain.DeletionEvent](t, b.engine)
	require.Equal(t, topic, deletedB.Topic)
	require.Equal(t, "done", deletedB.Reason)

	for _, s := range []*peerStack{a, b} {
		active, err := s.engine.ListActive()
		require.NoError(t, err)
		require.Empty(t, active)
		require.False(t, s.gateway.Subscribed(topic))
	}

	require.NoError(t, a.engine.Terminate(ctx, topic, "done"))

	// The channel key is gone on both sides.
	err := a.engine.Send(ctx, topic, []byte(`"x"`))
	require.ErrorIs(t, err, domain.ErrRelationshipNotActive)
}

// countingGateway records BatchSubscribe calls made through it.
type countingGateway struct {
	*relay.Memory

	mu      sync.Mutex
	batches [][]domain.Topic
}

func (c *countingGateway) BatchSubscribe(ctx context.Context, topics []domain.Topic) error {
	c.mu.Lock()
	c.batches = append(c.batches, append([]domain.Topic(nil), topics...))
	c.mu.Unlock()
	return c.Memory.BatchSubscribe(ctx, topics)
}

func (c *countingGateway) batchCalls() [][]domain.Topic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]domain.Topic(nil), c.batches...)
}

func TestReconnectResubscribesInOneBatch(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := newPeerStack(t, hub, nil)
	counting := &countingGateway{Memory: hub.Attach()}
	b := newPeerStack(t, hub, counting)
	topic := establish(t, a, b)

	identity, ok, err := b.keys.IdentityKey()
	require.NoError(t, err)
	require.True(t, ok)
	identityTopic := b.keys.TopicFor(identity.Hex())

	b.gateway.SetConnected(false)
	down := awaitEvent[domain.ConnectionStateEvent](t, b.engine)
	require.False(t, down.Connected)

	b.gateway.SetConnected(true)
	up := awaitEvent[domain.ConnectionStateEvent](t, b.engine)
	require.True(t, up.Connected)

	require.Eventually(t, func() bool {
		return len(counting.batchCalls()) == 1
	}, 3*time.Second, 10*time.Millisecond)

	batch := counting.batchCalls()[0]
	require.ElementsMatch(t, []domain.Topic{topic, identityTopic}, batch)
}
