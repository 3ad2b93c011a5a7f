package engine

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"pairlink/internal/domain"
	"pairlink/internal/store"
)

func TestPendingProposalExpiresAfterTTL(t *testing.T) {
	clk := clock.NewMock()
	backing := store.NewMemoryPendingRequestStore()
	pending := newPendingProposals(backing, 30*time.Minute, clk)

	req := domain.PendingRequest{
		ID:        7,
		Topic:     "topic-a",
		Method:    PairingInvite.ProposeMethod,
		CreatedAt: clk.Now(),
	}
	// Written straight to the store, as if it survived a restart: the
	// in-memory cache starts cold.
	require.NoError(t, backing.Save(req))

	got, ok, err := pending.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, req.ID, got.ID)

	clk.Add(31 * time.Minute)

	_, ok, err = pending.Get(7)
	require.NoError(t, err)
	require.False(t, ok, "expired proposal must not be returned")

	_, ok, err = backing.Load(7)
	require.NoError(t, err)
	require.False(t, ok, "expired proposal must be purged from the store")
}
