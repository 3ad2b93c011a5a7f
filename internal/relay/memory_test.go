package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairlink/internal/domain"
	"pairlink/internal/relay"
)

func TestMemoryRouting(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := hub.Attach()
	b := hub.Attach()
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	topic := domain.Topic("t1")
	require.NoError(t, b.Subscribe(ctx, topic))

	require.NoError(t, a.Publish(ctx, topic, []byte("hello")))

	select {
	case d := <-b.Deliveries():
		assert.Equal(t, topic, d.Topic)
		assert.Equal(t, []byte("hello"), d.Payload)
	case <-time.After(time.Second):
		t.Fatal("delivery not routed")
	}

	// Publisher must not hear its own message.
	select {
	case d := <-a.Deliveries():
		t.Fatalf("publisher received its own message: %v", d)
	default:
	}
}

func TestMemoryUnsubscribedTopicsDropped(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := hub.Attach()
	b := hub.Attach()
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, a.Publish(ctx, domain.Topic("nobody"), []byte("x")))

	select {
	case d := <-b.Deliveries():
		t.Fatalf("unexpected delivery: %v", d)
	default:
	}
}

func TestMemoryPublishWhileDisconnected(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := hub.Attach()
	defer a.Close()

	a.SetConnected(false)
	err := a.Publish(context.Background(), domain.Topic("t"), []byte("x"))
	assert.ErrorIs(t, err, domain.ErrPublishFailed)
}

func TestMemoryConnectivityStream(t *testing.T) {
	hub := relay.NewMemoryHub()
	a := hub.Attach()
	defer a.Close()

	a.SetConnected(false)
	a.SetConnected(true)

	assert.False(t, <-a.Connectivity())
	assert.True(t, <-a.Connectivity())
}
