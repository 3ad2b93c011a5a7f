package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"pairlink/internal/domain"
	interfaces "pairlink/internal/domain/interfaces"
)

// MemoryHub is a loopback relay shared by in-process gateways. It
// routes published payloads to every other attached gateway subscribed
// to the topic; the publisher never hears its own messages back.
type MemoryHub struct {
	mu      sync.RWMutex
	clients map[*Memory]struct{}
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{clients: make(map[*Memory]struct{})}
}

// Attach creates a gateway connected to this hub.
func (h *MemoryHub) Attach() *Memory {
	m := &Memory{
		hub:          h,
		subs:         make(map[domain.Topic]string),
		deliveries:   make(chan interfaces.Delivery, 256),
		connectivity: make(chan bool, 8),
		connected:    true,
	}
	h.mu.Lock()
	h.clients[m] = struct{}{}
	h.mu.Unlock()
	return m
}

func (h *MemoryHub) route(from *Memory, topic domain.Topic, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c == from {
			continue
		}
		c.deliver(topic, payload)
	}
}

func (h *MemoryHub) detach(m *Memory) {
	h.mu.Lock()
	delete(h.clients, m)
	h.mu.Unlock()
}

// Memory is an in-process RelayGateway for tests and demos. It honours
// the transport contract: per-topic delivery order, no implicit
// resubscription, publishes fail while disconnected.
type Memory struct {
	hub *MemoryHub

	mu         sync.Mutex
	subs       map[domain.Topic]string
	connected  bool
	closed     bool
	publishErr error

	deliveries   chan interfaces.Delivery
	connectivity chan bool
}

func (m *Memory) Subscribe(ctx context.Context, topic domain.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrClosed
	}
	if !m.connected {
		return fmt.Errorf("%w: not connected", domain.ErrSubscribeFailed)
	}
	if _, ok := m.subs[topic]; !ok {
		m.subs[topic] = uuid.NewString()
	}
	return nil
}

func (m *Memory) Unsubscribe(ctx context.Context, topic domain.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, topic)
	return nil
}

func (m *Memory) BatchSubscribe(ctx context.Context, topics []domain.Topic) error {
	for _, topic := range topics {
		if err := m.Subscribe(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Publish(ctx context.Context, topic domain.Topic, payload []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrClosed
	}
	if m.publishErr != nil {
		err := m.publishErr
		m.mu.Unlock()
		return err
	}
	if !m.connected {
		m.mu.Unlock()
		return fmt.Errorf("%w: not connected", domain.ErrPublishFailed)
	}
	m.mu.Unlock()

	m.hub.route(m, topic, payload)
	return nil
}

func (m *Memory) deliver(topic domain.Topic, payload []byte) {
	m.mu.Lock()
	_, subscribed := m.subs[topic]
	closed := m.closed
	m.mu.Unlock()
	if !subscribed || closed {
		return
	}
	m.deliveries <- interfaces.Delivery{Topic: topic, Payload: payload}
}

func (m *Memory) Deliveries() <-chan interfaces.Delivery { return m.deliveries }

func (m *Memory) Connectivity() <-chan bool { return m.connectivity }

func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.hub.detach(m)
	close(m.deliveries)
	close(m.connectivity)
	return nil
}

// SetConnected flips the simulated transport state and emits the
// change on the connectivity stream.
func (m *Memory) SetConnected(connected bool) {
	m.mu.Lock()
	m.connected = connected
	m.mu.Unlock()
	m.connectivity <- connected
}

// FailPublishes makes every subsequent Publish return err until called
// with nil. Test hook.
func (m *Memory) FailPublishes(err error) {
	m.mu.Lock()
	m.publishErr = err
	m.mu.Unlock()
}

// Subscribed reports whether the gateway currently holds a
// subscription for topic. Test hook.
func (m *Memory) Subscribed(topic domain.Topic) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[topic]
	return ok
}

var _ domain.RelayGateway = (*Memory)(nil)
