package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pairlink/internal/domain"
	interfaces "pairlink/internal/domain/interfaces"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsCallTimeout    = 15 * time.Second
	wsBackoffInitial = time.Second
	wsBackoffMax     = 30 * time.Second

	// Relay-side retention for published messages, in seconds.
	wsPublishTTL = 86400
)

// wire shapes of the relay's JSON-RPC protocol.
type wsRequest struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type wsResponse struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wsError        `json:"error,omitempty"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsSubscribeParams struct {
	Topic string `json:"topic"`
}

type wsBatchSubscribeParams struct {
	Topics []string `json:"topics"`
}

type wsUnsubscribeParams struct {
	Topic string `json:"topic"`
	ID    string `json:"id"`
}

type wsPublishParams struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
	TTL     int    `json:"ttl"`
}

type wsSubscriptionParams struct {
	ID   string `json:"id"`
	Data struct {
		Topic   string `json:"topic"`
		Message string `json:"message"`
	} `json:"data"`
}

// Websocket is the RelayGateway over the relay's websocket JSON-RPC
// protocol. It dials on New, reconnects with capped exponential
// backoff, and reports each transition on the connectivity stream.
// Subscriptions are not replayed on reconnect; the engine owns that
// recovery.
type Websocket struct {
	addr   string
	token  string
	logger *zap.Logger
	clk    clock.Clock

	writeMu sync.Mutex
	connMu  sync.RWMutex
	conn    *websocket.Conn

	callMu sync.Mutex
	calls  map[int64]chan wsResponse
	nextID atomic.Int64

	subMu  sync.Mutex
	subIDs map[domain.Topic]string

	deliveries   chan interfaces.Delivery
	connectivity chan bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// NewWebsocket creates a gateway for the relay at addr (ws:// or
// wss://), authenticating with an opaque pre-issued token. The
// connection loop starts immediately.
func NewWebsocket(addr, token string, logger *zap.Logger, clk clock.Clock) *Websocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Websocket{
		addr:         addr,
		token:        token,
		logger:       logger.Named("relay"),
		clk:          clk,
		calls:        make(map[int64]chan wsResponse),
		subIDs:       make(map[domain.Topic]string),
		deliveries:   make(chan interfaces.Delivery, 256),
		connectivity: make(chan bool, 8),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Websocket) run() {
	defer close(w.done)
	backoff := wsBackoffInitial

	for {
		if w.ctx.Err() != nil {
			return
		}

		conn, err := w.dial()
		if err != nil {
			w.logger.Warn("dial failed", zap.Error(err), zap.Duration("retryIn", backoff))
			select {
			case <-w.ctx.Done():
				return
			case <-w.clk.After(backoff):
			}
			backoff = min(backoff*2, wsBackoffMax)
			continue
		}
		backoff = wsBackoffInitial

		w.connMu.Lock()
		w.conn = conn
		w.connMu.Unlock()
		w.emitConnectivity(true)

		w.readLoop(conn)

		w.connMu.Lock()
		w.conn = nil
		w.connMu.Unlock()
		w.failPendingCalls()
		w.emitConnectivity(false)
	}
}

func (w *Websocket) dial() (*websocket.Conn, error) {
	u, err := url.Parse(w.addr)
	if err != nil {
		return nil, err
	}
	if w.token != "" {
		q := u.Query()
		q.Set("auth", w.token)
		u.RawQuery = q.Encode()
	}
	dialer := websocket.Dialer{HandshakeTimeout: wsWriteTimeout}
	conn, _, err := dialer.DialContext(w.ctx, u.String(), nil)
	return conn, err
}

func (w *Websocket) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if w.ctx.Err() == nil {
				w.logger.Warn("read failed", zap.Error(err))
			}
			_ = conn.Close()
			return
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err == nil && req.Method != "" {
			w.handleInbound(conn, req)
			continue
		}

		var resp wsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			w.logger.Warn("unparseable frame dropped", zap.Error(err))
			continue
		}
		w.callMu.Lock()
		ch, ok := w.calls[resp.ID]
		if ok {
			delete(w.calls, resp.ID)
		}
		w.callMu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// handleInbound processes a relay-initiated subscription delivery and
// acknowledges it.
func (w *Websocket) handleInbound(conn *websocket.Conn, req wsRequest) {
	if req.Method != "irn_subscription" {
		w.logger.Debug("ignoring relay method", zap.String("method", req.Method))
		return
	}
	var params wsSubscriptionParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		w.logger.Warn("malformed subscription params", zap.Error(err))
		return
	}
	payload, err := base64.StdEncoding.DecodeString(params.Data.Message)
	if err != nil {
		w.logger.Warn("malformed subscription payload", zap.Error(err))
		return
	}

	ack, _ := json.Marshal(wsResponse{ID: req.ID, JSONRPC: domain.JSONRPCVersion, Result: json.RawMessage("true")})
	_ = w.writeFrame(conn, ack)

	select {
	case w.deliveries <- interfaces.Delivery{Topic: domain.Topic(params.Data.Topic), Payload: payload}:
	case <-w.ctx.Done():
	}
}

func (w *Websocket) writeFrame(conn *websocket.Conn, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// call performs one gateway-level JSON-RPC round trip.
func (w *Websocket) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	w.connMu.RLock()
	conn := w.conn
	w.connMu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	id := w.nextID.Add(1)
	frame, err := json.Marshal(wsRequest{ID: id, JSONRPC: domain.JSONRPCVersion, Method: method, Params: raw})
	if err != nil {
		return nil, err
	}

	ch := make(chan wsResponse, 1)
	w.callMu.Lock()
	w.calls[id] = ch
	w.callMu.Unlock()

	if err := w.writeFrame(conn, frame); err != nil {
		w.callMu.Lock()
		delete(w.calls, id)
		w.callMu.Unlock()
		return nil, err
	}

	timer := w.clk.Timer(wsCallTimeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("relay error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-timer.C:
		w.callMu.Lock()
		delete(w.calls, id)
		w.callMu.Unlock()
		return nil, fmt.Errorf("%s timed out", method)
	case <-ctx.Done():
		w.callMu.Lock()
		delete(w.calls, id)
		w.callMu.Unlock()
		return nil, ctx.Err()
	case <-w.ctx.Done():
		return nil, domain.ErrClosed
	}
}

func (w *Websocket) failPendingCalls() {
	w.callMu.Lock()
	defer w.callMu.Unlock()
	for id, ch := range w.calls {
		ch <- wsResponse{ID: id, Error: &wsError{Code: -1, Message: "connection lost"}}
		delete(w.calls, id)
	}
}

func (w *Websocket) emitConnectivity(connected bool) {
	select {
	case w.connectivity <- connected:
	default:
		// A slow consumer only loses intermediate flips; the latest
		// state will be observed on the next read.
	}
}

func (w *Websocket) Subscribe(ctx context.Context, topic domain.Topic) error {
	result, err := w.call(ctx, "irn_subscribe", wsSubscribeParams{Topic: topic.String()})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrSubscribeFailed, topic, err)
	}
	var subID string
	if err := json.Unmarshal(result, &subID); err == nil && subID != "" {
		w.subMu.Lock()
		w.subIDs[topic] = subID
		w.subMu.Unlock()
	}
	return nil
}

func (w *Websocket) Unsubscribe(ctx context.Context, topic domain.Topic) error {
	w.subMu.Lock()
	subID := w.subIDs[topic]
	delete(w.subIDs, topic)
	w.subMu.Unlock()

	_, err := w.call(ctx, "irn_unsubscribe", wsUnsubscribeParams{Topic: topic.String(), ID: subID})
	if err != nil {
		return fmt.Errorf("%w: unsubscribe %s: %v", domain.ErrSubscribeFailed, topic, err)
	}
	return nil
}

func (w *Websocket) BatchSubscribe(ctx context.Context, topics []domain.Topic) error {
	if len(topics) == 0 {
		return nil
	}
	strs := make([]string, len(topics))
	for i, t := range topics {
		strs[i] = t.String()
	}
	result, err := w.call(ctx, "irn_batchSubscribe", wsBatchSubscribeParams{Topics: strs})
	if err != nil {
		return fmt.Errorf("%w: batch of %d: %v", domain.ErrSubscribeFailed, len(topics), err)
	}
	var subIDs []string
	if err := json.Unmarshal(result, &subIDs); err == nil && len(subIDs) == len(topics) {
		w.subMu.Lock()
		for i, t := range topics {
			w.subIDs[t] = subIDs[i]
		}
		w.subMu.Unlock()
	}
	return nil
}

func (w *Websocket) Publish(ctx context.Context, topic domain.Topic, payload []byte) error {
	params := wsPublishParams{
		Topic:   topic.String(),
		Message: base64.StdEncoding.EncodeToString(payload),
		TTL:     wsPublishTTL,
	}
	if _, err := w.call(ctx, "irn_publish", params); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrPublishFailed, topic, err)
	}
	return nil
}

func (w *Websocket) Deliveries() <-chan interfaces.Delivery { return w.deliveries }

func (w *Websocket) Connectivity() <-chan bool { return w.connectivity }

func (w *Websocket) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.connMu.RLock()
		if w.conn != nil {
			_ = w.conn.Close()
		}
		w.connMu.RUnlock()
		<-w.done
		close(w.deliveries)
		close(w.connectivity)
	})
	return nil
}

var _ domain.RelayGateway = (*Websocket)(nil)
