package hlapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hlcli/internal/domain"
)

const (
	wsBaseDelay   = 1 * time.Second
	wsMaxDelay    = 30 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadTimeout  = 60 * time.Second
)

// wsMessage is the envelope both directions use on the wire, grounded on
// the exchange's documented {method, subscription} request shape and
// {channel, data} push shape.
type wsMessage struct {
	Method       string          `json:"method,omitempty"`
	Subscription *wsSubscription `json:"subscription,omitempty"`
	Channel      string          `json:"channel,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

type wsSubscription struct {
	Type string `json:"type"`
	Coin string `json:"coin,omitempty"`
	User string `json:"user,omitempty"`
}

type subKey struct {
	feed string
	coin string
	user string
}

type activeSub struct {
	params SubParams
	ch     chan Event
}

// WSTransport is the reconnecting push transport backing the
// subscription manager and the direct-subscription watchers.
type WSTransport struct {
	url    string
	logger *slog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	writeMu   sync.Mutex

	subsMu sync.Mutex
	subs   map[subKey]*activeSub

	readyOnce sync.Once
	readyCh   chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWSTransport builds a transport targeting url; Connect must be
// called before Subscribe.
func NewWSTransport(url string, logger *slog.Logger) *WSTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSTransport{
		url:     url,
		logger:  logger,
		subs:    make(map[subKey]*activeSub),
		readyCh: make(chan struct{}),
	}
}

// Connect starts the reconnecting loop and blocks until the first
// connection succeeds or ctx is cancelled.
func (t *WSTransport) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	t.wg.Add(1)
	go t.connectionLoop(runCtx)

	select {
	case <-t.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *WSTransport) connectionLoop(ctx context.Context) {
	defer t.wg.Done()
	delay := wsBaseDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := t.connect(ctx); err != nil {
			t.logger.Warn("websocket connect failed", slog.Any("error", err), slog.Duration("retry_in", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > wsMaxDelay {
				delay = wsMaxDelay
			}
			continue
		}

		delay = wsBaseDelay
		t.readyOnce.Do(func() { close(t.readyCh) })
		t.readLoop(ctx) // returns when the connection drops
	}
}

func (t *WSTransport) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.mu.Unlock()

	t.resubscribeAll()

	go t.pingLoop(ctx)
	t.logger.Info("websocket connected", slog.String("url", t.url))
	return nil
}

func (t *WSTransport) resubscribeAll() {
	t.subsMu.Lock()
	defer t.subsMu.Unlock()
	for key, sub := range t.subs {
		if err := t.sendSubscribe(key.feed, sub.params); err != nil {
			t.logger.Warn("resubscribe failed", slog.String("feed", key.feed), slog.Any("error", err))
		}
	}
}

func (t *WSTransport) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.write(websocket.PingMessage, nil)
		}
	}
}

func (t *WSTransport) write(msgType int, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("no active connection")
	}
	return conn.WriteMessage(msgType, data)
}

func (t *WSTransport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			t.closeConn()
			return
		default:
		}

		t.mu.RLock()
		conn := t.conn
		t.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.closeConn()
			return
		}
		t.dispatch(msg)
	}
}

func (t *WSTransport) dispatch(raw []byte) {
	defer func() {
		// A malformed or unexpectedly-shaped push event must never kill
		// the read loop; isolate the fault here.
		if r := recover(); r != nil {
			t.logger.Error("panic handling push event", slog.Any("panic", r))
		}
	}()

	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Channel == "" {
		return
	}

	t.subsMu.Lock()
	defer t.subsMu.Unlock()
	for key, sub := range t.subs {
		if key.feed != msg.Channel {
			continue
		}
		payload := decodePayload(msg.Channel, msg.Data)
		select {
		case sub.ch <- Event{Kind: msg.Channel, Payload: payload}:
		default:
			// Slow consumer: drop rather than block the read loop.
		}
	}
}

func decodePayload(channel string, data json.RawMessage) any {
	switch channel {
	case FeedAllMids:
		var mids domain.Mids
		if err := json.Unmarshal(data, &mids); err == nil {
			return mids
		}
	case FeedAllDexsAssetCtxs:
		var ctxs []domain.DexAssetContexts
		if err := json.Unmarshal(data, &ctxs); err == nil {
			return ctxs
		}
	}
	var generic any
	json.Unmarshal(data, &generic)
	return generic
}

func (t *WSTransport) closeConn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connected = false
}

// Connected reports whether the underlying socket is currently open.
func (t *WSTransport) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Subscribe registers feed/params and sends the subscribe request if
// currently connected (it is (re)sent automatically on every reconnect).
func (t *WSTransport) Subscribe(feed string, params SubParams) (Subscription, <-chan Event, error) {
	key := subKey{feed: feed, coin: params.Coin, user: params.User}
	ch := make(chan Event, 64)

	t.subsMu.Lock()
	t.subs[key] = &activeSub{params: params, ch: ch}
	t.subsMu.Unlock()

	if t.Connected() {
		if err := t.sendSubscribe(feed, params); err != nil {
			// The subscription stays registered; resubscribeAll sends it
			// again once the connection is re-established.
			t.logger.Warn("subscribe send failed", slog.String("feed", feed), slog.Any("error", err))
		}
	}

	return &wsSubscriptionHandle{t: t, key: key}, ch, nil
}

func (t *WSTransport) sendSubscribe(feed string, params SubParams) error {
	req := wsMessage{Method: "subscribe", Subscription: &wsSubscription{Type: feed, Coin: params.Coin, User: params.User}}
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return t.write(websocket.TextMessage, b)
}

func (t *WSTransport) unsubscribe(key subKey) error {
	t.subsMu.Lock()
	sub, ok := t.subs[key]
	if ok {
		delete(t.subs, key)
		close(sub.ch)
	}
	t.subsMu.Unlock()
	if !ok {
		return nil
	}

	if !t.Connected() {
		return nil
	}
	req := wsMessage{Method: "unsubscribe", Subscription: &wsSubscription{Type: key.feed, Coin: key.coin, User: key.user}}
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return t.write(websocket.TextMessage, b)
}

// Close tears down the connection and stops the reconnect loop.
func (t *WSTransport) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.closeConn()
	t.wg.Wait()
	return nil
}

type wsSubscriptionHandle struct {
	t   *WSTransport
	key subKey
}

func (h *wsSubscriptionHandle) Unsubscribe() error {
	return h.t.unsubscribe(h.key)
}
