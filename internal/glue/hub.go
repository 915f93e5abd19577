package glue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-study/internal/obslog"
)

// Envelope is the message sent to browsers.
type Envelope struct {
	Type string          `json:"type"`
	Seq  uint64          `json:"seq"`
	Data json.RawMessage `json:"data"`
}

// Inbound is what a browser may send: a key press or a board click.
type Inbound struct {
	Type   string `json:"type"` // "key" | "click"
	Key    string `json:"key,omitempty"`
	Square string `json:"square,omitempty"`
}

// InboundHandler receives browser messages.
type InboundHandler func(ctx context.Context, msg Inbound)

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans JSON snapshots out to connected browsers. A new client first
// receives the latest snapshot. Clients that cannot keep up are dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	last    []byte
	seq     uint64
	closed  bool

	onInbound    InboundHandler
	originHosts  []string
	writeTimeout time.Duration
	pingInterval time.Duration
	buffer       int
	logger       *zap.Logger
}

type HubOption func(*Hub)

func WithInbound(fn InboundHandler) HubOption { return func(h *Hub) { h.onInbound = fn } }

// WithOriginPatterns allows cross-origin browsers, see websocket.AcceptOptions.
func WithOriginPatterns(p ...string) HubOption {
	return func(h *Hub) { h.originHosts = append(h.originHosts, p...) }
}

func WithPingInterval(d time.Duration) HubOption { return func(h *Hub) { h.pingInterval = d } }

func WithHubLogger(l *zap.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:      make(map[*hubClient]struct{}),
		writeTimeout: 5 * time.Second,
		pingInterval: 30 * time.Second,
		buffer:       16,
		logger:       obslog.L(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Broadcast encodes v as an Envelope of the given type and queues it for
// every client.
func (h *Hub) Broadcast(typ string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errHubClosed
	}
	h.seq++
	msg, err := json.Marshal(Envelope{Type: typ, Seq: h.seq, Data: data})
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.last = msg
	var slow []*hubClient
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("hub_client_dropped", zap.String("reason", "slow"))
		_ = c.conn.Close(websocket.StatusPolicyViolation, "too slow")
	}
	return nil
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.originHosts,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Warn("hub_accept_failed", zap.Error(err))
		return
	}
	c := &hubClient{conn: conn, send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("hub_client_connected", zap.String("remote", r.RemoteAddr), zap.Int("clients", n))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readLoop(ctx, cancel, c)
	h.writeLoop(ctx, c)

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Info("hub_client_disconnected", zap.String("remote", r.RemoteAddr))
}

func (h *Hub) readLoop(ctx context.Context, cancel context.CancelFunc, c *hubClient) {
	defer cancel()
	for {
		var msg Inbound
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.logger.Debug("hub_read_failed", zap.Error(err))
			}
			return
		}
		if h.onInbound != nil {
			h.onInbound(ctx, msg)
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *hubClient) {
	t := time.NewTicker(h.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// removeLocked closes c.send once.
func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		h.removeLocked(c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "shutting down")
	}
}

var errHubClosed = errors.New("hub closed")
