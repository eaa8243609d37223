package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcp-conductor/mcp/protocol"
)

// WebSocketConn is a duplex Transport backed by a single gorilla/websocket
// connection. The same type serves both a dialing client and an accepted
// server-side connection; the difference is only in how it is constructed.
type WebSocketConn struct {
	conn *websocket.Conn

	readTimeout  time.Duration
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once

	mu        sync.Mutex
	connected bool
}

// WebSocketOption configures dialing or accepting a WebSocket transport.
type WebSocketOption func(*wsConfig)

type wsConfig struct {
	readTimeout  time.Duration
	writeTimeout time.Duration
	checkOrigin  func(r *http.Request) bool
	dialer       *websocket.Dialer
}

func defaultWSConfig() *wsConfig {
	return &wsConfig{
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		checkOrigin:  func(r *http.Request) bool { return true },
		dialer:       websocket.DefaultDialer,
	}
}

// WithWebSocketReadTimeout sets the read timeout for WebSocket messages.
func WithWebSocketReadTimeout(d time.Duration) WebSocketOption {
	return func(c *wsConfig) { c.readTimeout = d }
}

// WithWebSocketWriteTimeout sets the write timeout for WebSocket messages.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return func(c *wsConfig) { c.writeTimeout = d }
}

// WithWebSocketCheckOrigin sets the origin check function used when accepting connections.
func WithWebSocketCheckOrigin(fn func(r *http.Request) bool) WebSocketOption {
	return func(c *wsConfig) { c.checkOrigin = fn }
}

// DialWebSocket connects to an MCP server exposed over WebSocket.
func DialWebSocket(ctx context.Context, url string, opts ...WebSocketOption) (*WebSocketConn, error) {
	cfg := defaultWSConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	conn, _, err := cfg.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &WebSocketConn{
		conn:         conn,
		readTimeout:  cfg.readTimeout,
		writeTimeout: cfg.writeTimeout,
		connected:    true,
	}, nil
}

// WebSocketUpgrader accepts incoming WebSocket connections on an HTTP server.
type WebSocketUpgrader struct {
	upgrader websocket.Upgrader
	cfg      *wsConfig
}

// NewWebSocketUpgrader builds an upgrader for the server side of the transport.
func NewWebSocketUpgrader(opts ...WebSocketOption) *WebSocketUpgrader {
	cfg := defaultWSConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &WebSocketUpgrader{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.checkOrigin,
		},
		cfg: cfg,
	}
}

// Upgrade upgrades an HTTP request to a duplex WebSocketConn transport.
func (u *WebSocketUpgrader) Upgrade(w http.ResponseWriter, r *http.Request) (*WebSocketConn, error) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &WebSocketConn{
		conn:         conn,
		readTimeout:  u.cfg.readTimeout,
		writeTimeout: u.cfg.writeTimeout,
		connected:    true,
	}, nil
}

// Connect is a no-op; the connection is already live once constructed.
func (c *WebSocketConn) Connect(ctx context.Context) error { return nil }

// Send writes one text frame containing message.
func (c *WebSocketConn) Send(ctx context.Context, message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !c.IsConnected() {
		return protocol.ErrDisconnected
	}
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Receive reads the next text frame. Binary frames are rejected as
// SerializationError-equivalent by returning an error, per the wire
// contract of one JSON envelope per text frame.
func (c *WebSocketConn) Receive(ctx context.Context) ([]byte, error) {
	if !c.IsConnected() {
		return nil, protocol.ErrDisconnected
	}
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	type result struct {
		data        []byte
		messageType int
		err         error
	}
	done := make(chan result, 1)
	go func() {
		messageType, data, err := c.conn.ReadMessage()
		done <- result{data, messageType, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			c.markDisconnected()
			return nil, r.err
		}
		if r.messageType != websocket.TextMessage {
			return nil, protocol.NewParseError("mcp: binary frame is not a valid JSON-RPC envelope")
		}
		return r.data, nil
	}
}

// Disconnect closes the underlying connection. It is idempotent.
func (c *WebSocketConn) Disconnect(ctx context.Context) error {
	c.markDisconnected()
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// IsConnected reports whether the connection is still open.
func (c *WebSocketConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *WebSocketConn) markDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}
