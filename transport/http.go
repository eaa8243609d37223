package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-conductor/mcp/protocol"
)

// SessionIDHeader carries the server-assigned session id that correlates
// a client's POST requests with its long-poll GET stream.
const SessionIDHeader = "Mcp-Session-Id"

// HTTPClientConn is the client side of the HTTP transport: it POSTs every
// outbound envelope and long-polls a GET stream for server-originated
// pushes (sampling/createMessage, roots/list, and notifications).
type HTTPClientConn struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
	connected bool

	inbound chan []byte
	pollErr chan error
	stop    chan struct{}
	stopped sync.Once
}

// HTTPClientOption configures an HTTPClientConn.
type HTTPClientOption func(*HTTPClientConn)

// WithHTTPClient overrides the *http.Client used for requests.
func WithHTTPClient(c *http.Client) HTTPClientOption {
	return func(h *HTTPClientConn) { h.httpClient = c }
}

// NewHTTPClientConn builds an HTTP transport dialing baseURL. The session
// id is taken from the Mcp-Session-Id header of the first Send's response.
func NewHTTPClientConn(baseURL string, opts ...HTTPClientOption) *HTTPClientConn {
	c := &HTTPClientConn{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		inbound:    make(chan []byte, 64),
		pollErr:    make(chan error, 1),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect starts the long-poll goroutine that delivers server-originated pushes.
func (c *HTTPClientConn) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	go c.pollLoop()
	return nil
}

// Send POSTs message to the server. If the response body is non-empty it
// is enqueued as an inbound message (the synchronous request/response
// half of the wire contract); a 202 with an empty body (notification ack)
// enqueues nothing.
func (c *HTTPClientConn) Send(ctx context.Context, message []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.mu.Lock()
	sid := c.sessionID
	c.mu.Unlock()
	if sid != "" {
		req.Header.Set(SessionIDHeader, sid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if sid == "" {
		if newSID := resp.Header.Get(SessionIDHeader); newSID != "" {
			c.mu.Lock()
			c.sessionID = newSID
			c.mu.Unlock()
		}
	}

	if resp.StatusCode == http.StatusAccepted {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	select {
	case c.inbound <- body:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Receive returns the next message delivered either as a POST response or
// via the long-poll stream.
func (c *HTTPClientConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case err := <-c.pollErr:
		return nil, err
	case <-c.stop:
		return nil, protocol.ErrDisconnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *HTTPClientConn) pollLoop() {
	client := &http.Client{Timeout: 65 * time.Second}
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		c.mu.Lock()
		sid := c.sessionID
		c.mu.Unlock()
		if sid == "" {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		req, err := http.NewRequest(http.MethodGet, c.baseURL, nil)
		if err != nil {
			c.pollErr <- err
			return
		}
		req.Header.Set(SessionIDHeader, sid)

		resp, err := client.Do(req)
		if err != nil {
			select {
			case <-c.stop:
				return
			default:
			}
			time.Sleep(time.Second)
			continue
		}
		func() {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusNoContent {
				return
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil || len(body) == 0 {
				return
			}
			select {
			case c.inbound <- body:
			case <-c.stop:
			}
		}()
	}
}

// Disconnect stops the long-poll loop. It is idempotent.
func (c *HTTPClientConn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.stopped.Do(func() { close(c.stop) })
	return nil
}

// IsConnected reports whether Disconnect has not yet been called.
func (c *HTTPClientConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// HTTPServerConn is the server side of one logical HTTP session: inbound
// POST bodies are delivered through Receive, and Send either completes a
// pending POST (when the message is a response correlated by id) or is
// queued for delivery on the next long-poll GET (server-originated
// requests and notifications).
type HTTPServerConn struct {
	sessionID string

	inbound chan []byte
	pushes  chan []byte

	mu      sync.Mutex
	pending map[string]chan []byte
	closed  bool
}

func newHTTPServerConn() *HTTPServerConn {
	return &HTTPServerConn{
		sessionID: uuid.NewString(),
		inbound:   make(chan []byte, 64),
		pushes:    make(chan []byte, 64),
		pending:   make(map[string]chan []byte),
	}
}

// Connect is a no-op; the connection is live once accepted.
func (c *HTTPServerConn) Connect(ctx context.Context) error { return nil }

// Send routes a response to its waiting POST handler, or queues a
// server-originated message for the long-poll stream.
func (c *HTTPServerConn) Send(ctx context.Context, message []byte) error {
	var env struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	_ = json.Unmarshal(message, &env)

	if env.Method == "" && len(env.ID) > 0 {
		if id, ok := protocol.RequestID(env.ID); ok {
			key := fmt.Sprint(id)
			c.mu.Lock()
			ch, found := c.pending[key]
			c.mu.Unlock()
			if found {
				select {
				case ch <- message:
				case <-ctx.Done():
					return ctx.Err()
				}
				return nil
			}
		}
	}

	select {
	case c.pushes <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the next inbound POST body.
func (c *HTTPServerConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-c.inbound:
		if !ok {
			return nil, protocol.ErrDisconnected
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect marks the connection closed. It is idempotent.
func (c *HTTPServerConn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.inbound)
	return nil
}

// IsConnected reports whether Disconnect has not yet been called.
func (c *HTTPServerConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// HTTPListener accepts HTTP-transport sessions on a single mux endpoint,
// dispatching POST/GET by the session id header.
type HTTPListener struct {
	mu       sync.Mutex
	sessions map[string]*HTTPServerConn
	accept   chan *HTTPServerConn
}

// NewHTTPListener creates an HTTPListener; register its Handler with an
// *http.Server and read new sessions from Accept.
func NewHTTPListener() *HTTPListener {
	return &HTTPListener{
		sessions: make(map[string]*HTTPServerConn),
		accept:   make(chan *HTTPServerConn, 16),
	}
}

// Accept returns newly established server connections.
func (l *HTTPListener) Accept() <-chan *HTTPServerConn { return l.accept }

// Handler returns the http.Handler implementing the MCP HTTP wire format.
func (l *HTTPListener) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/mcp", l.handleMCP)
	return mux
}

func (l *HTTPListener) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		l.handlePost(w, r)
	case http.MethodGet:
		l.handleLongPoll(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (l *HTTPListener) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sid := r.Header.Get(SessionIDHeader)
	conn := l.sessionFor(sid)
	w.Header().Set(SessionIDHeader, conn.sessionID)

	var env struct {
		ID json.RawMessage `json:"id"`
	}
	_ = json.Unmarshal(body, &env)
	id, hasID := protocol.RequestID(env.ID)

	if !hasID {
		select {
		case conn.inbound <- body:
		case <-r.Context().Done():
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	key := fmt.Sprint(id)
	waitCh := make(chan []byte, 1)
	conn.mu.Lock()
	conn.pending[key] = waitCh
	conn.mu.Unlock()
	defer func() {
		conn.mu.Lock()
		delete(conn.pending, key)
		conn.mu.Unlock()
	}()

	select {
	case conn.inbound <- body:
	case <-r.Context().Done():
		return
	}

	select {
	case resp := <-waitCh:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(resp)
	case <-r.Context().Done():
	}
}

func (l *HTTPListener) handleLongPoll(w http.ResponseWriter, r *http.Request) {
	sid := r.Header.Get(SessionIDHeader)
	l.mu.Lock()
	conn, ok := l.sessions[sid]
	l.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	select {
	case msg := <-conn.pushes:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(msg)
	case <-time.After(30 * time.Second):
		w.WriteHeader(http.StatusNoContent)
	case <-r.Context().Done():
	}
}

func (l *HTTPListener) sessionFor(sid string) *HTTPServerConn {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sid != "" {
		if conn, ok := l.sessions[sid]; ok {
			return conn
		}
	}
	conn := newHTTPServerConn()
	l.sessions[conn.sessionID] = conn
	select {
	case l.accept <- conn:
	default:
	}
	return conn
}
