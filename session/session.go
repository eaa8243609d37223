// Package session implements the MCP protocol engine: request/response
// correlation, notification routing, and the connection state machine
// shared by both the client and server roles. The initialize handshake is
// driven by those roles on top of Request/Notify.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcp-conductor/mcp/middleware"
	"github.com/mcp-conductor/mcp/protocol"
	"github.com/mcp-conductor/mcp/transport"
)

// RequestHandler answers an inbound request. It is supplied by whichever
// role (client or server) owns the session; the session itself never
// interprets method names.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
}

// RequestHandlerFunc adapts a function to a RequestHandler.
type RequestHandlerFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// HandleRequest calls f.
func (f RequestHandlerFunc) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return f(ctx, req)
}

// NotificationHandler observes an inbound notification.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, method string, params json.RawMessage)
}

// NotificationHandlerFunc adapts a function to a NotificationHandler.
type NotificationHandlerFunc func(ctx context.Context, method string, params json.RawMessage)

// HandleNotification calls f.
func (f NotificationHandlerFunc) HandleNotification(ctx context.Context, method string, params json.RawMessage) {
	f(ctx, method, params)
}

// eventQueueSize is not referenced: Session keeps no notification queue
// and hands each inbound notification straight to its NotificationHandler.
const eventQueueSize = 256

// Session owns one Transport and runs the protocol engine over it: one
// inbound-pump goroutine and one outbound send-serializer goroutine.
// Each inbound request is dispatched to the handler in its own goroutine
// so a slow call can't block other requests, notifications, or
// responses to the peer's own outbound requests on the same connection;
// responses are still funneled back through enqueueSend, which preserves
// wire ordering on the single send-serializer goroutine.
type Session struct {
	transport transport.Transport
	logger    middleware.Logger

	handler       RequestHandler
	notifHandler  NotificationHandler

	pending *pendingTable

	requestDuration metric.Float64Histogram

	sendCh chan sendJob

	mu    sync.RWMutex
	state State

	peerInfo protocol.Implementation

	peerClientCaps *protocol.ClientCapabilities
	peerServerCaps *protocol.ServerCapabilities

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

type sendJob struct {
	data []byte
	err  chan error
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithLogger sets the session's structured logger.
func WithLogger(l middleware.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRequestHandler sets the handler that answers inbound requests.
func WithRequestHandler(h RequestHandler) Option {
	return func(s *Session) { s.handler = h }
}

// WithNotificationHandler sets the observer for inbound notifications.
func WithNotificationHandler(h NotificationHandler) Option {
	return func(s *Session) { s.notifHandler = h }
}

// WithMeterProvider overrides the OpenTelemetry meter provider used to
// record outbound request latency. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Session) {
		s.requestDuration = newRequestDurationHistogram(mp)
	}
}

func newRequestDurationHistogram(mp metric.MeterProvider) metric.Float64Histogram {
	meter := mp.Meter("github.com/mcp-conductor/mcp/session")
	h, _ := meter.Float64Histogram(
		"mcp.session.request.duration",
		metric.WithDescription("Duration of outbound requests from pending-request registration to resolution"),
		metric.WithUnit("ms"),
	)
	return h
}

// New creates a Session over the given transport. Call Run to connect the
// transport and start the background goroutines before issuing requests.
func New(t transport.Transport, opts ...Option) *Session {
	s := &Session{
		transport:       t,
		logger:          middleware.NopLogger{},
		pending:         newPendingTable(),
		requestDuration: newRequestDurationHistogram(otel.GetMeterProvider()),
		sendCh:          make(chan sendJob, 64),
		stopCh:          make(chan struct{}),
		state:           StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handler == nil {
		s.handler = RequestHandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return nil, protocol.NewMethodNotFound(req.Method)
		})
	}
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// PeerInfo returns the peer's Implementation record recorded during the handshake.
func (s *Session) PeerInfo() protocol.Implementation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peerInfo
}

// PeerClientCapabilities returns the capabilities the connected client
// advertised. Only meaningful on the server side; nil until the
// handshake completes.
func (s *Session) PeerClientCapabilities() *protocol.ClientCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peerClientCaps
}

// PeerServerCapabilities returns the capabilities the connected server
// advertised. Only meaningful on the client side; nil until the
// handshake completes.
func (s *Session) PeerServerCapabilities() *protocol.ServerCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peerServerCaps
}

// SetPeerInfo records the peer's Implementation record from the handshake.
func (s *Session) SetPeerInfo(info protocol.Implementation) {
	s.mu.Lock()
	s.peerInfo = info
	s.mu.Unlock()
}

// SetPeerClientCapabilities records the client capabilities seen during
// the handshake (server-side use).
func (s *Session) SetPeerClientCapabilities(c protocol.ClientCapabilities) {
	s.mu.Lock()
	s.peerClientCaps = &c
	s.mu.Unlock()
}

// SetPeerServerCapabilities records the server capabilities seen during
// the handshake (client-side use).
func (s *Session) SetPeerServerCapabilities(c protocol.ServerCapabilities) {
	s.mu.Lock()
	s.peerServerCaps = &c
	s.mu.Unlock()
}

// Run connects the transport and starts the inbound pump and outbound
// serializer goroutines. It does not perform the initialize handshake;
// callers (client.Client, server.Server) drive that themselves using
// Request/Notify so they can shape the params/result types.
func (s *Session) Run(ctx context.Context) error {
	s.setState(StateConnecting)
	if err := s.transport.Connect(ctx); err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("transport connect: %w", err)
	}
	s.setState(StateInitializing)

	s.wg.Add(2)
	go s.sendLoop()
	go s.receiveLoop(ctx)
	return nil
}

// MarkReady transitions the session to Ready once the initialize
// handshake has completed on both sides.
func (s *Session) MarkReady() { s.setState(StateReady) }

// Stop tears the session down: fails every pending request, closes the
// transport, and stops the background goroutines. It is idempotent.
func (s *Session) Stop(ctx context.Context) error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.setState(StateClosing)
		close(s.stopCh)
		s.pending.failAll()
		stopErr = s.transport.Disconnect(ctx)
		s.wg.Wait()
		s.setState(StateDisconnected)
	})
	return stopErr
}

func (s *Session) sendLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case job := <-s.sendCh:
			err := s.transport.Send(context.Background(), job.data)
			if job.err != nil {
				job.err <- err
			}
		}
	}
}

func (s *Session) enqueueSend(ctx context.Context, data []byte) error {
	errCh := make(chan error, 1)
	select {
	case s.sendCh <- sendJob{data: data, err: errCh}:
	case <-s.stopCh:
		return protocol.ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Request sends method/params and blocks until the correlated response
// arrives, ctx is canceled, or the session is stopped.
func (s *Session) Request(ctx context.Context, method string, params any) (result json.RawMessage, err error) {
	if s.State() == StateDisconnected || s.State() == StateClosing {
		return nil, protocol.ErrDisconnected
	}

	id, p := s.pending.register(method)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.requestDuration.Record(ctx, float64(time.Since(p.startTime).Milliseconds()),
			metric.WithAttributes(
				attribute.String("mcp.method", method),
				attribute.String("mcp.outcome", outcome),
			))
	}()

	req, buildErr := protocol.NewRequest(id, method, params)
	if buildErr != nil {
		s.pending.cancel(id)
		err = fmt.Errorf("mcp: encode request: %w", buildErr)
		return nil, err
	}
	data, marshalErr := json.Marshal(req)
	if marshalErr != nil {
		s.pending.cancel(id)
		err = fmt.Errorf("mcp: encode request: %w", marshalErr)
		return nil, err
	}

	if sendErr := s.enqueueSend(ctx, data); sendErr != nil {
		s.pending.cancel(id)
		err = sendErr
		return nil, err
	}

	select {
	case resp := <-p.done:
		if resp == nil {
			if p.canceled {
				err = protocol.ErrCanceled
				return nil, err
			}
			err = protocol.ErrDisconnected
			return nil, err
		}
		if resp.Error != nil {
			err = resp.Error
			return nil, err
		}
		return resp.Result, nil
	case <-ctx.Done():
		s.Cancel(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = protocol.ErrTimeout
		} else {
			err = protocol.ErrCanceled
		}
		return nil, err
	case <-s.stopCh:
		err = protocol.ErrDisconnected
		return nil, err
	}
}

// Notify sends a fire-and-forget notification.
func (s *Session) Notify(ctx context.Context, method string, params any) error {
	req, err := protocol.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("mcp: encode notification: %w", err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("mcp: encode notification: %w", err)
	}
	return s.enqueueSend(ctx, data)
}

// Cancel aborts the pending request with the given id: it is removed
// from the correlation table, resolved with ErrCanceled, and (if the
// entry was still outstanding) a best-effort notifications/cancelled is
// sent to the peer.
func (s *Session) Cancel(id int64) {
	if s.pending.cancel(id) {
		_ = s.Notify(context.Background(), protocol.MethodCancelled, map[string]any{"requestId": id})
	}
}

func (s *Session) receiveLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		data, err := s.transport.Receive(ctx)
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.logger.Warn("transport receive failed", middleware.F("error", err.Error()))
			return
		}
		s.dispatch(ctx, data)
	}
}

func (s *Session) dispatch(ctx context.Context, data []byte) {
	var probe struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Result json.RawMessage `json:"result"`
		Error  *protocol.Error `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		s.logger.Warn("discarding malformed message", middleware.F("error", err.Error()))
		return
	}

	switch {
	case probe.Method == "" && (probe.Result != nil || probe.Error != nil):
		s.handleResponse(data, probe.ID)
	case probe.Method != "" && len(probe.ID) == 0:
		s.handleNotification(ctx, probe.Method, data)
	case probe.Method != "":
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleRequest(ctx, data)
		}()
	default:
		s.logger.Warn("discarding unrecognized message")
	}
}

func (s *Session) handleResponse(data []byte, rawID json.RawMessage) {
	idVal, ok := protocol.RequestID(rawID)
	if !ok {
		s.logger.Warn("response with missing or invalid id")
		return
	}
	id, ok := idVal.(int64)
	if !ok {
		s.logger.Warn("response id is not numeric; discarding")
		return
	}
	var resp protocol.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		s.logger.Warn("malformed response", middleware.F("error", err.Error()))
		return
	}
	if !s.pending.complete(id, &resp) {
		s.logger.Warn("discarding response with no matching pending request", middleware.F("id", id))
	}
}

func (s *Session) handleNotification(ctx context.Context, method string, data []byte) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	if s.notifHandler != nil {
		s.notifHandler.HandleNotification(ctx, method, req.Params)
	}
}

func (s *Session) handleRequest(ctx context.Context, data []byte) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	resp, err := s.safeHandle(ctx, &req)
	if err != nil {
		var mcpErr *protocol.Error
		if e, ok := err.(*protocol.Error); ok {
			mcpErr = e
		} else {
			mcpErr = protocol.NewInternalError(err.Error())
		}
		resp = protocol.NewErrorResponse(req.ID, mcpErr)
	}
	if resp == nil {
		return
	}
	out, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response", middleware.F("error", err.Error()))
		return
	}
	if err := s.enqueueSend(context.Background(), out); err != nil {
		s.logger.Warn("failed to send response", middleware.F("error", err.Error()))
	}
}

func (s *Session) safeHandle(ctx context.Context, req *protocol.Request) (resp *protocol.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = protocol.NewInternalError(fmt.Sprintf("panic: %v", r))
		}
	}()
	return s.handler.HandleRequest(ctx, req)
}
