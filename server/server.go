// Package server provides the server side of the MCP protocol: the
// Server type runs the handshake and request dispatch loop over a
// transport.Transport, and Registry offers a declarative way to build
// a Service out of individual tools, resources, and prompts.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcp-conductor/mcp/middleware"
	"github.com/mcp-conductor/mcp/protocol"
	"github.com/mcp-conductor/mcp/session"
	"github.com/mcp-conductor/mcp/transport"
)

// Option configures a Server.
type Option func(*options)

type options struct {
	implementation protocol.Implementation
	instructions   string
	logger         middleware.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	middleware     []Middleware
	handshakeTimeout time.Duration
}

func defaultOptions() *options {
	return &options{
		implementation:   protocol.Implementation{Name: "mcp-server", Version: "0.0.0"},
		logger:           middleware.NopLogger{},
		tracerProvider:   otel.GetTracerProvider(),
		meterProvider:    otel.GetMeterProvider(),
		handshakeTimeout: 30 * time.Second,
	}
}

// WithImplementation sets the server's name and version reported to clients.
func WithImplementation(name, version string) Option {
	return func(o *options) { o.implementation = protocol.Implementation{Name: name, Version: version} }
}

// WithInstructions sets free-text usage instructions returned to clients.
func WithInstructions(instructions string) Option {
	return func(o *options) { o.instructions = instructions }
}

// WithLogger sets the structured logger used for connection lifecycle events.
func WithLogger(logger middleware.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracerProvider overrides the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider overrides the OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithMiddleware appends request middleware, executed in order around
// every dispatched request, for every connection this server accepts.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mw...) }
}

// WithHandshakeTimeout bounds how long Serve waits for the client's
// initialize request and its subsequent notifications/initialized.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.handshakeTimeout = d }
}

// Server dispatches MCP requests arriving on accepted connections to a
// Service. One Server can serve many concurrent connections.
type Server struct {
	opts    *options
	service Service

	tracer         trace.Tracer
	requestCounter metric.Int64Counter
	errorCounter   metric.Int64Counter
	durationHist   metric.Float64Histogram

	mu    sync.Mutex
	conns map[string]*Conn
}

// New creates a Server dispatching to service.
func New(service Service, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	tracer := o.tracerProvider.Tracer("github.com/mcp-conductor/mcp/server")
	meter := o.meterProvider.Meter("github.com/mcp-conductor/mcp/server")
	requestCounter, _ := meter.Int64Counter("mcp.server.requests")
	errorCounter, _ := meter.Int64Counter("mcp.server.errors")
	durationHist, _ := meter.Float64Histogram("mcp.server.request.duration")

	return &Server{
		opts:           o,
		service:        service,
		tracer:         tracer,
		requestCounter: requestCounter,
		errorCounter:   errorCounter,
		durationHist:   durationHist,
		conns:          make(map[string]*Conn),
	}
}

// Serve accepts one connection over t: it runs the session engine,
// waits for the client's initialize/initialized handshake, and returns
// the resulting Conn once the connection is ready for traffic. The
// connection continues serving requests in the background until the
// client disconnects or ctx passed to a future Conn.Close ends it.
func (s *Server) Serve(ctx context.Context, t transport.Transport) (*Conn, error) {
	id := uuid.NewString()
	var conn *Conn

	sess := session.New(t,
		session.WithLogger(s.opts.logger),
		session.WithRequestHandler(session.RequestHandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return s.dispatch(ctx, conn, req)
		})),
		session.WithNotificationHandler(session.NotificationHandlerFunc(func(ctx context.Context, method string, params json.RawMessage) {
			s.handleNotification(ctx, conn, method, params)
		})),
	)
	conn = newConn(id, sess)

	if err := sess.Run(ctx); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	handshakeCtx, cancel := context.WithTimeout(ctx, s.opts.handshakeTimeout)
	defer cancel()
	select {
	case <-conn.readyCh:
	case <-handshakeCtx.Done():
		_ = sess.Stop(ctx)
		return nil, fmt.Errorf("handshake: %w", handshakeCtx.Err())
	}

	sess.MarkReady()
	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	s.service.ClientConnected(ctx, conn)

	return conn, nil
}

// Close stops every connection this server has accepted.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var firstErr error
	for _, c := range conns {
		s.service.ClientDisconnected(ctx, c)
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Conns returns the currently connected clients.
func (s *Server) Conns() []*Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		result = append(result, c)
	}
	return result
}

// BroadcastResourceUpdated sends a resources/updated notification to
// every connection currently subscribed to uri. Call this after a
// resource's contents change; subscriptions are per-connection, so a
// client only hears about URIs it asked for.
func (s *Server) BroadcastResourceUpdated(uri string) {
	for _, conn := range s.Conns() {
		if conn.SubscriptionManager().IsSubscribed(conn.ID(), uri) {
			_ = conn.NotifyResourceUpdated(uri)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, conn *Conn, req *protocol.Request) (*protocol.Response, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "mcp.server."+req.Method, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	ctx = ContextWithConn(ctx, conn)
	ctx = middleware.ContextWithConnID(ctx, conn.ID())

	ctx, untrack := conn.cancellation.Track(ctx, string(req.ID))
	defer untrack()

	handler := HandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		return s.route(ctx, conn, req)
	})
	if len(s.opts.middleware) > 0 {
		handler = Chain(s.opts.middleware...)(handler)
	}

	resp, err := handler(ctx, req)

	s.requestCounter.Add(ctx, 1)
	s.durationHist.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.errorCounter.Add(ctx, 1)
	}
	return resp, err
}

func (s *Server) route(ctx context.Context, conn *Conn, req *protocol.Request) (*protocol.Response, error) {
	var (
		result any
		err    error
	)
	if req.Method != protocol.MethodInitialize && !conn.Initialized() {
		return nil, protocol.NewInvalidStateError("handshake not complete: " + req.Method + " sent before notifications/initialized")
	}
	switch req.Method {
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, conn, req)
	case protocol.MethodPing:
		result = map[string]any{}
	case protocol.MethodResourcesList:
		result, err = s.listResources(ctx, req.Params)
	case protocol.MethodResourcesRead:
		result, err = s.readResource(ctx, req.Params)
	case protocol.MethodResourcesSubscribe:
		result, err = s.subscribe(ctx, conn, req.Params)
	case protocol.MethodResourcesUnsubscribe:
		result, err = s.unsubscribe(ctx, conn, req.Params)
	case protocol.MethodResourceTemplatesList:
		var templates []protocol.ResourceTemplate
		templates, err = s.service.ListResourceTemplates(ctx)
		result = map[string]any{"resourceTemplates": templates}
	case protocol.MethodPromptsList:
		result, err = s.listPrompts(ctx, req.Params)
	case protocol.MethodPromptsGet:
		result, err = s.getPrompt(ctx, req.Params)
	case protocol.MethodToolsList:
		result, err = s.listTools(ctx, req.Params)
	case protocol.MethodToolsCall:
		result, err = s.callTool(ctx, req.Params)
	case protocol.MethodLoggingSetLevel:
		result, err = s.setLogLevel(ctx, conn, req.Params)
	case protocol.MethodCompletionComplete:
		result, err = s.complete(ctx, req.Params)
	default:
		return nil, protocol.NewMethodNotFound(req.Method)
	}
	if err != nil {
		return nil, err
	}
	return protocol.NewResponse(req.ID, result)
}

func (s *Server) handleInitialize(ctx context.Context, conn *Conn, req *protocol.Request) (*protocol.Response, error) {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	caps, err := s.service.Initialize(ctx, params.ClientInfo, params.Capabilities)
	if err != nil {
		return nil, err
	}

	conn.clientInfo = params.ClientInfo
	conn.clientCaps = params.Capabilities
	conn.sess.SetPeerInfo(params.ClientInfo)
	conn.sess.SetPeerClientCapabilities(params.Capabilities)

	result := protocol.InitializeResult{
		ProtocolVersion: protocol.MCPVersion,
		Capabilities:    caps,
		ServerInfo:      s.opts.implementation,
		Instructions:    s.opts.instructions,
	}
	return protocol.NewResponse(req.ID, result)
}

func (s *Server) handleNotification(ctx context.Context, conn *Conn, method string, params json.RawMessage) {
	switch method {
	case protocol.MethodInitialized:
		select {
		case <-conn.readyCh:
		default:
			close(conn.readyCh)
		}
	case protocol.MethodCancelled:
		var n CancelledNotification
		if err := json.Unmarshal(params, &n); err == nil {
			conn.cancellation.Cancel(string(n.RequestID))
		}
	case protocol.MethodRootsListChanged:
		go func() {
			roots, err := conn.ListRoots(context.Background())
			if err == nil {
				s.service.RootsUpdated(context.Background(), conn, roots)
			}
		}()
	}
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, protocol.NewInvalidParams(err.Error())
	}
	return v, nil
}

func (s *Server) listResources(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		Cursor string `json:"cursor,omitempty"`
	}](raw)
	if err != nil {
		return nil, err
	}
	resources, next, err := s.service.ListResources(ctx, params.Cursor)
	if err != nil {
		return nil, err
	}
	return map[string]any{"resources": resources, "nextCursor": omitEmpty(next)}, nil
}

func (s *Server) readResource(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		URI string `json:"uri"`
	}](raw)
	if err != nil {
		return nil, err
	}
	contents, err := s.service.ReadResource(ctx, params.URI)
	if err != nil {
		return nil, err
	}
	return map[string]any{"contents": contents}, nil
}

func (s *Server) subscribe(ctx context.Context, conn *Conn, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		URI string `json:"uri"`
	}](raw)
	if err != nil {
		return nil, err
	}
	if err := s.service.Subscribe(ctx, params.URI); err != nil {
		return nil, err
	}
	conn.Subscribe(params.URI)
	return map[string]any{}, nil
}

func (s *Server) unsubscribe(ctx context.Context, conn *Conn, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		URI string `json:"uri"`
	}](raw)
	if err != nil {
		return nil, err
	}
	if err := s.service.Unsubscribe(ctx, params.URI); err != nil {
		return nil, err
	}
	conn.Unsubscribe(params.URI)
	return map[string]any{}, nil
}

func (s *Server) listPrompts(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		Cursor string `json:"cursor,omitempty"`
	}](raw)
	if err != nil {
		return nil, err
	}
	prompts, next, err := s.service.ListPrompts(ctx, params.Cursor)
	if err != nil {
		return nil, err
	}
	return map[string]any{"prompts": prompts, "nextCursor": omitEmpty(next)}, nil
}

func (s *Server) getPrompt(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments,omitempty"`
	}](raw)
	if err != nil {
		return nil, err
	}
	description, messages, err := s.service.GetPrompt(ctx, params.Name, params.Arguments)
	if err != nil {
		return nil, err
	}
	return map[string]any{"description": omitEmpty(description), "messages": messages}, nil
}

func (s *Server) listTools(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		Cursor string `json:"cursor,omitempty"`
	}](raw)
	if err != nil {
		return nil, err
	}
	tools, next, err := s.service.ListTools(ctx, params.Cursor)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tools": tools, "nextCursor": omitEmpty(next)}, nil
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}](raw)
	if err != nil {
		return nil, err
	}
	result, err := s.service.CallTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Server) setLogLevel(ctx context.Context, conn *Conn, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		Level protocol.LogLevel `json:"level"`
	}](raw)
	if err != nil {
		return nil, err
	}
	if err := s.service.SetLogLevel(ctx, params.Level); err != nil {
		return nil, err
	}
	conn.SetLogLevel(params.Level)
	return map[string]any{}, nil
}

func (s *Server) complete(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams[struct {
		Ref      protocol.CompletionRef      `json:"ref"`
		Argument protocol.CompletionArgument `json:"argument"`
	}](raw)
	if err != nil {
		return nil, err
	}
	result, err := s.service.Complete(ctx, params.Ref, params.Argument)
	if err != nil {
		return nil, err
	}
	return map[string]any{"completion": result}, nil
}

func omitEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
