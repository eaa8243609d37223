// Package client implements the MCP client role: typed request wrappers
// over session.Session, local capability gating, and inbound handlers for
// server-initiated sampling/createMessage and roots/list requests.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcp-conductor/mcp/middleware"
	"github.com/mcp-conductor/mcp/protocol"
	"github.com/mcp-conductor/mcp/session"
	"github.com/mcp-conductor/mcp/transport"
)

// SamplingHandler answers a server-initiated sampling/createMessage request.
type SamplingHandler func(ctx context.Context, params protocol.CreateMessageParams) (*protocol.CreateMessageResult, error)

// RootsHandler answers a server-initiated roots/list request.
type RootsHandler func(ctx context.Context) ([]protocol.Root, error)

// Event is a notification the server pushed outside of a request/response
// cycle (resources/prompts/tools list_changed, resources/updated,
// logging/message, notifications/progress).
type Event struct {
	Method string
	Params json.RawMessage
}

// Option configures a Client.
type Option func(*options)

type options struct {
	implementation protocol.Implementation
	roots          []protocol.Root
	rootsListChanged bool
	sampling       bool
	experimental   map[string]any

	requestTimeout time.Duration
	logger         middleware.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	samplingHandler SamplingHandler
	rootsHandler    RootsHandler

	eventBuffer int
}

func defaultOptions() *options {
	return &options{
		implementation: protocol.Implementation{Name: "mcp-go-client", Version: "1.0.0"},
		requestTimeout: 30 * time.Second,
		logger:         middleware.NopLogger{},
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		eventBuffer:    256,
	}
}

// WithImplementation sets the name/version this client reports during initialize.
func WithImplementation(name, version string) Option {
	return func(o *options) { o.implementation = protocol.Implementation{Name: name, Version: version} }
}

// WithRoots declares the filesystem/URI roots this client exposes.
func WithRoots(roots ...protocol.Root) Option {
	return func(o *options) { o.roots = roots }
}

// WithRootsListChanged advertises support for notifications/roots/list_changed.
func WithRootsListChanged() Option {
	return func(o *options) { o.rootsListChanged = true }
}

// WithSampling advertises sampling support and installs the handler that
// answers sampling/createMessage requests from the server.
func WithSampling(h SamplingHandler) Option {
	return func(o *options) { o.sampling = true; o.samplingHandler = h }
}

// WithRootsHandler installs the handler that answers roots/list requests
// from the server. Implies the roots capability is advertised.
func WithRootsHandler(h RootsHandler) Option {
	return func(o *options) { o.rootsHandler = h }
}

// WithExperimental attaches an experimental capability payload.
func WithExperimental(experimental map[string]any) Option {
	return func(o *options) { o.experimental = experimental }
}

// WithRequestTimeout sets the default per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the client's structured logger.
func WithLogger(l middleware.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracerProvider instruments every outbound request with an OpenTelemetry span.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider records request count/duration/error metrics for every outbound request.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// Client is the MCP client role: it owns a session.Session and exposes
// typed, capability-gated wrappers for every client-initiated operation.
type Client struct {
	opts   *options
	sess   *session.Session
	tracer trace.Tracer

	requestCounter metric.Int64Counter
	errorCounter   metric.Int64Counter
	durationHist   metric.Float64Histogram

	events chan Event
}

// Dial connects to an MCP server over t and runs the initialize handshake.
func Dial(ctx context.Context, t transport.Transport, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	meter := o.meterProvider.Meter("github.com/mcp-conductor/mcp/client")
	c := &Client{opts: o, events: make(chan Event, o.eventBuffer), tracer: o.tracerProvider.Tracer("github.com/mcp-conductor/mcp/client")}
	c.requestCounter, _ = meter.Int64Counter("mcp.client.requests")
	c.errorCounter, _ = meter.Int64Counter("mcp.client.errors")
	c.durationHist, _ = meter.Float64Histogram("mcp.client.request.duration")

	c.sess = session.New(t,
		session.WithLogger(o.logger),
		session.WithRequestHandler(session.RequestHandlerFunc(c.handleInboundRequest)),
		session.WithNotificationHandler(session.NotificationHandlerFunc(c.handleNotification)),
	)

	if err := c.sess.Run(ctx); err != nil {
		return nil, err
	}
	if err := c.initialize(ctx); err != nil {
		_ = c.sess.Stop(ctx)
		return nil, err
	}
	c.sess.MarkReady()
	return c, nil
}

func (c *Client) capabilities() protocol.ClientCapabilities {
	caps := protocol.ClientCapabilities{Experimental: c.opts.experimental}
	if len(c.opts.roots) > 0 || c.opts.rootsListChanged || c.opts.rootsHandler != nil {
		caps.Roots = &protocol.RootsCapability{ListChanged: c.opts.rootsListChanged}
	}
	if c.opts.sampling {
		caps.Sampling = &struct{}{}
	}
	return caps
}

func (c *Client) initialize(ctx context.Context) error {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.MCPVersion,
		Capabilities:    c.capabilities(),
		ClientInfo:      c.opts.implementation,
	}
	raw, err := c.doRequest(ctx, protocol.MethodInitialize, params)
	if err != nil {
		return fmt.Errorf("mcp: initialize: %w", err)
	}
	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("mcp: decode initialize result: %w", err)
	}
	if result.ProtocolVersion != protocol.MCPVersion {
		c.opts.logger.Warn("server protocol version mismatch",
			middleware.F("server_version", result.ProtocolVersion), middleware.F("client_version", protocol.MCPVersion))
	}
	c.sess.SetPeerInfo(result.ServerInfo)
	c.sess.SetPeerServerCapabilities(result.Capabilities)
	return c.sess.Notify(ctx, protocol.MethodInitialized, nil)
}

// doRequest applies the default timeout and OTel instrumentation around session.Request.
func (c *Client) doRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.requestTimeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "mcp.client."+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	start := time.Now()

	result, err := c.sess.Request(ctx, method, params)

	c.requestCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
	c.durationHist.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("method", method)))
	if err != nil {
		c.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
		span.RecordError(err)
	}
	return result, err
}

// requireServerCapability fails locally, without a wire round-trip, when
// the server never advertised the capability the caller needs.
func (c *Client) requireServerCapability(ok bool, name string) error {
	if !ok {
		return &protocol.CapabilityError{Capability: name}
	}
	return nil
}

// ListResources returns the server's advertised resources.
func (c *Client) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasResources(), "resources"); err != nil {
		return nil, err
	}
	raw, err := c.doRequest(ctx, protocol.MethodResourcesList, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Resources []protocol.Resource `json:"resources"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode resources/list: %w", err)
	}
	return result.Resources, nil
}

// ReadResource fetches the contents of one resource URI.
func (c *Client) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasResources(), "resources"); err != nil {
		return nil, err
	}
	raw, err := c.doRequest(ctx, protocol.MethodResourcesRead, map[string]any{"uri": uri})
	if err != nil {
		return nil, err
	}
	var result struct {
		Contents []protocol.ResourceContents `json:"contents"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode resources/read: %w", err)
	}
	return result.Contents, nil
}

// Subscribe asks the server to notify this client of updates to uri.
func (c *Client) Subscribe(ctx context.Context, uri string) error {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasResourceSubscribe(), "resources.subscribe"); err != nil {
		return err
	}
	_, err := c.doRequest(ctx, protocol.MethodResourcesSubscribe, map[string]any{"uri": uri})
	return err
}

// Unsubscribe cancels a prior Subscribe.
func (c *Client) Unsubscribe(ctx context.Context, uri string) error {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasResourceSubscribe(), "resources.subscribe"); err != nil {
		return err
	}
	_, err := c.doRequest(ctx, protocol.MethodResourcesUnsubscribe, map[string]any{"uri": uri})
	return err
}

// ListResourceTemplates returns the server's parameterized resource templates.
func (c *Client) ListResourceTemplates(ctx context.Context) ([]protocol.ResourceTemplate, error) {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasResources(), "resources"); err != nil {
		return nil, err
	}
	raw, err := c.doRequest(ctx, protocol.MethodResourceTemplatesList, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		ResourceTemplates []protocol.ResourceTemplate `json:"resourceTemplates"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode resources/templates/list: %w", err)
	}
	return result.ResourceTemplates, nil
}

// ListPrompts returns the server's advertised prompts.
func (c *Client) ListPrompts(ctx context.Context) ([]protocol.Prompt, error) {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasPrompts(), "prompts"); err != nil {
		return nil, err
	}
	raw, err := c.doRequest(ctx, protocol.MethodPromptsList, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Prompts []protocol.Prompt `json:"prompts"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode prompts/list: %w", err)
	}
	return result.Prompts, nil
}

// GetPrompt resolves a prompt template with the given arguments, returning
// its full ordered message sequence.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) ([]protocol.PromptMessage, string, error) {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasPrompts(), "prompts"); err != nil {
		return nil, "", err
	}
	params := map[string]any{"name": name}
	if arguments != nil {
		params["arguments"] = arguments
	}
	raw, err := c.doRequest(ctx, protocol.MethodPromptsGet, params)
	if err != nil {
		return nil, "", err
	}
	var result struct {
		Description string                   `json:"description"`
		Messages    []protocol.PromptMessage `json:"messages"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, "", fmt.Errorf("mcp: decode prompts/get: %w", err)
	}
	return result.Messages, result.Description, nil
}

// ListTools returns the server's advertised tools.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasTools(), "tools"); err != nil {
		return nil, err
	}
	raw, err := c.doRequest(ctx, protocol.MethodToolsList, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Tools []protocol.Tool `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode tools/list: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes a tool by name.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (*protocol.ToolResult, error) {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasTools(), "tools"); err != nil {
		return nil, err
	}
	params := map[string]any{"name": name}
	if arguments != nil {
		params["arguments"] = arguments
	}
	raw, err := c.doRequest(ctx, protocol.MethodToolsCall, params)
	if err != nil {
		return nil, err
	}
	var result protocol.ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode tools/call: %w", err)
	}
	return &result, nil
}

// SetLogLevel asks the server to only emit logging/message notifications at or above level.
func (c *Client) SetLogLevel(ctx context.Context, level protocol.LogLevel) error {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasLogging(), "logging"); err != nil {
		return err
	}
	_, err := c.doRequest(ctx, protocol.MethodLoggingSetLevel, map[string]any{"level": level})
	return err
}

// Complete requests autocomplete candidates for a prompt or resource argument.
func (c *Client) Complete(ctx context.Context, ref protocol.CompletionRef, arg protocol.CompletionArgument) (*protocol.CompletionResult, error) {
	caps := c.sess.PeerServerCapabilities()
	if err := c.requireServerCapability(caps.HasCompletion(), "completion"); err != nil {
		return nil, err
	}
	raw, err := c.doRequest(ctx, protocol.MethodCompletionComplete, map[string]any{"ref": ref, "argument": arg})
	if err != nil {
		return nil, err
	}
	var result struct {
		Completion protocol.CompletionResult `json:"completion"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode completion/complete: %w", err)
	}
	return &result.Completion, nil
}

// Ping round-trips a liveness check with the server.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, protocol.MethodPing, nil)
	return err
}

// ServerInfo returns the peer Implementation recorded during initialize.
func (c *Client) ServerInfo() protocol.Implementation { return c.sess.PeerInfo() }

// ServerCapabilities returns the capabilities the server advertised.
func (c *Client) ServerCapabilities() *protocol.ServerCapabilities { return c.sess.PeerServerCapabilities() }

// Events returns the channel of server-pushed notifications.
func (c *Client) Events() <-chan Event { return c.events }

// Close disconnects the session. It is idempotent.
func (c *Client) Close(ctx context.Context) error { return c.sess.Stop(ctx) }

func (c *Client) handleNotification(ctx context.Context, method string, params json.RawMessage) {
	select {
	case c.events <- Event{Method: method, Params: params}:
	default:
		c.opts.logger.Warn("dropping event, channel full", middleware.F("method", method))
	}
}

// handleInboundRequest answers the two request types a server can
// originate against a client: sampling/createMessage and roots/list.
// Anything else is answered locally with MethodNotFound — the server
// should never have sent it since roles other than sampling/roots are
// server-owned.
func (c *Client) handleInboundRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	switch req.Method {
	case protocol.MethodSamplingCreateMessage:
		if c.opts.samplingHandler == nil {
			return nil, protocol.NewMethodNotFound(req.Method)
		}
		var params protocol.CreateMessageParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, protocol.NewInvalidParams(err.Error())
		}
		result, err := c.opts.samplingHandler(ctx, params)
		if err != nil {
			return nil, protocol.NewInternalError(err.Error())
		}
		return protocol.NewResponse(req.ID, result)
	case protocol.MethodRootsList:
		if c.opts.rootsHandler == nil && len(c.opts.roots) == 0 && !c.opts.rootsListChanged {
			return nil, protocol.NewMethodNotFound(req.Method)
		}
		if c.opts.rootsHandler == nil {
			roots := c.opts.roots
			return protocol.NewResponse(req.ID, map[string]any{"roots": roots})
		}
		roots, err := c.opts.rootsHandler(ctx)
		if err != nil {
			return nil, protocol.NewInternalError(err.Error())
		}
		return protocol.NewResponse(req.ID, map[string]any{"roots": roots})
	default:
		return nil, protocol.NewMethodNotFound(req.Method)
	}
}
