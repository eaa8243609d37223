// Package mcp provides a framework for building MCP (Model Context Protocol)
// clients and servers.
//
// mcp aims to be the "Gin framework" for MCP servers, providing:
//   - Typed tool handlers with automatic JSON Schema generation
//   - Gin-style middleware chains
//   - Pluggable transports (stdio, HTTP, WebSocket, in-memory pipes)
//   - Production-ready defaults: OpenTelemetry tracing and metrics,
//     structured logging, panic recovery
//
// Basic usage:
//
//	srv := mcp.NewServer("my-server", "1.0.0", mcp.RegistryCapabilities{})
//
//	type SearchInput struct {
//	    Query string `json:"query" jsonschema:"required"`
//	}
//
//	srv.Tool("search").
//	    Description("Search for items").
//	    Handler(func(ctx context.Context, input SearchInput) ([]string, error) {
//	        return []string{"result1", "result2"}, nil
//	    })
//
//	mcp.ServeStdio(ctx, mcp.NewService(srv))
//
// On the client side:
//
//	c, err := mcp.DialStdio(ctx, "my-server-binary", nil)
//	tools, err := c.ListTools(ctx)
//	result, err := c.CallTool(ctx, "search", map[string]any{"query": "widgets"})
package mcp

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcp-conductor/mcp/client"
	"github.com/mcp-conductor/mcp/middleware"
	"github.com/mcp-conductor/mcp/protocol"
	"github.com/mcp-conductor/mcp/server"
	"github.com/mcp-conductor/mcp/transport"
)

// Re-export core server types for convenience.

// Service is the contract a Server answers requests with.
type Service = server.Service

// UnimplementedService supplies not-implemented defaults for every
// Service method, so a type embedding it only needs to override the
// operations it actually supports.
type UnimplementedService = server.UnimplementedService

// Registry is a declarative Service built from tools, resources, and
// prompts registered through a fluent builder API.
type Registry = server.Registry

// RegistryCapabilities declares which list-changed notifications a
// Registry advertises to clients during initialize.
type RegistryCapabilities = server.RegistryCapabilities

// Server dispatches MCP requests arriving on accepted connections to a
// Service.
type Server = server.Server

// Conn is a server's handle to one connected client: notifications,
// server-initiated sampling and roots requests, logging, cancellation,
// and resource subscriptions all flow through it.
type Conn = server.Conn

// Option configures a Server.
type Option = server.Option

// Resource types.
type ResourceContent = server.ResourceContent
type ResourceInfo = server.ResourceInfo
type ResourceHandler = server.ResourceHandler

// Prompt types.
type PromptResult = server.PromptResult
type PromptHandler = server.PromptHandler
type PromptInfo = server.PromptInfo

// Progress types for streaming tool responses.
type ProgressToken = server.ProgressToken
type Progress = server.Progress
type ProgressReporter = server.ProgressReporter

// ProgressFromContext returns the progress reporter from context.
// Use this in tool handlers to report progress for long-running operations.
//
// Example:
//
//	srv.Tool("process").Handler(func(ctx context.Context, input ProcessInput) (string, error) {
//	    progress := mcp.ProgressFromContext(ctx)
//	    total := 100.0
//	    for i := 0; i < 100; i++ {
//	        progress.Report(float64(i), &total)
//	        // do work...
//	    }
//	    return "done", nil
//	})
var ProgressFromContext = server.ProgressFromContext

// ConnFromContext returns the Conn handling the in-flight request. Use
// this in tool, resource, or prompt handlers to send sampling/roots
// requests back to the client or push log notifications.
var ConnFromContext = server.ConnFromContext

// Middleware types.
type Middleware = middleware.Middleware
type MiddlewareHandlerFunc = middleware.HandlerFunc
type Logger = middleware.Logger
type LogField = middleware.Field
type RateLimitOption = middleware.RateLimitOption
type SizeLimitOption = middleware.SizeLimitOption
type AuthOption = middleware.AuthOption
type Authenticator = middleware.Authenticator
type Identity = middleware.Identity

// Rate limiting, size limiting, and auth re-exports for convenience.
var (
	RateLimit            = middleware.RateLimit
	RateLimitByMethod    = middleware.RateLimitByMethod
	RateLimitByClient    = middleware.RateLimitByClient
	WithRateLimitKeyFunc = middleware.WithRateLimitKeyFunc
	WithRateLimitLogger  = middleware.WithRateLimitLogger

	SizeLimit           = middleware.SizeLimit
	WithSizeLimitLogger = middleware.WithSizeLimitLogger

	Auth                     = middleware.Auth
	APIKeyAuthenticator      = middleware.APIKeyAuthenticator
	BearerTokenAuthenticator = middleware.BearerTokenAuthenticator
	StaticAPIKeys            = middleware.StaticAPIKeys
	StaticTokens             = middleware.StaticTokens
)

// Size limit presets.
const (
	KB = middleware.KB
	MB = middleware.MB
)

// NewServer creates a Registry, a declarative Service that answers
// tools/resources/prompts registered through its fluent builder API,
// advertising name and version to clients during initialize.
func NewServer(name, version string, caps RegistryCapabilities) *Registry {
	return server.NewRegistry(name, version, caps)
}

// NewService wraps a hand-written Service in a Server, for callers who
// need full control over request handling instead of the declarative
// Registry.
func NewService(service Service, opts ...Option) *Server {
	return server.New(service, opts...)
}

// WithImplementation sets the server's name and version reported to clients.
func WithImplementation(name, version string) Option {
	return server.WithImplementation(name, version)
}

// WithInstructions sets free-text usage instructions returned to clients.
func WithInstructions(instructions string) Option { return server.WithInstructions(instructions) }

// WithLogger sets the structured logger used for connection lifecycle events.
func WithLogger(l Logger) Option { return server.WithLogger(l) }

// WithServerMiddleware appends request middleware applied to every
// connection a Server accepts.
func WithServerMiddleware(mw ...Middleware) Option { return server.WithMiddleware(mw...) }

// WithHandshakeTimeout bounds how long Serve waits for the client's
// initialize/initialized handshake before giving up.
func WithHandshakeTimeout(d time.Duration) Option { return server.WithHandshakeTimeout(d) }

// WithServerTracerProvider sets the tracer used to start a span around
// every dispatched request.
func WithServerTracerProvider(tp trace.TracerProvider) Option {
	return server.WithTracerProvider(tp)
}

// WithServerMeterProvider sets the meter used to record request count
// and duration metrics.
func WithServerMeterProvider(mp metric.MeterProvider) Option {
	return server.WithMeterProvider(mp)
}

// ServeStdio runs srv over the process's own stdin/stdout. This blocks
// until the client disconnects, ctx is canceled, or the handshake fails.
func ServeStdio(ctx context.Context, srv *Server) (*Conn, error) {
	return srv.Serve(ctx, transport.NewProcessStdio())
}

// HTTPListener accepts HTTP-transport connections on a single mux
// endpoint. Register its Handler with an *http.Server and Accept new
// connections to hand each to Server.Serve.
type HTTPListener = transport.HTTPListener

// NewHTTPListener creates an HTTPListener.
func NewHTTPListener() *HTTPListener { return transport.NewHTTPListener() }

// ServeHTTP runs srv over HTTP at addr, accepting one connection per
// client session until ctx is canceled. It blocks until the underlying
// http.Server shuts down.
func ServeHTTP(ctx context.Context, srv *Server, addr string) error {
	listener := transport.NewHTTPListener()
	httpSrv := &http.Server{Addr: addr, Handler: listener.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	go func() {
		for {
			select {
			case conn := <-listener.Accept():
				go func() {
					if _, err := srv.Serve(ctx, conn); err != nil {
						_ = conn.Disconnect(ctx)
					}
				}()
			case <-ctx.Done():
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		return httpSrv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// WebSocketOption configures the WebSocket transport.
type WebSocketOption = transport.WebSocketOption

// WithWebSocketReadTimeout sets the read timeout for WebSocket messages.
func WithWebSocketReadTimeout(d time.Duration) WebSocketOption {
	return transport.WithWebSocketReadTimeout(d)
}

// WithWebSocketWriteTimeout sets the write timeout for WebSocket messages.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return transport.WithWebSocketWriteTimeout(d)
}

// ServeWebSocket runs srv over WebSocket at addr, upgrading every
// incoming connection to /mcp and dispatching it to srv. It blocks
// until ctx is canceled.
func ServeWebSocket(ctx context.Context, srv *Server, addr string, opts ...WebSocketOption) error {
	upgrader := transport.NewWebSocketUpgrader(opts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r)
		if err != nil {
			return
		}
		go func() {
			if _, err := srv.Serve(r.Context(), conn); err != nil {
				_ = conn.Disconnect(r.Context())
			}
		}()
	})

	httpSrv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return httpSrv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Client-side re-exports.

// Client is a connected MCP client.
type Client = client.Client

// ClientOption configures a Client.
type ClientOption = client.Option

// SamplingHandler answers a server's sampling/createMessage requests.
type SamplingHandler = client.SamplingHandler

// RootsHandler answers a server's roots/list requests.
type RootsHandler = client.RootsHandler

// ClientEvent is a server-pushed notification surfaced to a client's
// caller.
type ClientEvent = client.Event

// WithClientImplementation sets the client's name and version reported
// to servers.
func WithClientImplementation(name, version string) ClientOption {
	return client.WithImplementation(name, version)
}

// WithClientRoots declares the filesystem/URI roots this client exposes.
func WithClientRoots(roots ...protocol.Root) ClientOption { return client.WithRoots(roots...) }

// WithClientRootsListChanged advertises support for notifications/roots/list_changed.
func WithClientRootsListChanged() ClientOption { return client.WithRootsListChanged() }

// WithSampling registers a handler for the server's sampling/createMessage requests.
func WithSampling(h SamplingHandler) ClientOption { return client.WithSampling(h) }

// WithRootsHandler registers a handler for the server's roots/list requests.
func WithRootsHandler(h RootsHandler) ClientOption { return client.WithRootsHandler(h) }

// WithClientLogger sets the structured logger used for connection lifecycle events.
func WithClientLogger(l Logger) ClientOption { return client.WithLogger(l) }

// WithRequestTimeout bounds how long a single request waits for a response.
func WithRequestTimeout(d time.Duration) ClientOption { return client.WithRequestTimeout(d) }

// WithClientTracerProvider instruments every outbound request with an
// OpenTelemetry span.
func WithClientTracerProvider(tp trace.TracerProvider) ClientOption {
	return client.WithTracerProvider(tp)
}

// WithClientMeterProvider records request count/duration/error metrics
// for every outbound request.
func WithClientMeterProvider(mp metric.MeterProvider) ClientOption {
	return client.WithMeterProvider(mp)
}

// Dial performs the initialize/initialized handshake over t and
// returns a connected Client.
func Dial(ctx context.Context, t transport.Transport, opts ...ClientOption) (*Client, error) {
	return client.Dial(ctx, t, opts...)
}

// DialStdio spawns command as a subprocess and dials it over its
// stdin/stdout.
func DialStdio(ctx context.Context, command string, args []string, opts ...ClientOption) (*Client, error) {
	proc, err := transport.SpawnStdio(ctx, command, args...)
	if err != nil {
		return nil, err
	}
	return client.Dial(ctx, proc, opts...)
}

// Middleware re-exports.

// Chain composes multiple middleware into a single middleware,
// executing the first middleware first.
func Chain(middlewares ...Middleware) Middleware {
	return middleware.Chain(middlewares...)
}

// Recover returns middleware that catches panics and converts them to internal errors.
func Recover() Middleware {
	return middleware.Recover()
}

// Timeout returns middleware that enforces a request deadline.
func Timeout(d time.Duration) Middleware {
	return middleware.Timeout(d)
}

// RequestID returns middleware that injects a unique request ID into the context.
func RequestID() Middleware {
	return middleware.RequestID()
}

// RequestIDFromContext returns the request ID from the context, or empty string if not set.
func RequestIDFromContext(ctx context.Context) string {
	return middleware.RequestIDFromContext(ctx)
}

// Logging returns middleware that logs request details.
func Logging(logger Logger) Middleware {
	return middleware.Logging(logger)
}

// DefaultMiddleware returns the recommended production middleware stack.
func DefaultMiddleware(logger Logger) []Middleware {
	return middleware.DefaultStack(logger)
}

// DefaultMiddlewareWithTimeout returns the default stack with a timeout middleware.
func DefaultMiddlewareWithTimeout(logger Logger, timeout time.Duration) []Middleware {
	return middleware.DefaultStackWithTimeout(logger, timeout)
}

// LogF creates a new log field with the given key and value.
func LogF(key string, value any) LogField {
	return middleware.F(key, value)
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption = middleware.OTelOption

// WithTracerProvider sets the tracer provider used to start spans for
// each dispatched request.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return middleware.WithTracerProvider(tp)
}

// WithMeterProvider sets the meter provider used to record request
// count and duration metrics.
func WithMeterProvider(mp metric.MeterProvider) OTelOption {
	return middleware.WithMeterProvider(mp)
}

// WithOTelServiceName sets the service.name attribute on every span.
func WithOTelServiceName(name string) OTelOption {
	return middleware.WithOTelServiceName(name)
}

// WithOTelSkipMethods excludes the given JSON-RPC methods from tracing
// and metrics, useful for high-frequency methods like ping.
func WithOTelSkipMethods(methods ...string) OTelOption {
	return middleware.WithOTelSkipMethods(methods...)
}

// OTel returns middleware that records a span and request metrics for
// every dispatched request.
func OTel(opts ...OTelOption) Middleware {
	return middleware.OTel(opts...)
}
