package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcp-conductor/mcp/protocol"
	"github.com/mcp-conductor/mcp/session"
)

// Conn is one client connection to a Server. It exposes the
// server-initiated half of the protocol: sending sampling and roots
// requests to the client, pushing log messages and resource-update
// notifications, and tracking that connection's subscriptions and
// in-flight cancellable requests.
type Conn struct {
	id   string
	sess *session.Session

	clientInfo protocol.Implementation
	clientCaps protocol.ClientCapabilities

	logLevel protocol.LogLevel

	cancellation  *CancellationManager
	subscriptions *SubscriptionManager

	roots       []protocol.Root
	rootsChange func([]protocol.Root)

	readyCh chan struct{}
}

func newConn(id string, sess *session.Session) *Conn {
	return &Conn{
		id:            id,
		sess:          sess,
		logLevel:      protocol.LogLevelInfo,
		cancellation:  NewCancellationManager(),
		subscriptions: NewSubscriptionManager(),
		readyCh:       make(chan struct{}),
	}
}

// ID returns a value that uniquely identifies this connection for the
// lifetime of the server process.
func (c *Conn) ID() string { return c.id }

// ClientInfo returns the peer's declared implementation name/version.
func (c *Conn) ClientInfo() protocol.Implementation { return c.clientInfo }

// ClientCapabilities returns the capabilities the client advertised
// during the initialize handshake.
func (c *Conn) ClientCapabilities() protocol.ClientCapabilities { return c.clientCaps }

// Initialized reports whether the client has sent notifications/initialized,
// completing the handshake.
func (c *Conn) Initialized() bool {
	select {
	case <-c.readyCh:
		return true
	default:
		return false
	}
}

// CreateMessage sends a sampling/createMessage request to the client.
// Returns a *protocol.CapabilityError if the client never advertised
// sampling support.
func (c *Conn) CreateMessage(ctx context.Context, params protocol.CreateMessageParams) (*protocol.CreateMessageResult, error) {
	if !c.clientCaps.HasSampling() {
		return nil, &protocol.CapabilityError{Capability: "sampling"}
	}
	raw, err := c.sess.Request(ctx, protocol.MethodSamplingCreateMessage, params)
	if err != nil {
		return nil, err
	}
	var result protocol.CreateMessageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode sampling result: %w", err)
	}
	return &result, nil
}

// ListRoots requests the client's current root list, caches it, and
// returns it. Returns a *protocol.CapabilityError if the client never
// advertised roots support.
func (c *Conn) ListRoots(ctx context.Context) ([]protocol.Root, error) {
	if !c.clientCaps.HasRoots() {
		return nil, &protocol.CapabilityError{Capability: "roots"}
	}
	raw, err := c.sess.Request(ctx, protocol.MethodRootsList, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Roots []protocol.Root `json:"roots"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode roots result: %w", err)
	}
	c.roots = result.Roots
	return result.Roots, nil
}

// Roots returns the last root list fetched by ListRoots, without
// making a request.
func (c *Conn) Roots() []protocol.Root { return c.roots }

// Log sends a logging/message notification if level is at least as
// severe as the level the client last set via logging/setLevel.
func (c *Conn) Log(level protocol.LogLevel, logger string, data any) {
	if !level.AtLeast(c.logLevel) {
		return
	}
	msg := LoggingMessage{Level: level, Logger: logger, Data: data}
	_ = c.sess.Notify(context.Background(), protocol.MethodLoggingMessage, msg)
}

func (c *Conn) Debug(logger string, data any)   { c.Log(protocol.LogLevelDebug, logger, data) }
func (c *Conn) Info(logger string, data any)    { c.Log(protocol.LogLevelInfo, logger, data) }
func (c *Conn) Notice(logger string, data any)  { c.Log(protocol.LogLevelNotice, logger, data) }
func (c *Conn) Warning(logger string, data any) { c.Log(protocol.LogLevelWarning, logger, data) }
func (c *Conn) Error(logger string, data any)   { c.Log(protocol.LogLevelError, logger, data) }
func (c *Conn) Critical(logger string, data any) {
	c.Log(protocol.LogLevelCritical, logger, data)
}
func (c *Conn) Alert(logger string, data any) { c.Log(protocol.LogLevelAlert, logger, data) }
func (c *Conn) Emergency(logger string, data any) {
	c.Log(protocol.LogLevelEmergency, logger, data)
}

// SetLogLevel sets the minimum level Log will forward to the client.
func (c *Conn) SetLogLevel(level protocol.LogLevel) { c.logLevel = level }

// Cancel sends notifications/cancelled for a request this connection
// previously sent to the client (e.g. an outstanding sampling call).
func (c *Conn) Cancel(requestID json.RawMessage, reason string) error {
	return c.sess.Notify(context.Background(), protocol.MethodCancelled, CancelledNotification{
		RequestID: requestID,
		Reason:    reason,
	})
}

// CancellationManager returns the manager tracking this connection's
// in-flight, server-side handled requests.
func (c *Conn) CancellationManager() *CancellationManager { return c.cancellation }

// Subscribe records that this connection is subscribed to a resource URI.
func (c *Conn) Subscribe(uri string) { c.subscriptions.Subscribe(c.id, uri) }

// Unsubscribe removes this connection's subscription to a resource URI.
func (c *Conn) Unsubscribe(uri string) { c.subscriptions.Unsubscribe(c.id, uri) }

// SubscriptionManager returns the manager tracking this connection's
// resource subscriptions.
func (c *Conn) SubscriptionManager() *SubscriptionManager { return c.subscriptions }

// NotifyResourceUpdated sends a resources/updated notification.
func (c *Conn) NotifyResourceUpdated(uri string) error {
	return c.sess.Notify(context.Background(), protocol.MethodResourcesUpdated, ResourceUpdatedNotification{URI: uri})
}

// NotifyResourceListChanged sends a resources/list_changed notification.
func (c *Conn) NotifyResourceListChanged() error {
	return c.sess.Notify(context.Background(), protocol.MethodResourcesListChanged, nil)
}

// NotifyToolListChanged sends a tools/list_changed notification.
func (c *Conn) NotifyToolListChanged() error {
	return c.sess.Notify(context.Background(), protocol.MethodToolsListChanged, nil)
}

// NotifyPromptListChanged sends a prompts/list_changed notification.
func (c *Conn) NotifyPromptListChanged() error {
	return c.sess.Notify(context.Background(), protocol.MethodPromptsListChanged, nil)
}

// Close stops the underlying session, disconnecting the transport, and
// drops this connection's resource subscriptions.
func (c *Conn) Close(ctx context.Context) error {
	c.subscriptions.UnsubscribeAll()
	return c.sess.Stop(ctx)
}

// connKey is the context key for the active Conn.
type connKey struct{}

// ContextWithConn returns a context carrying conn, for handlers that
// need to reach it via context.Context rather than a closure.
func ContextWithConn(ctx context.Context, conn *Conn) context.Context {
	return context.WithValue(ctx, connKey{}, conn)
}

// ConnFromContext returns the Conn attached by ContextWithConn, or nil.
func ConnFromContext(ctx context.Context) *Conn {
	conn, _ := ctx.Value(connKey{}).(*Conn)
	return conn
}
