// Package transport provides MCP transport implementations: WebSocket,
// HTTP, stdio and an in-process pipe for tests.
package transport

import "context"

// Transport is a duplex byte-message channel between an MCP client and
// server. Implementations frame one JSON-RPC envelope (request, response,
// or notification) per Send/Receive call; the session package owns
// interpreting the bytes.
//
// A Transport is used by exactly one session at a time. Send may be
// called concurrently with Receive, but Send is not safe to call
// concurrently with itself, nor is Receive; the session package
// serializes each independently through its send-serializer and
// inbound-pump goroutines.
type Transport interface {
	// Connect establishes the underlying connection. For accepting
	// transports (a per-connection WebSocket/HTTP wrapper) this is a
	// no-op since the connection already exists.
	Connect(ctx context.Context) error

	// Send writes one framed message.
	Send(ctx context.Context, message []byte) error

	// Receive blocks until one framed message arrives, ctx is canceled,
	// or the transport is disconnected. It is cancel-safe: a canceled
	// Receive leaves the transport usable for the next call.
	Receive(ctx context.Context) ([]byte, error)

	// Disconnect closes the transport. It is idempotent.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the transport can currently Send/Receive.
	IsConnected() bool
}
