// Package transport provides MCP transport implementations.
//
// This package implements the duplex communication layer MCP sessions
// run over. Every implementation satisfies the same Transport interface
// so a session.Session never needs to know which wire format it is
// speaking:
//
//	type Transport interface {
//	    Connect(ctx context.Context) error
//	    Send(ctx context.Context, message []byte) error
//	    Receive(ctx context.Context) ([]byte, error)
//	    Disconnect(ctx context.Context) error
//	    IsConnected() bool
//	}
//
// # Stdio Transport
//
// Stdio frames one JSON value per line, suitable for local tools and
// subprocess-based servers:
//
//	t := transport.NewProcessStdio()
//
// # WebSocket Transport
//
// WebSocketConn wraps a single gorilla/websocket connection; use
// DialWebSocket from a client and WebSocketUpgrader from an HTTP server:
//
//	conn, err := transport.DialWebSocket(ctx, "ws://localhost:8080/mcp")
//
// # HTTP Transport
//
// HTTPClientConn POSTs each outbound envelope and long-polls a GET
// stream for server-originated pushes; HTTPListener accepts sessions on
// the server side and routes POST/GET by the Mcp-Session-Id header.
//
// # Pipe Transport
//
// Pipe connects a client and server directly through buffered channels,
// used by testutil to test the SDK without a real socket.
package transport
